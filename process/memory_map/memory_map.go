package memory_map

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint   // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
	Path    string // Backing file, empty for anonymous mappings
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Path)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

// FileName returns the base name of the backing file. Both '/' and '\' separate
// path elements so wine-style paths resolve the same way as native ones.
func (mmItem MemoryMapItem) FileName() string {
	if mmItem.Path == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(mmItem.Path, "\\", "/"))
}

// MemoryMap defines the interface for operations related to a process's memory map
type MemoryMap interface {
	// ReadMemoryMap reads and parses the memory map for a process
	ReadMemoryMap(pid int) ([]MemoryMapItem, error)
}

// Sort orders the map by address, which IsValidAddress2 requires
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// IsValidAddress2 returns the region containing addr using a binary search over a
// map sorted by address, or nil.
func IsValidAddress2(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// ContainsRange reports whether [addr, addr+size) lies inside one readable region.
func ContainsRange(addr uint64, size uint, memoryMap []MemoryMapItem) bool {
	item := IsValidAddress2(addr, memoryMap)
	if item == nil || !item.IsReadable() {
		return false
	}
	return addr+uint64(size) <= item.End()
}

// FindModule returns the lowest mapped address of the module whose backing file
// name matches name, case-insensitively.
func FindModule(name string, memoryMap []MemoryMapItem) (uint64, bool) {
	found := false
	var base uint64
	for _, item := range memoryMap {
		if !strings.EqualFold(item.FileName(), name) {
			continue
		}
		if !found || item.Address < base {
			base = item.Address
			found = true
		}
	}
	return base, found
}
