// Package process_blob provides a sparse in-memory process image. It satisfies
// process.Process so resolvers, samplers and the poll loop can run against a
// hand-built object graph instead of a live game.
package process_blob

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"climbsplit/process"
	"climbsplit/process/memory_map"
)

type region struct {
	base process.ProcessMemoryAddress
	data []byte
}

func (r *region) contains(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) bool {
	return addr >= r.base && uint64(addr)+uint64(size) <= uint64(r.base)+uint64(len(r.data))
}

// Image is a fake process made of mapped byte regions and named modules
type Image struct {
	mu      sync.Mutex
	pid     process.ProcessID
	name    string
	alive   bool
	open    bool
	regions []*region
	modules map[string]process.ProcessMemoryAddress
	reads   int
}

var _ process.Process = (*Image)(nil)

// NewImage creates an alive image with no mapped memory
func NewImage(pid process.ProcessID, name string) *Image {
	return &Image{
		pid:     pid,
		name:    name,
		alive:   true,
		open:    true,
		modules: make(map[string]process.ProcessMemoryAddress),
	}
}

// Name returns the process name the image answers to
func (img *Image) Name() string {
	return img.name
}

// Map adds a zero-filled region. Overlapping regions are not supported.
func (img *Image) Map(base process.ProcessMemoryAddress, size process.ProcessMemorySize) *Image {
	img.mu.Lock()
	defer img.mu.Unlock()

	img.regions = append(img.regions, &region{base: base, data: make([]byte, size)})
	sort.Slice(img.regions, func(i, j int) bool {
		return img.regions[i].base < img.regions[j].base
	})
	return img
}

// Unmap drops the region starting at base, simulating a freed allocation
func (img *Image) Unmap(base process.ProcessMemoryAddress) {
	img.mu.Lock()
	defer img.mu.Unlock()

	for i, r := range img.regions {
		if r.base == base {
			img.regions = append(img.regions[:i], img.regions[i+1:]...)
			return
		}
	}
}

// AddModule maps a module image of the given size at base
func (img *Image) AddModule(name string, base process.ProcessMemoryAddress, size process.ProcessMemorySize) *Image {
	img.Map(base, size)

	img.mu.Lock()
	img.modules[strings.ToLower(name)] = base
	img.mu.Unlock()
	return img
}

// Kill marks the image as exited; every later read fails with ErrProcessGone
func (img *Image) Kill() {
	img.mu.Lock()
	img.alive = false
	img.mu.Unlock()
}

// Reads returns how many ReadMemory calls have been served, failed ones included
func (img *Image) Reads() int {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.reads
}

func (img *Image) find(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) *region {
	for _, r := range img.regions {
		if r.contains(addr, size) {
			return r
		}
	}
	return nil
}

// Write copies data into mapped memory
func (img *Image) Write(addr process.ProcessMemoryAddress, data []byte) error {
	img.mu.Lock()
	defer img.mu.Unlock()

	r := img.find(addr, process.ProcessMemorySize(len(data)))
	if r == nil {
		return fmt.Errorf("write %d bytes at %s: %w", len(data), addr, process.ErrAddressNotMapped)
	}
	copy(r.data[addr-r.base:], data)
	return nil
}

// WritePOINTER stores a 64-bit pointer
func (img *Image) WritePOINTER(addr, ptr process.ProcessMemoryAddress) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(ptr))
	return img.Write(addr, buf[:])
}

// WriteUINT32 stores an unsigned 32-bit integer
func (img *Image) WriteUINT32(addr process.ProcessMemoryAddress, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return img.Write(addr, buf[:])
}

// WriteFLOAT32 stores a 32-bit float
func (img *Image) WriteFLOAT32(addr process.ProcessMemoryAddress, v float32) error {
	return img.WriteUINT32(addr, math.Float32bits(v))
}

// Chain lays out a deep pointer: for every offset but the last, a fresh node is
// allocated at next and its address stored at (current + offset). The last offset
// stores target. The address after the last allocated node is returned so callers can
// keep allocating.
func (img *Image) Chain(base process.ProcessMemoryAddress, next process.ProcessMemoryAddress, nodeSize process.ProcessMemorySize, target process.ProcessMemoryAddress, offsets ...process.ProcessMemorySize) (process.ProcessMemoryAddress, error) {
	current := base
	for i, off := range offsets {
		ptr := target
		if i < len(offsets)-1 {
			ptr = next
			img.Map(next, nodeSize)
			next = next.Add(nodeSize)
		}
		if err := img.WritePOINTER(current.Add(off), ptr); err != nil {
			return next, fmt.Errorf("chain step %d: %w", i, err)
		}
		current = ptr
	}
	return next, nil
}

func (img *Image) Open(pid process.ProcessID) error {
	img.mu.Lock()
	defer img.mu.Unlock()

	if pid != img.pid {
		return fmt.Errorf("image has pid %d, not %d", img.pid, pid)
	}
	img.open = true
	return nil
}

func (img *Image) Close() error {
	img.mu.Lock()
	img.open = false
	img.mu.Unlock()
	return nil
}

func (img *Image) GetPID() process.ProcessID {
	return img.pid
}

func (img *Image) IsAlive() bool {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.alive
}

func (img *Image) UpdateMemoryMap() error {
	return nil // the image is its own map
}

func (img *Image) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.find(addr, 1) != nil
}

func (img *Image) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	img.mu.Lock()
	defer img.mu.Unlock()

	names := make(map[process.ProcessMemoryAddress]string, len(img.modules))
	for name, base := range img.modules {
		names[base] = name
	}

	result := make([]memory_map.MemoryMapItem, 0, len(img.regions))
	for _, r := range img.regions {
		result = append(result, memory_map.MemoryMapItem{
			Address: uint64(r.base),
			Size:    uint(len(r.data)),
			Perms:   "rw-p",
			Path:    names[r.base],
		})
	}
	return result, nil
}

func (img *Image) ModuleBaseAddress(name string) (process.ProcessMemoryAddress, error) {
	img.mu.Lock()
	defer img.mu.Unlock()

	if !img.alive {
		return 0, process.ErrProcessGone
	}
	base, ok := img.modules[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, process.ErrModuleNotFound)
	}
	return base, nil
}

func (img *Image) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	img.mu.Lock()
	defer img.mu.Unlock()

	img.reads++
	if !img.open {
		return nil, process.ErrProcessNotOpen
	}
	if !img.alive {
		return nil, process.ErrProcessGone
	}

	r := img.find(addr, size)
	if r == nil {
		return nil, process.ErrAddressNotMapped
	}

	offset := addr - r.base
	result := make([]byte, size)
	copy(result, r.data[offset:uint64(offset)+uint64(size)])
	return result, nil
}
