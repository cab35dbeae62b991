package process

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

func (pma ProcessMemoryAddress) String() string {
	return pma.ToString()
}

// Add returns the address displaced by a byte offset
func (pma ProcessMemoryAddress) Add(offset ProcessMemorySize) ProcessMemoryAddress {
	return pma + ProcessMemoryAddress(offset)
}

// ProcessMemorySize represents a size of memory region, or a byte offset into one
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// Hex formats an offset the way offset tables are usually written
func (pms ProcessMemorySize) Hex() string {
	return "0x" + strconv.FormatUint(uint64(pms), 16)
}

// MarshalYAML writes offsets in hex, matching how profiles are written by hand
func (pms ProcessMemorySize) MarshalYAML() (interface{}, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: pms.Hex()}, nil
}

// PointerSize is the size of a pointer in the target process. Only 64-bit targets are supported.
const PointerSize ProcessMemorySize = 8
