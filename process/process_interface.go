package process

import (
	"climbsplit/process/memory_map"
)

// Memory is the read side of a foreign address space. It is all the resolver and
// sampler ever need.
type Memory interface {
	// ReadMemory reads memory from the process at the specified address
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)

	// ModuleBaseAddress returns the load address of the named module (e.g. "UnityPlayer.dll")
	ModuleBaseAddress(name string) (ProcessMemoryAddress, error)
}

// Process is the interface that defines operations for interacting with a system process
type Process interface {
	Memory

	// Open opens a process with the given PID for memory operations
	Open(pid ProcessID) error

	// Close closes the process and releases resources
	Close() error

	// GetPID returns the process ID
	GetPID() ProcessID

	// IsAlive reports whether the opened process still exists
	IsAlive() bool

	// UpdateMemoryMap refreshes the memory map for the process
	UpdateMemoryMap() error

	// IsValidAddress checks if the given memory address is valid and readable
	IsValidAddress(addr ProcessMemoryAddress) bool

	// GetMemoryMap returns a copy of the current memory map
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)
}

// ProcessFinder defines operations for discovering processes
type ProcessFinder interface {
	// FindProcessByName finds processes by their name (exact match)
	FindProcessByName(name string) ([]ProcessInfo, error)
}

// ProcessOpener opens a process by name. It returns ErrProcessNotFound while no
// process matches, which callers waiting for the game to launch treat as "not yet".
type ProcessOpener interface {
	// OpenProcessByName opens a process by its name (returns the first match)
	OpenProcessByName(name string) (Process, error)
}
