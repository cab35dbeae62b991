//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"sync"

	"climbsplit/process"
	"climbsplit/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Highest user-space address on x86-64
const maxUserAddress = process.ProcessMemoryAddress(0x7FFFFFFFFFFF)

// LinuxProcess implements the process.Process interface for Linux systems
type LinuxProcess struct {
	pid process.ProcessID
	log *logger.Logger
	mm  []memory_map.MemoryMapItem
	mu  sync.Mutex
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := &LinuxProcess{}
	err := p.Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	// Check if process exists
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return fmt.Errorf("process with PID %d does not exist", pid)
	}

	p.mu.Lock()
	p.pid = pid
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if err := p.UpdateMemoryMap(); err != nil {
		return fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.log.Infoln("Process opened")

	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")

	p.pid = 0
	p.mm = nil

	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// IsAlive reports whether the pid still exists and is not a zombie
func (p *LinuxProcess) IsAlive() bool {
	pid := p.GetPID()
	if pid == 0 {
		return false
	}
	if !procExists(int(pid)) {
		return false
	}
	return readState(pid).IsAlive()
}

func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return process.ErrProcessNotOpen
	}

	// Read memory map without holding the lock
	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(pid))
	if err != nil {
		if !procExists(int(pid)) {
			return fmt.Errorf("failed to read memory map: %w", process.ErrProcessGone)
		}
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	// IsValidAddress2 requires the memory map to be sorted by address
	memory_map.Sort(mm)

	p.mu.Lock()
	p.mm = mm
	p.mu.Unlock()
	return nil
}

func (p *LinuxProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.isValidAddressInternal(addr)
}

// inUserSpace rejects the null page region and kernel addresses
func inUserSpace(addr process.ProcessMemoryAddress) bool {
	return addr > 0x10000 && addr <= maxUserAddress
}

// Internal helper function that assumes the mutex is already locked
func (p *LinuxProcess) isValidAddressInternal(addr process.ProcessMemoryAddress) bool {
	if !inUserSpace(addr) {
		return false
	}

	if item := memory_map.IsValidAddress2(uint64(addr), p.mm); item != nil {
		return item.IsReadable()
	}

	return false
}

func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	// Make a copy of the memory map to prevent external modification
	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)

	return result, nil
}

// ModuleBaseAddress finds the module in the cached map. A module loaded after the last
// UpdateMemoryMap is reported as not found; callers refresh the map on their own
// schedule.
func (p *LinuxProcess) ModuleBaseAddress(name string) (process.ProcessMemoryAddress, error) {
	p.mu.Lock()
	pid := p.pid
	base, ok := memory_map.FindModule(name, p.mm)
	p.mu.Unlock()

	if pid == 0 {
		return 0, process.ErrProcessNotOpen
	}
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, process.ErrModuleNotFound)
	}
	return process.ProcessMemoryAddress(base), nil
}
