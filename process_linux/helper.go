//go:build linux

package process_linux

import (
	"fmt"

	"climbsplit/process"
)

// LinuxProcessHelper implements the process.ProcessOpener interface
type LinuxProcessHelper struct {
	Finder process.ProcessFinder
}

// NewHelper creates a new LinuxProcessHelper
func NewHelper() *LinuxProcessHelper {
	return &LinuxProcessHelper{
		Finder: NewProcessFinder(),
	}
}

// OpenProcessByName opens a process by its name (returns the first match)
func (h *LinuxProcessHelper) OpenProcessByName(name string) (process.Process, error) {
	processes, err := h.Finder.FindProcessByName(name)
	if err != nil {
		return nil, err
	}

	if len(processes) == 0 {
		return nil, fmt.Errorf("no process found with name '%s': %w", name, process.ErrProcessNotFound)
	}

	return NewWithPID(processes[0].PID)
}
