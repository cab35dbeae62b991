//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unsafe"

	"climbsplit/process"

	"golang.org/x/sys/windows"
)

// listModules maps each loaded module's base address to its full path
func listModules(pid uint32) (map[uint64]string, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, pid)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot(modules): %w", err)
	}
	defer windows.CloseHandle(snapshot)

	modules := make(map[uint64]string)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err = windows.Module32First(snapshot, &entry); err == nil; err = windows.Module32Next(snapshot, &entry) {
		modules[uint64(entry.ModBaseAddr)] = windows.UTF16ToString(entry.ExePath[:])
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, fmt.Errorf("Module32Next: %w", err)
	}
	return modules, nil
}

// WindowsProcessFinder implements the process.ProcessFinder interface
type WindowsProcessFinder struct{}

// NewProcessFinder creates a new WindowsProcessFinder
func NewProcessFinder() process.ProcessFinder {
	return &WindowsProcessFinder{}
}

// FindProcessByName matches the executable file name case-insensitively, lowest PID first
func (f *WindowsProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot(processes): %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var results []process.ProcessInfo

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err = windows.Process32First(snapshot, &entry); err == nil; err = windows.Process32Next(snapshot, &entry) {
		exe := windows.UTF16ToString(entry.ExeFile[:])
		if !strings.EqualFold(exe, name) {
			continue
		}
		results = append(results, process.ProcessInfo{
			PID:  process.ProcessID(entry.ProcessID),
			PPID: process.ProcessID(entry.ParentProcessID),
			Name: exe,
			Exe:  exe,
		})
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, fmt.Errorf("Process32Next: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PID < results[j].PID
	})
	return results, nil
}

// WindowsProcessHelper implements the process.ProcessOpener interface
type WindowsProcessHelper struct {
	Finder process.ProcessFinder
}

// NewHelper creates a new WindowsProcessHelper
func NewHelper() *WindowsProcessHelper {
	return &WindowsProcessHelper{
		Finder: NewProcessFinder(),
	}
}

// OpenProcessByName opens a process by its name (returns the first match)
func (h *WindowsProcessHelper) OpenProcessByName(name string) (process.Process, error) {
	processes, err := h.Finder.FindProcessByName(name)
	if err != nil {
		return nil, err
	}

	if len(processes) == 0 {
		return nil, fmt.Errorf("no process found with name '%s': %w", name, process.ErrProcessNotFound)
	}

	return NewWithPID(processes[0].PID)
}
