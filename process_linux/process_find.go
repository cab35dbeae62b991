//go:build linux

package process_linux

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"climbsplit/process"
)

// LinuxProcessFinder implements the process.ProcessFinder interface
type LinuxProcessFinder struct{}

// NewProcessFinder creates a new LinuxProcessFinder
func NewProcessFinder() process.ProcessFinder {
	return &LinuxProcessFinder{}
}

// FindProcessByName finds live processes called name, lowest PID first
func (f *LinuxProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("empty name")
	}

	// List all directories in /proc that are numbers (PIDs)
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("failed to read /proc: %w", err)
	}

	selfPID := os.Getpid()
	var results []process.ProcessInfo

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 || pid == selfPID {
			continue
		}

		info, err := getProcessInfo(process.ProcessID(pid))
		if err != nil {
			// Process may have terminated while we were reading
			continue
		}

		if info.State.IsAlive() && matchesName(*info, name) {
			results = append(results, *info)
		}
	}

	// pick the lowest PID first for determinism
	sort.Slice(results, func(i, j int) bool {
		return results[i].PID < results[j].PID
	})

	return results, nil
}

// Helper function to get process information
func getProcessInfo(pid process.ProcessID) (*process.ProcessInfo, error) {
	procPath := fmt.Sprintf("/proc/%d", pid)

	comm, err := os.ReadFile(filepath.Join(procPath, "comm"))
	if err != nil {
		return nil, fmt.Errorf("failed to read process name: %w", err)
	}

	// Resolve /proc/<pid>/exe symlink; may fail if zombie or permission
	exe, _ := os.Readlink(filepath.Join(procPath, "exe"))

	cmdlineBytes, err := os.ReadFile(filepath.Join(procPath, "cmdline"))
	if err != nil {
		return nil, fmt.Errorf("failed to read process cmdline: %w", err)
	}

	var cmdline []string
	cmdlineBytes = bytes.TrimRight(cmdlineBytes, "\x00")
	if len(cmdlineBytes) > 0 {
		for _, arg := range bytes.Split(cmdlineBytes, []byte{0}) {
			cmdline = append(cmdline, string(arg))
		}
	}

	return &process.ProcessInfo{
		PID:     pid,
		Name:    string(bytesTrimNL(comm)),
		Exe:     exe,
		Cmdline: cmdline,
		State:   readState(pid),
	}, nil
}
