//go:build linux

package process_linux

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"climbsplit/process"
)

func procExists(pid int) bool {
	// Fast path: stat /proc/<pid>
	_, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid)))
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	// For transient errors (permission, EIO): fall back to kill 0
	return syscall.Kill(pid, 0) == nil
}

// readState returns the state letter from /proc/<pid>/stat, or "" when unreadable
func readState(pid process.ProcessID) process.ProcessState {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(int(pid)), "stat"))
	if err != nil {
		return ""
	}
	return parseStatState(string(data))
}

// parseStatState extracts field 3 of /proc/<pid>/stat. The comm field may itself
// contain spaces and parentheses, so the state is found after the last ')'.
func parseStatState(stat string) process.ProcessState {
	end := strings.LastIndexByte(stat, ')')
	if end < 0 || end+2 >= len(stat) {
		return ""
	}
	fields := strings.Fields(stat[end+1:])
	if len(fields) == 0 {
		return ""
	}
	return process.ProcessState(fields[0][:1])
}

func bytesTrimNL(b []byte) []byte {
	// Trim trailing '\n' if present (comm has a newline).
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}

// baseName handles both native and wine ("Z:\games\Foo.exe") paths
func baseName(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return filepath.Base(path)
}

// matchesName reports whether a process is the one called name: its comm, its
// executable, or the base name of argv[0]. The last case covers wine/Proton-hosted
// Windows games, whose exe is the wine loader and whose comm is truncated to 15 bytes.
func matchesName(info process.ProcessInfo, name string) bool {
	if info.Name == name {
		return true
	}
	if info.Exe != "" && filepath.Base(info.Exe) == name {
		return true
	}
	if len(info.Cmdline) > 0 && strings.EqualFold(baseName(info.Cmdline[0]), name) {
		return true
	}
	return false
}
