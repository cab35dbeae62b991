//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"unsafe"

	"climbsplit/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv uses the process_vm_readv syscall to read memory from another process
func process_vm_readv(
	pid process.ProcessID,
	remoteAddr process.ProcessMemoryAddress,
	bytesToRead process.ProcessMemorySize,
) ([]byte, error) {
	if bytesToRead == 0 {
		return []byte{}, nil
	}

	localBuf := make([]byte, bytesToRead)

	// Create iovec for local buffer
	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(bytesToRead),
	}

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  int(bytesToRead),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return nil, classifyErrno(errno)
	}

	if int(n) != int(bytesToRead) {
		return localBuf[:n], fmt.Errorf("partial read: %d of %d bytes: %w", n, bytesToRead, process.ErrAddressNotMapped)
	}

	return localBuf, nil
}

// classifyErrno maps the syscall failure onto the process sentinel errors
func classifyErrno(errno unix.Errno) error {
	switch {
	case errors.Is(errno, unix.ESRCH):
		return fmt.Errorf("process_vm_readv: %w", process.ErrProcessGone)
	case errors.Is(errno, unix.EFAULT), errors.Is(errno, unix.EIO):
		return fmt.Errorf("process_vm_readv: %w", process.ErrAddressNotMapped)
	}
	return fmt.Errorf("process_vm_readv failed: %s (errno: %d)", errno.Error(), errno)
}

// ReadMemory reads memory from the process at the specified address. The cached map
// is not consulted: the kernel reports unmapped ranges, and regions mapped after the
// last map refresh stay readable.
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	pid := p.pid
	// Release the lock before the system call
	p.mu.Unlock()

	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}
	if !inUserSpace(addr) {
		return nil, process.ErrAddressNotMapped
	}

	return process_vm_readv(pid, addr, size)
}
