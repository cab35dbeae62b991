package process

import (
	"encoding/binary"
	"fmt"
)

// ReadPointer reads a pointer-sized value at addr. A null pointer is reported as
// ErrInvalidPointer so a chain never walks through address zero.
func ReadPointer(mem Memory, addr ProcessMemoryAddress) (ProcessMemoryAddress, error) {
	data, err := mem.ReadMemory(addr, PointerSize)
	if err != nil {
		return 0, err
	}
	if len(data) < int(PointerSize) {
		return 0, fmt.Errorf("short pointer read at %s: %w", addr, ErrInvalidPointer)
	}

	ptr := ProcessMemoryAddress(binary.LittleEndian.Uint64(data))
	if ptr == 0 {
		return 0, fmt.Errorf("null pointer at %s: %w", addr, ErrInvalidPointer)
	}
	return ptr, nil
}

// Deref follows a deep pointer: every offset is added to the current address and the
// pointer stored there is read, including after the last offset. The final pointer is
// returned.
//
//	base -> *(base+o0) = a -> *(a+o1) = b -> ... -> *(y+oN) = result
func Deref(mem Memory, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (ProcessMemoryAddress, error) {
	current := base
	for i, off := range offsets {
		ptr, err := ReadPointer(mem, current.Add(off))
		if err != nil {
			return 0, fmt.Errorf("deref step %d (%s + %s): %w", i, current, off.Hex(), err)
		}
		current = ptr
	}
	return current, nil
}

// PathAddress walks pointer fields at all offsets except the last, which is treated
// as a raw byte offset into the final struct. The address of that field is returned.
// If offsets is empty, base is returned.
func PathAddress(mem Memory, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (ProcessMemoryAddress, error) {
	if len(offsets) == 0 {
		return base, nil
	}

	current, err := Deref(mem, base, offsets[:len(offsets)-1]...)
	if err != nil {
		return 0, err
	}
	return current.Add(offsets[len(offsets)-1]), nil
}

// ReadPath reads a value of the given kind at the end of a pointer path.
// It starts at base, adds the first offset, reads a pointer, adds the next offset, reads a pointer, etc.
// The last offset is added to the final pointer, and then the value is read from that address.
func ReadPath(mem Memory, base ProcessMemoryAddress, kind ValueKind, offsets ...ProcessMemorySize) (Value, error) {
	addr, err := PathAddress(mem, base, offsets...)
	if err != nil {
		return Value{}, err
	}

	val, err := ReadValue(mem, addr, kind)
	if err != nil {
		return Value{}, fmt.Errorf("failed to read final value at %s: %w", addr, err)
	}
	return val, nil
}
