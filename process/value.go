package process

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind names the width, signedness and float-ness of a scalar read.
type ValueKind string

const (
	KindUINT8   ValueKind = "u8"
	KindUINT16  ValueKind = "u16"
	KindUINT32  ValueKind = "u32"
	KindUINT64  ValueKind = "u64"
	KindINT8    ValueKind = "i8"
	KindINT16   ValueKind = "i16"
	KindINT32   ValueKind = "i32"
	KindINT64   ValueKind = "i64"
	KindFLOAT32 ValueKind = "f32"
	KindFLOAT64 ValueKind = "f64"
)

// Size returns the number of bytes a value of this kind occupies, or 0 for an unknown kind.
func (k ValueKind) Size() ProcessMemorySize {
	switch k {
	case KindUINT8, KindINT8:
		return 1
	case KindUINT16, KindINT16:
		return 2
	case KindUINT32, KindINT32, KindFLOAT32:
		return 4
	case KindUINT64, KindINT64, KindFLOAT64:
		return 8
	}
	return 0
}

func (k ValueKind) IsValid() bool {
	return k.Size() != 0
}

func (k ValueKind) IsFloat() bool {
	return k == KindFLOAT32 || k == KindFLOAT64
}

// Value is a raw little-endian scalar read from the target. Two values are equal only
// when their kinds and bit patterns match exactly: -0.5 never matches -0.49999997 and
// 0.0 never matches -0.0.
type Value struct {
	Kind ValueKind
	Bits uint64
}

// Number is a scalar as written in an offset table. It keeps the text so integer
// kinds are parsed with all 64 bits instead of passing through a float64.
type Number string

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	*n = Number(node.Value)
	return nil
}

func (n Number) MarshalYAML() (interface{}, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: string(n)}, nil
}

// ParseValue converts a number into a Value of the given kind. Integers accept the
// 0x, 0o and 0b prefixes and must fit the kind; floats are narrowed to the kind.
func ParseValue(kind ValueKind, n Number) (Value, error) {
	text := strings.TrimSpace(string(n))
	bitSize := int(8 * kind.Size())

	switch kind {
	case KindFLOAT32, KindFLOAT64:
		f, err := strconv.ParseFloat(text, bitSize)
		if err != nil {
			return Value{}, fmt.Errorf("%s value %q: %w", kind, text, err)
		}
		if kind == KindFLOAT32 {
			return Float32Value(float32(f)), nil
		}
		return Value{Kind: kind, Bits: math.Float64bits(f)}, nil
	case KindINT8, KindINT16, KindINT32, KindINT64:
		i, err := strconv.ParseInt(text, 0, bitSize)
		if err != nil {
			return Value{}, fmt.Errorf("%s value %q: %w", kind, text, err)
		}
		return Value{Kind: kind, Bits: uint64(i) & mask(kind)}, nil
	case KindUINT8, KindUINT16, KindUINT32, KindUINT64:
		u, err := strconv.ParseUint(text, 0, bitSize)
		if err != nil {
			return Value{}, fmt.Errorf("%s value %q: %w", kind, text, err)
		}
		return Value{Kind: kind, Bits: u}, nil
	}
	return Value{}, fmt.Errorf("unknown kind %q", kind)
}

func Float32Value(f float32) Value {
	return Value{Kind: KindFLOAT32, Bits: uint64(math.Float32bits(f))}
}

func Uint32Value(u uint32) Value {
	return Value{Kind: KindUINT32, Bits: uint64(u)}
}

func mask(kind ValueKind) uint64 {
	size := kind.Size()
	if size >= 8 {
		return math.MaxUint64
	}
	return (uint64(1) << (8 * size)) - 1
}

// Equal reports an exact match of kind and bit pattern.
func (v Value) Equal(other Value) bool {
	return v.Kind == other.Kind && v.Bits == other.Bits
}

func (v Value) Float32() float32 {
	return math.Float32frombits(uint32(v.Bits))
}

func (v Value) Float64() float64 {
	switch v.Kind {
	case KindFLOAT32:
		return float64(v.Float32())
	case KindFLOAT64:
		return math.Float64frombits(v.Bits)
	case KindINT8:
		return float64(int8(v.Bits))
	case KindINT16:
		return float64(int16(v.Bits))
	case KindINT32:
		return float64(int32(v.Bits))
	case KindINT64:
		return float64(int64(v.Bits))
	}
	return float64(v.Bits)
}

func (v Value) Uint32() uint32 {
	return uint32(v.Bits)
}

func (v Value) String() string {
	switch v.Kind {
	case KindFLOAT32, KindFLOAT64:
		return fmt.Sprintf("%s(%g)", v.Kind, v.Float64())
	case KindINT8, KindINT16, KindINT32, KindINT64:
		shift := 64 - 8*uint(v.Kind.Size())
		return fmt.Sprintf("%s(%d)", v.Kind, int64(v.Bits<<shift)>>shift)
	}
	return fmt.Sprintf("%s(%d)", v.Kind, v.Bits)
}

// DecodeValue interprets the leading bytes of data as a value of the given kind.
func DecodeValue(data []byte, kind ValueKind) (Value, error) {
	size := int(kind.Size())
	if size == 0 {
		return Value{}, fmt.Errorf("unknown value kind %q", kind)
	}
	if len(data) < size {
		return Value{}, fmt.Errorf("need %d bytes for %s, have %d", size, kind, len(data))
	}

	var bits uint64
	switch size {
	case 1:
		bits = uint64(data[0])
	case 2:
		bits = uint64(binary.LittleEndian.Uint16(data))
	case 4:
		bits = uint64(binary.LittleEndian.Uint32(data))
	case 8:
		bits = binary.LittleEndian.Uint64(data)
	}
	return Value{Kind: kind, Bits: bits}, nil
}

// ReadValue reads a single value of the given kind from memory
func ReadValue(mem Memory, addr ProcessMemoryAddress, kind ValueKind) (Value, error) {
	size := kind.Size()
	if size == 0 {
		return Value{}, fmt.Errorf("unknown value kind %q", kind)
	}

	data, err := mem.ReadMemory(addr, size)
	if err != nil {
		return Value{}, err
	}
	return DecodeValue(data, kind)
}
