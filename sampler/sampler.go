package sampler

import (
	"fmt"

	"climbsplit/pointer"
	"climbsplit/process"
)

// FieldRef locates one field relative to a resolved object, with read-path semantics
type FieldRef struct {
	Object string                      `yaml:"object"`
	Path   []process.ProcessMemorySize `yaml:"path"`
}

// Layout says where each snapshot field lives. Input is optional.
type Layout struct {
	PositionX FieldRef  `yaml:"position_x"`
	PositionY FieldRef  `yaml:"position_y"`
	LeftGrab  FieldRef  `yaml:"left_grab"`
	RightGrab FieldRef  `yaml:"right_grab"`
	Input     *FieldRef `yaml:"input,omitempty"`
}

// Fields lists the layout's field refs by name
func (l Layout) Fields() map[string]FieldRef {
	fields := map[string]FieldRef{
		"position_x": l.PositionX,
		"position_y": l.PositionY,
		"left_grab":  l.LeftGrab,
		"right_grab": l.RightGrab,
	}
	if l.Input != nil {
		fields["input"] = *l.Input
	}
	return fields
}

// Validate checks that every field names one of the known objects
func (l Layout) Validate(objects []string) error {
	known := make(map[string]bool, len(objects))
	for _, name := range objects {
		known[name] = true
	}
	for name, ref := range l.Fields() {
		if !known[ref.Object] {
			return fmt.Errorf("field %s: unknown object %q", name, ref.Object)
		}
		if len(ref.Path) == 0 {
			return fmt.Errorf("field %s: empty path", name)
		}
	}
	return nil
}

// Objects is the set of objects resolved this tick, by table name
type Objects map[string]pointer.ResolvedObject

// Sampler reads a Snapshot out of resolved objects. It only reads.
type Sampler struct {
	mem    process.Memory
	layout Layout
}

func New(mem process.Memory, layout Layout) *Sampler {
	return &Sampler{mem: mem, layout: layout}
}

func (s *Sampler) read(objects Objects, ref FieldRef, kind process.ValueKind) (process.Value, bool) {
	obj, ok := objects[ref.Object]
	if !ok {
		return process.Value{}, false
	}
	val, err := process.ReadPath(s.mem, obj.Address, kind, ref.Path...)
	if err != nil {
		return process.Value{}, false
	}
	return val, true
}

// Sample reads every field independently. A failed or missing field gets its
// neutral default and the rest of the snapshot is still filled in.
func (s *Sampler) Sample(objects Objects) Snapshot {
	snap, _ := s.Read(objects)
	return snap
}

// Read is Sample that also counts the fields whose read failed
func (s *Sampler) Read(objects Objects) (Snapshot, int) {
	snap := Empty()
	misses := 0

	readFloat := func(ref FieldRef, dst *float32) {
		if val, ok := s.read(objects, ref, process.KindFLOAT32); ok {
			*dst = val.Float32()
			return
		}
		misses++
	}
	readUint := func(ref FieldRef, dst *uint32) {
		if val, ok := s.read(objects, ref, process.KindUINT32); ok {
			*dst = val.Uint32()
			return
		}
		misses++
	}

	readFloat(s.layout.PositionX, &snap.X)
	readFloat(s.layout.PositionY, &snap.Y)
	readUint(s.layout.LeftGrab, &snap.LeftGrab)
	readUint(s.layout.RightGrab, &snap.RightGrab)

	if s.layout.Input != nil {
		if val, ok := s.read(objects, *s.layout.Input, process.KindUINT32); ok {
			snap.Input = val.Uint32()
			snap.HasInput = true
		} else {
			misses++
		}
	}
	return snap, misses
}
