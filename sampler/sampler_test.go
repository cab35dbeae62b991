package sampler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climbsplit/pointer"
	"climbsplit/process"
	"climbsplit/process_blob"
)

const (
	animAddr = process.ProcessMemoryAddress(0x300000000)
	posAddr  = process.ProcessMemoryAddress(0x310000000)
	handAddr = process.ProcessMemoryAddress(0x320000000)
)

var layout = Layout{
	PositionX: FieldRef{Object: "position", Path: []process.ProcessMemorySize{0xE0}},
	PositionY: FieldRef{Object: "position", Path: []process.ProcessMemorySize{0xE4}},
	LeftGrab:  FieldRef{Object: "anim_controller", Path: []process.ProcessMemorySize{0x20, 0x34}},
	RightGrab: FieldRef{Object: "anim_controller", Path: []process.ProcessMemorySize{0x18, 0x34}},
}

func newWorld(t *testing.T) (*process_blob.Image, Objects) {
	t.Helper()

	img := process_blob.NewImage(7, "game.exe")
	img.Map(animAddr, 0x100).Map(posAddr, 0x100).Map(handAddr, 0x100)

	require.NoError(t, img.WriteFLOAT32(posAddr.Add(0xE0), -1.5))
	require.NoError(t, img.WriteFLOAT32(posAddr.Add(0xE4), 31.25))
	require.NoError(t, img.WritePOINTER(animAddr.Add(0x20), handAddr))
	require.NoError(t, img.WriteUINT32(handAddr.Add(0x34), 0x7))

	objects := Objects{
		"anim_controller": {Table: "anim_controller", Address: animAddr},
		"position":        {Table: "position", Address: posAddr},
	}
	return img, objects
}

func TestSampleReadsAllFields(t *testing.T) {
	t.Parallel()

	img, objects := newWorld(t)
	snap := New(img, layout).Sample(objects)

	assert.Equal(t, float32(-1.5), snap.X)
	assert.Equal(t, float32(31.25), snap.Y)
	assert.Equal(t, uint32(7), snap.LeftGrab)
	// right hand pointer is null: neutral default
	assert.Equal(t, uint32(0), snap.RightGrab)
	assert.True(t, snap.Grabbing())
	assert.False(t, snap.HasInput)
	assert.False(t, snap.Listening())
}

func TestSampleMissingObjectYieldsDefaults(t *testing.T) {
	t.Parallel()

	img, objects := newWorld(t)
	delete(objects, "position")

	snap := New(img, layout).Sample(objects)

	assert.True(t, math.IsNaN(float64(snap.X)))
	assert.True(t, math.IsNaN(float64(snap.Y)))
	assert.False(t, snap.HasPosition())
	assert.Equal(t, uint32(7), snap.LeftGrab)
}

func TestSampleUnmappedFieldYieldsDefault(t *testing.T) {
	t.Parallel()

	img, objects := newWorld(t)
	objects["position"] = pointer.ResolvedObject{Table: "position", Address: 0x900000000}

	snap := New(img, layout).Sample(objects)
	assert.False(t, snap.HasPosition())
	assert.Equal(t, uint32(7), snap.LeftGrab)
}

func TestReadCountsMisses(t *testing.T) {
	t.Parallel()

	img, objects := newWorld(t)
	s := New(img, layout)

	// the right hand pointer is null
	_, misses := s.Read(objects)
	assert.Equal(t, 1, misses)

	delete(objects, "position")
	snap, misses := s.Read(objects)
	assert.Equal(t, 3, misses)
	assert.Equal(t, uint32(7), snap.LeftGrab)

	require.NoError(t, img.WritePOINTER(animAddr.Add(0x18), handAddr))
	objects["position"] = pointer.ResolvedObject{Table: "position", Address: posAddr}
	_, misses = s.Read(objects)
	assert.Zero(t, misses)
}

func TestSampleInputFlag(t *testing.T) {
	t.Parallel()

	img, objects := newWorld(t)
	require.NoError(t, img.WriteUINT32(posAddr.Add(0x40), 0x3))

	withInput := layout
	withInput.Input = &FieldRef{Object: "position", Path: []process.ProcessMemorySize{0x40}}

	snap := New(img, withInput).Sample(objects)
	assert.True(t, snap.HasInput)
	assert.True(t, snap.Listening())

	require.NoError(t, img.WriteUINT32(posAddr.Add(0x40), 0x2))
	snap = New(img, withInput).Sample(objects)
	assert.False(t, snap.Listening())
}

func TestLayoutValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, layout.Validate([]string{"anim_controller", "position"}))
	assert.Error(t, layout.Validate([]string{"position"}))

	broken := layout
	broken.PositionX.Path = nil
	assert.Error(t, broken.Validate([]string{"anim_controller", "position"}))
}

func TestEmptySnapshot(t *testing.T) {
	t.Parallel()

	snap := Empty()
	assert.False(t, snap.HasPosition())
	assert.False(t, snap.Grabbing())
	assert.Equal(t, "(NaN, NaN) - (0, 0) - input -", snap.String())
}
