// Package sampler reads the per-tick game state from resolved objects.
package sampler

import (
	"fmt"
	"math"
)

// Snapshot is one tick's immutable sample. A field whose read failed holds its
// neutral default: NaN for positions, 0 for surface ids, HasInput=false for input.
type Snapshot struct {
	X, Y      float32
	LeftGrab  uint32
	RightGrab uint32
	Input     uint32
	HasInput  bool
}

// Empty is the snapshot of a tick where nothing could be read
func Empty() Snapshot {
	nan := float32(math.NaN())
	return Snapshot{X: nan, Y: nan}
}

// Grabbing reports whether either hand holds a surface
func (s Snapshot) Grabbing() bool {
	return s.LeftGrab != 0 || s.RightGrab != 0
}

// Listening reports the lowest bit of the input state, if it was read
func (s Snapshot) Listening() bool {
	return s.HasInput && s.Input&1 == 1
}

// HasPosition reports whether both coordinates were read
func (s Snapshot) HasPosition() bool {
	return !math.IsNaN(float64(s.X)) && !math.IsNaN(float64(s.Y))
}

func (s Snapshot) String() string {
	input := "-"
	if s.HasInput {
		input = fmt.Sprintf("%#x", s.Input)
	}
	return fmt.Sprintf("(%.2f, %.2f) - (%x, %x) - input %s", s.X, s.Y, s.LeftGrab, s.RightGrab, input)
}
