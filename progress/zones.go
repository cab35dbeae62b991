// Package progress turns per-tick snapshots into start, split and reset decisions.
package progress

import (
	"fmt"
	"math/bits"
	"strings"

	"climbsplit/sampler"
)

// MaxZones is the capacity of ZoneProgress
const MaxZones = 64

// Bound is an open interval on one axis. A nil side is unbounded.
type Bound struct {
	Above *float32 `yaml:"above,omitempty"`
	Below *float32 `yaml:"below,omitempty"`
}

// Contains reports whether v lies strictly inside the bound. NaN is never inside a
// bounded side.
func (b Bound) Contains(v float32) bool {
	if b.Above != nil && !(v > *b.Above) {
		return false
	}
	if b.Below != nil && !(v < *b.Below) {
		return false
	}
	return true
}

func (b Bound) IsZero() bool {
	return b.Above == nil && b.Below == nil
}

func (b Bound) describe(axis string) string {
	switch {
	case b.Above != nil && b.Below != nil:
		return fmt.Sprintf("%g < %s < %g", *b.Above, axis, *b.Below)
	case b.Above != nil:
		return fmt.Sprintf("%s > %g", axis, *b.Above)
	case b.Below != nil:
		return fmt.Sprintf("%s < %g", axis, *b.Below)
	}
	return ""
}

// Predicate is an axis-aligned region of the player's (x, y) position
type Predicate struct {
	X Bound `yaml:"x,omitempty"`
	Y Bound `yaml:"y,omitempty"`
}

func (p Predicate) Matches(snap sampler.Snapshot) bool {
	return p.X.Contains(snap.X) && p.Y.Contains(snap.Y)
}

func (p Predicate) String() string {
	var parts []string
	if s := p.Y.describe("y"); s != "" {
		parts = append(parts, s)
	}
	if s := p.X.describe("x"); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "always"
	}
	return strings.Join(parts, " && ")
}

// Zone is one level segment; entering it is one split
type Zone struct {
	Name  string    `yaml:"name"`
	Enter Predicate `yaml:"enter"`
}

// TransitionTable is the ordered zone list. Order encodes level traversal order and
// is the tie-break when several predicates hold in the same tick.
type TransitionTable []Zone

func (t TransitionTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("transition table is empty")
	}
	if len(t) > MaxZones {
		return fmt.Errorf("transition table has %d zones, at most %d supported", len(t), MaxZones)
	}
	seen := make(map[string]bool, len(t))
	for i, zone := range t {
		if zone.Name == "" {
			return fmt.Errorf("zone %d has no name", i)
		}
		if seen[zone.Name] {
			return fmt.Errorf("duplicate zone %q", zone.Name)
		}
		if zone.Enter.X.IsZero() && zone.Enter.Y.IsZero() {
			return fmt.Errorf("zone %q has no bounds", zone.Name)
		}
		seen[zone.Name] = true
	}
	return nil
}

// ZoneProgress records which zones have been credited in the current run. Bits are
// only ever set during a run; Reset clears all of them at once.
type ZoneProgress struct {
	mask uint64
}

func (z ZoneProgress) Has(zone int) bool {
	return zone >= 0 && zone < MaxZones && z.mask&(1<<uint(zone)) != 0
}

// Mark credits a zone
func (z *ZoneProgress) Mark(zone int) {
	if zone >= 0 && zone < MaxZones {
		z.mask |= 1 << uint(zone)
	}
}

// Reset empties the set; only run start and run reset call it
func (z *ZoneProgress) Reset() {
	z.mask = 0
}

func (z ZoneProgress) IsEmpty() bool {
	return z.mask == 0
}

// Count returns how many zones have been reached
func (z ZoneProgress) Count() int {
	return bits.OnesCount64(z.mask)
}

// Next returns the first zone of a table of n zones not yet reached
func (z ZoneProgress) Next(n int) (int, bool) {
	for i := 0; i < n && i < MaxZones; i++ {
		if !z.Has(i) {
			return i, true
		}
	}
	return 0, false
}

// Mask exposes the raw bits, lowest bit = first zone
func (z ZoneProgress) Mask() uint64 {
	return z.mask
}
