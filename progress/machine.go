package progress

import (
	"fmt"
	"strings"

	"climbsplit/sampler"
	"climbsplit/timer"
)

// ResetPolicy selects how an aborted run is detected
type ResetPolicy string

const (
	// ResetOnFall resets when the player drops below Rules.ResetBelowY
	ResetOnFall ResetPolicy = "position"
	// ResetOnInput resets when the input-listening flag goes from set to clear
	ResetOnInput ResetPolicy = "input"
	// ResetOnEither applies both
	ResetOnEither ResetPolicy = "both"
)

func (p ResetPolicy) IsValid() bool {
	switch p {
	case ResetOnFall, ResetOnInput, ResetOnEither:
		return true
	}
	return false
}

func (p ResetPolicy) usesPosition() bool {
	return p == ResetOnFall || p == ResetOnEither
}

func (p ResetPolicy) usesInput() bool {
	return p == ResetOnInput || p == ResetOnEither
}

// Rules holds the thresholds shared by every zone table of a game build
type Rules struct {
	StartBelowY float32     `yaml:"start_below_y"`
	ResetBelowY float32     `yaml:"reset_below_y"`
	ResetPolicy ResetPolicy `yaml:"reset_policy"`
}

func (r Rules) Validate() error {
	if !r.ResetPolicy.IsValid() {
		return fmt.Errorf("unknown reset policy %q", r.ResetPolicy)
	}
	if r.ResetBelowY >= r.StartBelowY {
		return fmt.Errorf("reset threshold %g must be below start threshold %g", r.ResetBelowY, r.StartBelowY)
	}
	return nil
}

// Command is a timer command chosen by the machine
type Command int

const (
	CommandStart Command = iota
	CommandSplit
	CommandReset
)

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandSplit:
		return "split"
	case CommandReset:
		return "reset"
	}
	return "unknown"
}

// Decision is the outcome of one tick
type Decision struct {
	Start bool
	Split bool
	Reset bool

	// Zone and ZoneName are set when Split is
	Zone     int
	ZoneName string
}

// Commands lists the commands to issue, in order
func (d Decision) Commands() []Command {
	var cmds []Command
	if d.Start {
		cmds = append(cmds, CommandStart)
	}
	if d.Split {
		cmds = append(cmds, CommandSplit)
	}
	if d.Reset {
		cmds = append(cmds, CommandReset)
	}
	return cmds
}

func (d Decision) IsZero() bool {
	return !d.Start && !d.Split && !d.Reset
}

func (d Decision) String() string {
	if d.IsZero() {
		return "none"
	}
	var parts []string
	for _, cmd := range d.Commands() {
		if cmd == CommandSplit {
			parts = append(parts, fmt.Sprintf("split(%s)", d.ZoneName))
			continue
		}
		parts = append(parts, cmd.String())
	}
	return strings.Join(parts, "+")
}

// Machine is the per-attach progress state: the zone progress of the current run and
// the previous tick's snapshot.
type Machine struct {
	zones    TransitionTable
	rules    Rules
	progress ZoneProgress

	prev    sampler.Snapshot
	hasPrev bool
}

func NewMachine(zones TransitionTable, rules Rules) *Machine {
	return &Machine{zones: zones, rules: rules}
}

// Progress returns a copy of the current zone progress
func (m *Machine) Progress() ZoneProgress {
	return m.progress
}

// Previous returns the snapshot the next Step will compare against
func (m *Machine) Previous() (sampler.Snapshot, bool) {
	return m.prev, m.hasPrev
}

// NextZone returns the first zone not reached yet in this run
func (m *Machine) NextZone() (Zone, bool) {
	i, ok := m.progress.Next(len(m.zones))
	if !ok {
		return Zone{}, false
	}
	return m.zones[i], true
}

// MarkZone credits a zone by index without splitting
func (m *Machine) MarkZone(i int) {
	m.progress.Mark(i)
}

// ShouldStart is edge-triggered: neither hand held anything in old, at least one
// does in cur, and the player is still near the bottom of the level.
func (m *Machine) ShouldStart(old, cur sampler.Snapshot) bool {
	return !old.Grabbing() && cur.Grabbing() && cur.Y < m.rules.StartBelowY
}

// ShouldSplit credits the first zone, in table order, that is not reached yet and
// whose predicate holds. At most one zone is credited per call.
func (m *Machine) ShouldSplit(cur sampler.Snapshot) (int, bool) {
	for i, zone := range m.zones {
		if m.progress.Has(i) {
			continue
		}
		if zone.Enter.Matches(cur) {
			m.progress.Mark(i)
			return i, true
		}
	}
	return 0, false
}

// ShouldReset reports an aborted run under the configured policy
func (m *Machine) ShouldReset(old, cur sampler.Snapshot) bool {
	if m.rules.ResetPolicy.usesPosition() && cur.Y < m.rules.ResetBelowY {
		return true
	}
	if m.rules.ResetPolicy.usesInput() && old.HasInput && cur.HasInput && old.Listening() && !cur.Listening() {
		return true
	}
	return false
}

// Step evaluates one tick against the timer state observed at the start of the tick.
// The zone progress is cleared exactly when a start or a reset is decided.
func (m *Machine) Step(cur sampler.Snapshot, state timer.State) Decision {
	old := cur
	if m.hasPrev {
		old = m.prev
	}
	m.prev = cur
	m.hasPrev = true

	var d Decision

	if state.CanReset() && m.ShouldReset(old, cur) {
		d.Reset = true
		m.progress.Reset()
		return d
	}

	if state.CanStart() && m.ShouldStart(old, cur) {
		d.Start = true
		m.progress.Reset()
	}

	if state.CanSplit() {
		if zone, ok := m.ShouldSplit(cur); ok {
			d.Split = true
			d.Zone = zone
			d.ZoneName = m.zones[zone].Name
		}
	}

	return d
}
