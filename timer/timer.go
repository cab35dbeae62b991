// Package timer is the boundary to the run timer that receives start, split and
// reset commands.
package timer

import (
	"context"
	"fmt"
	"strings"
)

// State is the timer phase as reported by the timer itself
type State int

const (
	Unknown State = iota
	NotRunning
	Running
	Paused
	Ended
)

func (s State) String() string {
	switch s {
	case NotRunning:
		return "NotRunning"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Ended:
		return "Ended"
	}
	return "Unknown"
}

// ParseState reads the phase names LiveSplit uses
func ParseState(s string) (State, error) {
	switch strings.TrimSpace(s) {
	case "NotRunning":
		return NotRunning, nil
	case "Running":
		return Running, nil
	case "Paused":
		return Paused, nil
	case "Ended":
		return Ended, nil
	case "Unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown timer phase %q", s)
}

// CanStart reports whether a start command is compatible with this state
func (s State) CanStart() bool {
	return s == NotRunning || s == Ended || s == Unknown
}

// CanSplit reports whether a split command is compatible with this state
func (s State) CanSplit() bool {
	return s == Running
}

// CanReset reports whether a reset command would do anything
func (s State) CanReset() bool {
	return s != NotRunning
}

// Timer is the run timer. Commands sent in an incompatible state are no-ops on the
// timer side; callers gate them anyway.
type Timer interface {
	Start(ctx context.Context) error
	Split(ctx context.Context) error
	Reset(ctx context.Context) error
	State(ctx context.Context) (State, error)
	Close() error
}
