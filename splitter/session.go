// Package splitter runs the poll loop: wait for the game, attach, and drive the
// progress machine once per tick until the game exits.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"climbsplit/metrics"
	"climbsplit/pointer"
	"climbsplit/process"
	"climbsplit/profile"
	"climbsplit/progress"
	"climbsplit/sampler"
	"climbsplit/timer"

	"github.com/Moonlight-Companies/gologger/logger"
)

// TickResult describes what one tick saw and did
type TickResult struct {
	State    timer.State
	Resolved bool
	Snapshot sampler.Snapshot
	Decision progress.Decision
}

// Session is the per-attach state. Everything in it is discarded on detach: cached
// resolutions, zone progress and the previous snapshot.
type Session struct {
	proc      process.Process
	timer     timer.Timer
	metrics   *metrics.Collector
	log       *logger.Logger
	resolvers []*pointer.Resolver
	sampler   *sampler.Sampler
	machine   *progress.Machine

	refreshEvery time.Duration
	lastRefresh  time.Time
	now          func() time.Time
}

func newSession(proc process.Process, p *profile.Profile, t timer.Timer, m *metrics.Collector, log *logger.Logger, refreshEvery time.Duration, now func() time.Time) *Session {
	s := &Session{
		proc:         proc,
		timer:        t,
		metrics:      m,
		log:          log,
		sampler:      sampler.New(proc, p.Layout),
		machine:      progress.NewMachine(p.Zones, p.Rules),
		refreshEvery: refreshEvery,
		lastRefresh:  now(),
		now:          now,
	}
	for _, table := range p.Objects {
		s.resolvers = append(s.resolvers, pointer.NewResolver(proc, table,
			pointer.WithScanHook(m.Rescan),
			pointer.WithHitHook(m.Hit),
		))
	}
	return s
}

// Machine exposes the progress machine of this attach
func (s *Session) Machine() *progress.Machine {
	return s.machine
}

// resolve runs every resolver. The objects are complete only when every table
// resolved this tick.
func (s *Session) resolve() (sampler.Objects, bool) {
	objects := make(sampler.Objects, len(s.resolvers))
	complete := true
	for _, r := range s.resolvers {
		obj, ok := r.Resolve()
		s.metrics.Resolved(r.Table().Name, ok)
		if !ok {
			complete = false
			continue
		}
		objects[obj.Table] = obj
	}
	return objects, complete
}

// refreshMap reloads the memory map while objects or fields are unreadable, so
// regions allocated since attach become visible. It runs at most once per refresh
// interval. Only a vanished process is reported.
func (s *Session) refreshMap() error {
	now := s.now()
	if now.Sub(s.lastRefresh) < s.refreshEvery {
		return nil
	}
	s.lastRefresh = now
	if err := s.proc.UpdateMemoryMap(); err != nil && errors.Is(err, process.ErrProcessGone) {
		return fmt.Errorf("refresh memory map: %w", err)
	}
	return nil
}

func (s *Session) timerState(ctx context.Context) timer.State {
	state, err := s.timer.State(ctx)
	if err != nil {
		s.log.Debugln("timer state unavailable:", err)
		return timer.Unknown
	}
	return state
}

func (s *Session) issue(ctx context.Context, cmd progress.Command) {
	var err error
	switch cmd {
	case progress.CommandStart:
		err = s.timer.Start(ctx)
	case progress.CommandSplit:
		err = s.timer.Split(ctx)
	case progress.CommandReset:
		err = s.timer.Reset(ctx)
	}
	s.metrics.Command(cmd.String(), err)
	if err != nil {
		s.log.Warn("timer "+cmd.String()+" failed: ", err)
	}
}

// Tick is one iteration of the inner loop. Only a fatal-to-attach condition is
// returned as an error; everything else is absorbed and retried next tick.
func (s *Session) Tick(ctx context.Context) (TickResult, error) {
	s.metrics.Tick()
	result := TickResult{State: s.timerState(ctx)}

	objects, complete := s.resolve()
	if !complete {
		s.metrics.Unresolved()
		return result, s.refreshMap()
	}

	result.Resolved = true
	snap, misses := s.sampler.Read(objects)
	result.Snapshot = snap
	s.log.Debugln(result.Snapshot.String(), "-", result.State.String())
	if misses > 0 {
		// a field may run through memory mapped since the last refresh
		if err := s.refreshMap(); err != nil {
			return result, err
		}
	}

	result.Decision = s.machine.Step(result.Snapshot, result.State)
	for _, cmd := range result.Decision.Commands() {
		s.issue(ctx, cmd)
	}
	if !result.Decision.IsZero() {
		s.log.Infoln(result.Decision.String(), "at", result.Snapshot.String(), "zones", s.machine.Progress().Count())
	}
	s.metrics.Zones(s.machine.Progress().Count())

	return result, nil
}
