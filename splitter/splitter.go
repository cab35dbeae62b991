package splitter

import (
	"context"
	"errors"
	"time"

	"climbsplit/metrics"
	"climbsplit/process"
	"climbsplit/profile"
	"climbsplit/timer"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	DefaultTickRate           = 120
	DefaultAttachInterval     = time.Second
	DefaultMapRefreshInterval = time.Second
)

// Splitter is the outer attach loop
type Splitter struct {
	profile *profile.Profile
	opener  process.ProcessOpener
	timer   timer.Timer
	metrics *metrics.Collector
	log     *logger.Logger

	tickInterval       time.Duration
	attachInterval     time.Duration
	mapRefreshInterval time.Duration
	now                func() time.Time

	onSession func(*Session)
}

type Option func(*Splitter)

// WithTickRate sets the number of ticks per second while attached
func WithTickRate(hz int) Option {
	return func(s *Splitter) {
		if hz > 0 {
			s.tickInterval = time.Second / time.Duration(hz)
		}
	}
}

func WithAttachInterval(d time.Duration) Option {
	return func(s *Splitter) {
		s.attachInterval = d
	}
}

func WithMapRefreshInterval(d time.Duration) Option {
	return func(s *Splitter) {
		s.mapRefreshInterval = d
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Splitter) {
		s.metrics = m
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Splitter) {
		s.log = log
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Splitter) {
		s.now = now
	}
}

// WithSessionHook is called with every new session right after attach
func WithSessionHook(fn func(*Session)) Option {
	return func(s *Splitter) {
		s.onSession = fn
	}
}

func New(p *profile.Profile, opener process.ProcessOpener, t timer.Timer, options ...Option) *Splitter {
	s := &Splitter{
		profile:            p,
		opener:             opener,
		timer:              t,
		tickInterval:       time.Second / DefaultTickRate,
		attachInterval:     DefaultAttachInterval,
		mapRefreshInterval: DefaultMapRefreshInterval,
		now:                time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewLogger(coloransi.Color(coloransi.Yellow, coloransi.ColorPurple, "splitter"))
	}
	return s
}

// Run waits for the game, drives a session until the game exits, and starts over.
// It returns only when ctx is done.
func (s *Splitter) Run(ctx context.Context) error {
	s.log.Infoln("profile", s.profile.Name, "waiting for", s.profile.ProcessName)
	for {
		proc, err := s.waitForAttach(ctx)
		if err != nil {
			return err
		}

		s.log.Infoln("attached to", s.profile.ProcessName, "pid", proc.GetPID())
		s.metrics.Attached()

		err = s.runSession(ctx, proc)
		proc.Close()
		s.metrics.Detached()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.log.Infoln("detached:", err)
		} else {
			s.log.Infoln("detached: process exited")
		}
	}
}

// waitForAttach polls for the process until it is found or ctx is done
func (s *Splitter) waitForAttach(ctx context.Context) (process.Process, error) {
	ticker := time.NewTicker(s.attachInterval)
	defer ticker.Stop()

	for {
		proc, err := s.opener.OpenProcessByName(s.profile.ProcessName)
		if err == nil {
			return proc, nil
		}
		if !errors.Is(err, process.ErrProcessNotFound) {
			s.log.Warn("attach failed: ", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// runSession ticks until the process exits, a fatal error occurs or ctx is done
func (s *Splitter) runSession(ctx context.Context, proc process.Process) error {
	session := newSession(proc, s.profile, s.timer, s.metrics, s.log, s.mapRefreshInterval, s.now)
	if s.onSession != nil {
		s.onSession(session)
	}

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		if _, err := session.Tick(ctx); err != nil {
			return err
		}
		if !proc.IsAlive() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
