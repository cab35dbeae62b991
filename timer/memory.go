package timer

import (
	"context"
	"sync"

	"github.com/Moonlight-Companies/gologger/logger"
)

// Memory is a timer kept entirely in process. It follows LiveSplit's phase rules:
// commands in an incompatible phase are ignored. With a segment count set, the last
// split ends the run.
type Memory struct {
	mu       sync.Mutex
	state    State
	segments int
	splits   int
	commands []string
	stateErr error
	log      *logger.Logger
}

func NewMemory(segments int) *Memory {
	return &Memory{state: NotRunning, segments: segments}
}

// Logged makes every accepted command show up in log
func (m *Memory) Logged(log *logger.Logger) *Memory {
	m.log = log
	return m
}

func (m *Memory) record(command string) {
	m.commands = append(m.commands, command)
	if m.log != nil {
		m.log.Infoln("timer", command, "->", m.state.String(), "splits", m.splits)
	}
}

func (m *Memory) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == NotRunning {
		m.state = Running
		m.splits = 0
	}
	m.record("start")
	return nil
}

func (m *Memory) Split(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Running {
		m.splits++
		if m.segments > 0 && m.splits >= m.segments {
			m.state = Ended
		}
	}
	m.record("split")
	return nil
}

func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = NotRunning
	m.splits = 0
	m.record("reset")
	return nil
}

func (m *Memory) State(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stateErr != nil {
		return Unknown, m.stateErr
	}
	return m.state, nil
}

func (m *Memory) Close() error {
	return nil
}

// SetState forces the phase, as a runner pausing or ending the run by hand would
func (m *Memory) SetState(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// FailState makes State report err until cleared with nil
func (m *Memory) FailState(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateErr = err
}

// Commands returns every command received, in order
func (m *Memory) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

func (m *Memory) Splits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.splits
}
