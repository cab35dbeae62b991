package timer

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	DefaultLiveSplitAddress = "localhost:16834"
	DefaultDialTimeout      = 2 * time.Second
)

// Dialer opens the connection to the timer
type Dialer func(ctx context.Context, network, address string) (net.Conn, error)

// LiveSplit talks to LiveSplit Server's line protocol over TCP. The connection is
// dialed on first use and dropped after any I/O error; the next command redials.
type LiveSplit struct {
	address string
	timeout time.Duration
	dial    Dialer
	log     *logger.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

type LiveSplitOption func(*LiveSplit)

func WithDialTimeout(d time.Duration) LiveSplitOption {
	return func(l *LiveSplit) {
		l.timeout = d
	}
}

func WithDialer(dial Dialer) LiveSplitOption {
	return func(l *LiveSplit) {
		l.dial = dial
	}
}

func WithLiveSplitLogger(log *logger.Logger) LiveSplitOption {
	return func(l *LiveSplit) {
		l.log = log
	}
}

func NewLiveSplit(address string, options ...LiveSplitOption) *LiveSplit {
	if address == "" {
		address = DefaultLiveSplitAddress
	}
	l := &LiveSplit{
		address: address,
		timeout: DefaultDialTimeout,
	}
	for _, opt := range options {
		opt(l)
	}
	if l.dial == nil {
		d := &net.Dialer{Timeout: l.timeout}
		l.dial = d.DialContext
	}
	if l.log == nil {
		l.log = logger.NewLogger(coloransi.Color(coloransi.Green, coloransi.ColorPurple, "livesplit"))
	}
	return l
}

func (l *LiveSplit) Address() string {
	return l.address
}

func (l *LiveSplit) connect(ctx context.Context) error {
	if l.conn != nil {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	conn, err := l.dial(dialCtx, "tcp", l.address)
	if err != nil {
		return fmt.Errorf("dial livesplit %s: %w", l.address, err)
	}
	l.log.Infoln("connected to", l.address)
	l.conn = conn
	l.reader = bufio.NewReader(conn)
	return nil
}

func (l *LiveSplit) drop() {
	if l.conn == nil {
		return
	}
	l.conn.Close()
	l.conn = nil
	l.reader = nil
}

func (l *LiveSplit) deadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		return dl
	}
	return time.Now().Add(l.timeout)
}

// exchange writes one command line and, if reply is set, reads one line back
func (l *LiveSplit) exchange(ctx context.Context, command string, reply bool) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.connect(ctx); err != nil {
		return "", err
	}
	if err := l.conn.SetDeadline(l.deadline(ctx)); err != nil {
		l.drop()
		return "", err
	}
	if _, err := l.conn.Write([]byte(command + "\r\n")); err != nil {
		l.drop()
		return "", fmt.Errorf("livesplit %s: %w", command, err)
	}
	if !reply {
		return "", nil
	}

	line, err := l.reader.ReadString('\n')
	if err != nil {
		l.drop()
		return "", fmt.Errorf("livesplit %s: %w", command, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (l *LiveSplit) Start(ctx context.Context) error {
	_, err := l.exchange(ctx, "starttimer", false)
	return err
}

func (l *LiveSplit) Split(ctx context.Context) error {
	_, err := l.exchange(ctx, "split", false)
	return err
}

func (l *LiveSplit) Reset(ctx context.Context) error {
	_, err := l.exchange(ctx, "reset", false)
	return err
}

// State asks for the current timer phase. Any failure reports Unknown along with
// the error.
func (l *LiveSplit) State(ctx context.Context) (State, error) {
	line, err := l.exchange(ctx, "getcurrenttimerphase", true)
	if err != nil {
		return Unknown, err
	}
	return ParseState(line)
}

func (l *LiveSplit) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.drop()
	return nil
}
