package splitter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climbsplit/metrics"
	"climbsplit/process"
	"climbsplit/process/memory_map"
	"climbsplit/process_blob"
	"climbsplit/profile"
	"climbsplit/timer"
)

const (
	unityBase = process.ProcessMemoryAddress(0x140000000)
	heapStart = process.ProcessMemoryAddress(0x200000000)
	animObj   = process.ProcessMemoryAddress(0x300000000)
	posObj    = process.ProcessMemoryAddress(0x310000000)
	strength  = process.ProcessMemoryAddress(0x320000000)
	leftHand  = process.ProcessMemoryAddress(0x330000000)
	rightHand = process.ProcessMemoryAddress(0x340000000)
	posObj2   = process.ProcessMemoryAddress(0x350000000)
	newHand   = process.ProcessMemoryAddress(0x360000000)
)

// game lays out the object graph the built-in profile expects
type game struct {
	t        *testing.T
	img      *process_blob.Image
	next     process.ProcessMemoryAddress
	pos      process.ProcessMemoryAddress
	leftSlot process.ProcessMemoryAddress
}

func newGame(t *testing.T, p *profile.Profile, withPosition bool) *game {
	t.Helper()
	g := &game{
		t:    t,
		img:  process_blob.NewImage(4242, p.ProcessName).AddModule("UnityPlayer.dll", unityBase, 0x2000000),
		next: heapStart,
	}

	anim, ok := p.Table("anim_controller")
	require.True(t, ok)
	g.img.Map(animObj, 0x100)
	g.chain(unityBase, animObj, anim.Candidates[0].Chain...)

	// left strength sentinel, behind four pointers
	g.img.Map(strength, 0x100)
	require.NoError(t, g.img.WriteFLOAT32(strength.Add(0xC0), 75))
	firstHop := g.next
	g.chain(animObj, strength, 0x20, 0x18, 0x18, 0x18)

	// hands share the first hop of the strength path on the left side
	g.img.Map(leftHand, 0x100)
	g.leftSlot = firstHop.Add(0xA0)
	require.NoError(t, g.img.WritePOINTER(g.leftSlot, leftHand))
	g.img.Map(rightHand, 0x100)
	g.chain(animObj, rightHand, 0x18, 0xA0)

	if withPosition {
		g.placePosition(p, 0, posObj)
	}
	return g
}

func (g *game) chain(from, target process.ProcessMemoryAddress, offsets ...process.ProcessMemorySize) {
	g.t.Helper()
	next, err := g.img.Chain(from, g.next, 0x400, target, offsets...)
	require.NoError(g.t, err)
	g.next = next
}

func (g *game) placePosition(p *profile.Profile, candidate int, at process.ProcessMemoryAddress) {
	g.t.Helper()
	table, ok := p.Table("position")
	require.True(g.t, ok)
	check := table.CheckFor(candidate)

	g.img.Map(at, 0x200)
	require.NoError(g.t, g.img.WriteFLOAT32(at.Add(check.Path[0]), -0.5))
	g.chain(unityBase, at, table.Candidates[candidate].Chain...)
	g.pos = at
}

func (g *game) move(x, y float32) {
	g.t.Helper()
	require.NoError(g.t, g.img.WriteFLOAT32(g.pos.Add(0xE0), x))
	require.NoError(g.t, g.img.WriteFLOAT32(g.pos.Add(0xE4), y))
}

func (g *game) grab(left, right uint32) {
	g.t.Helper()
	require.NoError(g.t, g.img.WriteUINT32(leftHand.Add(0x34), left))
	require.NoError(g.t, g.img.WriteUINT32(rightHand.Add(0x34), right))
}

// staleMap serves reads only from regions present in its last map snapshot, the way
// a backend that validates addresses against a cached map behaves
type staleMap struct {
	*process_blob.Image
	mm []memory_map.MemoryMapItem
}

func newStaleMap(t *testing.T, img *process_blob.Image) *staleMap {
	t.Helper()
	sm := &staleMap{Image: img}
	require.NoError(t, sm.UpdateMemoryMap())
	return sm
}

func (sm *staleMap) UpdateMemoryMap() error {
	mm, err := sm.Image.GetMemoryMap()
	if err != nil {
		return err
	}
	memory_map.Sort(mm)
	sm.mm = mm
	return nil
}

func (sm *staleMap) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if !memory_map.ContainsRange(uint64(addr), uint(size), sm.mm) {
		return nil, process.ErrAddressNotMapped
	}
	return sm.Image.ReadMemory(addr, size)
}

func testLogger() *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.Yellow, coloransi.ColorPurple, "splitter-test"))
}

// counter sums every series of a counter family
func counter(t *testing.T, m *metrics.Collector, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			sum += metric.GetCounter().GetValue()
		}
	}
	return sum
}

func loadProfile(t *testing.T) *profile.Profile {
	t.Helper()
	p, err := profile.Load("current")
	require.NoError(t, err)
	return p
}

func TestSessionFullRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := loadProfile(t)
	g := newGame(t, p, true)
	tm := timer.NewMemory(0)
	m := metrics.New()
	s := newSession(g.img, p, tm, m, testLogger(), time.Second, time.Now)

	g.move(0.2, 0.5)
	res, err := s.Tick(ctx)
	require.NoError(t, err)
	require.True(t, res.Resolved)
	assert.Equal(t, float32(0.5), res.Snapshot.Y)
	assert.True(t, res.Decision.IsZero())

	g.grab(7, 0)
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, res.Decision.Start)
	assert.Equal(t, uint32(7), res.Snapshot.LeftGrab)

	for _, pos := range [][2]float32{{1, 10}, {1, 32}, {1, 40}, {-1, 56}, {-1, 57}} {
		g.move(pos[0], pos[1])
		_, err := s.Tick(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, s.Machine().Progress().Count())
	assert.Equal(t, 2, tm.Splits())

	g.move(0, -5)
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, res.Decision.Reset)
	assert.True(t, s.Machine().Progress().IsEmpty())

	// still below the level, but the timer already stopped
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, res.Decision.IsZero())
	assert.Equal(t, timer.NotRunning, res.State)

	assert.Equal(t, []string{"start", "split", "split", "reset"}, tm.Commands())
	assert.Equal(t, 4.0, counter(t, m, "climbsplit_timer_commands_total"))
}

func TestSessionSkipsWhileUnresolved(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := loadProfile(t)
	g := newGame(t, p, false)
	tm := timer.NewMemory(0)
	tm.SetState(timer.Running)
	s := newSession(g.img, p, tm, nil, testLogger(), time.Second, time.Now)

	for i := 0; i < 3; i++ {
		res, err := s.Tick(ctx)
		require.NoError(t, err)
		assert.False(t, res.Resolved)
	}
	assert.Empty(t, tm.Commands())
	_, seen := s.Machine().Previous()
	assert.False(t, seen)

	// the player loads into the level
	g.placePosition(p, 0, posObj)
	g.move(0, 40)
	res, err := s.Tick(ctx)
	require.NoError(t, err)
	require.True(t, res.Resolved)
	assert.True(t, res.Decision.Split)
	assert.Equal(t, "Mountain", res.Decision.ZoneName)
}

func TestSessionFollowsMovedObject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := loadProfile(t)
	g := newGame(t, p, true)
	tm := timer.NewMemory(0)
	tm.SetState(timer.Running)
	s := newSession(g.img, p, tm, nil, testLogger(), time.Second, time.Now)

	g.move(0, 10)
	_, err := s.Tick(ctx)
	require.NoError(t, err)

	// scene reload: the position object now sits behind a biased chain
	g.img.Unmap(posObj)
	g.placePosition(p, 6, posObj2)
	g.move(0, 35)

	res, err := s.Tick(ctx)
	require.NoError(t, err)
	require.True(t, res.Resolved)
	assert.Equal(t, float32(35), res.Snapshot.Y)
	assert.True(t, res.Decision.Split)
}

func TestSessionSeesMemoryMappedAfterAttach(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := loadProfile(t)
	g := newGame(t, p, true)
	sm := newStaleMap(t, g.img)
	now := time.Unix(1000, 0)
	tm := timer.NewMemory(0)
	s := newSession(sm, p, tm, nil, testLogger(), time.Second, func() time.Time { return now })

	g.move(0, 0.5)
	res, err := s.Tick(ctx)
	require.NoError(t, err)
	require.True(t, res.Resolved)
	assert.True(t, res.Decision.IsZero())

	// the left hand is reallocated into a region the cached map has never seen
	g.img.Map(newHand, 0x100)
	require.NoError(t, g.img.WriteUINT32(newHand.Add(0x34), 7))
	require.NoError(t, g.img.WritePOINTER(g.leftSlot, newHand))

	// refresh interval not elapsed yet
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	require.True(t, res.Resolved)
	assert.Equal(t, uint32(0), res.Snapshot.LeftGrab)

	now = now.Add(2 * time.Second)
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), res.Snapshot.LeftGrab)
	assert.Equal(t, now, s.lastRefresh)

	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), res.Snapshot.LeftGrab)
	assert.True(t, res.Decision.Start)
	assert.Equal(t, []string{"start"}, tm.Commands())
}

func TestSessionTimerUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := loadProfile(t)
	g := newGame(t, p, true)
	tm := timer.NewMemory(0)
	tm.FailState(errors.New("connection refused"))
	s := newSession(g.img, p, tm, nil, testLogger(), time.Second, time.Now)

	g.move(0, 1)
	res, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, timer.Unknown, res.State)

	// Unknown allows a start
	g.grab(0, 3)
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, res.Decision.Start)
}

func TestSessionMapRefreshThrottle(t *testing.T) {
	t.Parallel()

	p := loadProfile(t)
	g := newGame(t, p, false)
	now := time.Unix(1000, 0)
	s := newSession(g.img, p, timer.NewMemory(0), nil, testLogger(), time.Second, func() time.Time { return now })

	require.NoError(t, s.refreshMap())
	assert.Equal(t, time.Unix(1000, 0), s.lastRefresh)

	now = now.Add(2 * time.Second)
	require.NoError(t, s.refreshMap())
	assert.Equal(t, now, s.lastRefresh)
}

func TestRunReattaches(t *testing.T) {
	t.Parallel()

	p := loadProfile(t)
	first := newGame(t, p, true)
	first.img.Kill()
	second := newGame(t, p, true)

	opener := process_blob.NewOpener(first.img, second.img)
	tm := timer.NewMemory(0)
	m := metrics.New()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sessions := 0
	s := New(p, opener, tm,
		WithTickRate(1000),
		WithAttachInterval(time.Millisecond),
		WithMetrics(m),
		WithLogger(testLogger()),
		WithSessionHook(func(*Session) {
			sessions++
			if sessions == 2 {
				cancel()
			}
		}),
	)

	err := s.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, sessions)
	assert.Equal(t, 2, opener.Opened)
	assert.Equal(t, 2.0, counter(t, m, "climbsplit_attaches_total"))

	// detaching closes the handle
	_, err = first.img.ReadMemory(unityBase, 4)
	assert.True(t, errors.Is(err, process.ErrProcessNotOpen))
}

func TestRunWaitsForProcess(t *testing.T) {
	t.Parallel()

	p := loadProfile(t)
	opener := process_blob.NewOpener()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	s := New(p, opener, timer.NewMemory(0), WithAttachInterval(5*time.Millisecond), WithLogger(testLogger()))
	err := s.Run(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 0, opener.Opened)
}
