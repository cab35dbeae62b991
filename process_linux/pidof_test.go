//go:build linux

package process_linux

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"climbsplit/process"
)

func TestParseStatState(t *testing.T) {
	t.Parallel()

	assert.Equal(t, process.ProcessSleeping, parseStatState("1234 (bash) S 1 1234 1234 0 -1"))
	assert.Equal(t, process.ProcessZombie, parseStatState("77 (A Difficult (Gam) Z 1 77"))
	assert.Equal(t, process.ProcessState(""), parseStatState("garbage"))
}

func TestMatchesName(t *testing.T) {
	t.Parallel()

	const game = "A Difficult Game About Climbing.exe"

	tests := []struct {
		name string
		info process.ProcessInfo
		want bool
	}{
		{"comm", process.ProcessInfo{Name: "climber"}, false},
		{"exact comm", process.ProcessInfo{Name: game}, true},
		{"exe", process.ProcessInfo{Name: "x", Exe: "/opt/game/" + game}, true},
		{
			"proton argv0",
			process.ProcessInfo{
				Name:    "A Difficult Gam",
				Exe:     "/home/u/.steam/proton/files/bin/wine64-preloader",
				Cmdline: []string{`Z:\home\u\games\A Difficult Game About Climbing\` + game},
			},
			true,
		},
		{
			"launcher passing the game as an argument",
			process.ProcessInfo{
				Name:    "python3",
				Cmdline: []string{"/usr/bin/python3", "proton", "waitforexitandrun", "/games/" + game},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, matchesName(tt.info, game))
		})
	}
}

func TestProcExistsSelf(t *testing.T) {
	t.Parallel()

	assert.True(t, procExists(os.Getpid()))
	assert.True(t, readState(process.ProcessID(os.Getpid())).IsAlive())
}

func TestSelfReadMemory(t *testing.T) {
	t.Parallel()

	proc, err := NewWithPID(process.ProcessID(os.Getpid()))
	if err != nil {
		t.Skipf("cannot open self: %v", err)
	}
	defer proc.Close()

	assert.True(t, proc.IsAlive())

	_, err = proc.ReadMemory(0x10, 8)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
}
