package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"climbsplit/config"
	"climbsplit/pointer"
	"climbsplit/process"
	"climbsplit/process_blob"
	"climbsplit/profile"
	"climbsplit/timer"
)

const (
	unityBase = process.ProcessMemoryAddress(0x140000000)
	playerObj = process.ProcessMemoryAddress(0x300000000)
)

const playerProfile = `
name: player
process_name: game.exe
objects:
  - name: player
    module: UnityPlayer.dll
    check: {path: [0xE8], kind: f32, equals: -0.5}
    candidates:
      - chain: [0x40]
layout:
  position_x: {object: player, path: [0xE0]}
  position_y: {object: player, path: [0xE4]}
  left_grab: {object: player, path: [0x10]}
  right_grab: {object: player, path: [0x14]}
zones:
  - name: Top
    enter: {y: {above: 90}}
rules:
  start_below_y: 2
  reset_below_y: -3
  reset_policy: position
`

func newPlayer(t *testing.T, sentinel bool) (*process_blob.Image, *profile.Profile) {
	t.Helper()

	p, err := profile.Parse([]byte(playerProfile))
	require.NoError(t, err)

	img := process_blob.NewImage(1, "game.exe").AddModule("UnityPlayer.dll", unityBase, 0x1000)
	img.Map(playerObj, 0x100)
	require.NoError(t, img.WritePOINTER(unityBase.Add(0x40), playerObj))
	require.NoError(t, img.WriteFLOAT32(playerObj.Add(0xE0), 5))
	require.NoError(t, img.WriteFLOAT32(playerObj.Add(0xE4), 100))
	if sentinel {
		require.NoError(t, img.WriteFLOAT32(playerObj.Add(0xE8), -0.5))
	}
	return img, p
}

func TestProbe(t *testing.T) {
	t.Parallel()

	img, p := newPlayer(t, true)
	var out bytes.Buffer
	require.NoError(t, probe(&out, img, p, probeOptions{dump: 16, maps: true}))

	text := out.String()
	assert.Contains(t, text, "unityplayer.dll")
	assert.Contains(t, text, "0x140001000")
	assert.Contains(t, text, "player#0@0x300000000 chain=[0x40] check=f32(-0.5)")
	assert.Contains(t, text, "snapshot: (5.00, 100.00) - (0, 0) - input -")
	assert.Contains(t, text, "zone: Top")
	assert.Contains(t, text, "00000000  00 00 00 00")
}

func TestProbeUnresolved(t *testing.T) {
	t.Parallel()

	img, p := newPlayer(t, false)
	var out bytes.Buffer
	require.NoError(t, probe(&out, img, p, probeOptions{}))

	assert.Contains(t, out.String(), "unresolved")
	assert.Contains(t, out.String(), "1 candidates in UnityPlayer.dll")
	assert.NotContains(t, out.String(), "unityplayer.dll")
	assert.Contains(t, out.String(), "a tick would be skipped")
	assert.NotContains(t, out.String(), "snapshot:")
}

func TestFindChains(t *testing.T) {
	t.Parallel()

	img, _ := newPlayer(t, true)
	opts := findOptions{
		module:   "UnityPlayer.dll",
		value:    "-0.5",
		kind:     "f32",
		depth:    2,
		rootSize: 0x1000,
		size:     0x100,
		align:    4,
	}

	var out bytes.Buffer
	require.NoError(t, findChains(context.Background(), &out, img, opts))
	assert.Contains(t, out.String(), "# 1 chains")

	var candidates []pointer.Candidate
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &candidates))
	require.Len(t, candidates, 1)
	assert.Equal(t, pointer.PointerChain{0x40}, candidates[0].Chain)
	require.NotNil(t, candidates[0].Check)
	assert.Equal(t, []process.ProcessMemorySize{0xE8}, candidates[0].Check.Path)
	assert.Equal(t, process.KindFLOAT32, candidates[0].Check.Kind)
	assert.Equal(t, process.Number("-0.5"), candidates[0].Check.Equals)
}

func TestFindChainsRootBeyondModule(t *testing.T) {
	t.Parallel()

	img, _ := newPlayer(t, true)
	opts := findOptions{
		module:   "UnityPlayer.dll",
		value:    "-0.5",
		kind:     "f32",
		depth:    2,
		rootSize: 0x2000000,
		size:     0x100,
		align:    4,
	}

	var out bytes.Buffer
	require.NoError(t, findChains(context.Background(), &out, img, opts))
	assert.Contains(t, out.String(), "# 1 chains")
}

func TestFindChainsRejectsBadInput(t *testing.T) {
	t.Parallel()

	img, _ := newPlayer(t, true)
	var out bytes.Buffer

	err := findChains(context.Background(), &out, img, findOptions{module: "UnityPlayer.dll", value: "-0.5", kind: "f16", align: 4})
	assert.Error(t, err)

	err = findChains(context.Background(), &out, img, findOptions{module: "UnityPlayer.dll", value: "half", kind: "f32", align: 4})
	assert.Error(t, err)

	err = findChains(context.Background(), &out, img, findOptions{module: "mono.dll", value: "-0.5", kind: "f32", align: 4})
	assert.ErrorIs(t, err, process.ErrModuleNotFound)
}

func TestListProfiles(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, listProfiles(&out))
	assert.Contains(t, out.String(), "current")
	assert.Contains(t, out.String(), "legacy")
	assert.Contains(t, out.String(), "A Difficult Game About Climbing.exe")
}

func TestBuildTimer(t *testing.T) {
	t.Parallel()

	p, err := profile.Load("")
	require.NoError(t, err)
	log := logger.NewLogger(coloransi.Color(coloransi.Cyan, coloransi.ColorPurple, "test"))

	mem, ok := buildTimer(config.TimerConfig{Backend: config.BackendLog}, p, log).(*timer.Memory)
	require.True(t, ok)
	state, err := mem.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, timer.NotRunning, state)

	ls, ok := buildTimer(config.TimerConfig{Backend: config.BackendLiveSplit, Address: "10.0.0.2:16834"}, p, log).(*timer.LiveSplit)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2:16834", ls.Address())
}

func TestLoadAppliesOverrides(t *testing.T) {
	t.Parallel()

	filename := filepath.Join(t.TempDir(), "climbsplit.yaml")
	require.NoError(t, os.WriteFile(filename, []byte("profile: legacy\nprocess_name: Climbing.exe\n"), 0o644))

	a := &app{v: config.New(), configPath: filename}
	cfg, p, err := a.load()
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.Profile)
	assert.Equal(t, "legacy", p.Name)
	assert.Equal(t, "Climbing.exe", p.ProcessName)
}
