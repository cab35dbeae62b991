//go:build !linux && !windows

package main

import (
	"fmt"
	"runtime"

	"climbsplit/process"
)

type unsupportedOpener struct{}

func (unsupportedOpener) OpenProcessByName(name string) (process.Process, error) {
	return nil, fmt.Errorf("reading process memory is not supported on %s", runtime.GOOS)
}

func newOpener() process.ProcessOpener {
	return unsupportedOpener{}
}
