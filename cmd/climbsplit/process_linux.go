//go:build linux

package main

import (
	"climbsplit/process"
	"climbsplit/process_linux"
)

func newOpener() process.ProcessOpener {
	return process_linux.NewHelper()
}
