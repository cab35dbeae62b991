//go:build windows

package main

import (
	"climbsplit/process"
	"climbsplit/process_windows"
)

func newOpener() process.ProcessOpener {
	return process_windows.NewHelper()
}
