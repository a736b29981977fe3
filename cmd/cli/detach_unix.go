//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// detachProcess starts cmd in its own session so closing the terminal does not stop the server
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
