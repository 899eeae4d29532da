//go:build !unix

package pipeline

import (
	"os"
	"os/exec"
	"syscall"
)

func joinGroup(cmd *exec.Cmd, leader int) {}

func signalGroup(pgid int, sig syscall.Signal) error {
	if pgid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pgid)
	if err != nil {
		return nil
	}
	_ = proc.Kill()
	return nil
}

func exitStatus(state *os.ProcessState) (int, syscall.Signal) {
	if state == nil {
		return -1, 0
	}
	return state.ExitCode(), 0
}
