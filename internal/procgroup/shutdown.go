// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/Mokrovi/backServ/internal/metrics"
)

// Terminate stops a process group: SIGTERM, wait up to grace for waitCh,
// then SIGKILL. It consumes waitCh and returns the Wait error.
// A nil command is a no-op.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	signalGroup(cmd, syscall.SIGTERM, "SIGTERM")

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		if err == nil {
			metrics.IncProcWait("exit0")
		} else {
			metrics.IncProcWait("exit_nonzero")
		}
		return err
	case <-timer.C:
	}

	signalGroup(cmd, syscall.SIGKILL, "SIGKILL")

	select {
	case err := <-waitCh:
		if err == nil {
			metrics.IncProcWait("forced_exit0")
		} else {
			metrics.IncProcWait("forced_error")
		}
		return err
	case <-time.After(grace):
		return ErrKillFailed
	}
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal, label string) {
	err := Kill(cmd, sig)
	switch {
	case err == nil:
		metrics.IncProcTerminate(label, "sent")
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		metrics.IncProcTerminate(label, "esrch")
	default:
		metrics.IncProcTerminate(label, "error")
	}
}
