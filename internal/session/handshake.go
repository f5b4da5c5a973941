package session

import (
	"strings"
	"time"
)

// awaitReady runs the startup handshake described in the design: poll with
// echoed markers until one comes back, then arm "exec 2>&1" so later output
// framing never has to referee two separate streams.
func (s *Session) awaitReady(readyTimeout time.Duration) error {
	time.Sleep(bannerSettleDelay)

	deadline := time.Now().Add(readyTimeout)
	for time.Now().Before(deadline) {
		if !s.Alive() {
			time.Sleep(stderrDrainWait)
			return s.startupError("shell exited before becoming ready")
		}

		marker := newMarker()
		if err := s.writeLine("echo " + marker); err != nil {
			return s.startupError("failed to write readiness probe: " + err.Error())
		}

		if s.pollForMarker(marker) {
			time.Sleep(readyDrainSettle)
			drainAvailable(s.output)

			if err := s.writeLine("exec 2>&1"); err != nil {
				return s.startupError("failed to arm stderr redirection: " + err.Error())
			}
			time.Sleep(stderrRedirectWait)
			drainAvailable(s.output)
			return nil
		}
	}

	return s.startupError("shell did not become ready within timeout")
}

// pollForMarker takes lines for up to readyPollTakeWindow, looking for one
// containing marker, waiting at most readyPollTakeWait per take.
func (s *Session) pollForMarker(marker string) bool {
	pollDeadline := time.Now().Add(readyPollTakeWindow)
	for time.Now().Before(pollDeadline) {
		res := takeLine(s.output, readyPollTakeWait)
		if res.closed {
			return false
		}
		if res.timedOut {
			continue
		}
		if strings.Contains(res.line, marker) {
			return true
		}
	}
	return false
}

func (s *Session) startupError(reason string) *StartupError {
	err := &StartupError{
		Reason: reason,
		Stderr: s.stderrSnapshot(),
		Stdout: drainAvailable(s.output),
	}
	if !s.Alive() {
		if exitErr, ok := s.waitErrAsExitError(); ok {
			err.ExitCode = exitErr
			err.HasExitCode = true
		}
	}
	return err
}

// waitErrAsExitError extracts a process exit code from waitErr, if any.
func (s *Session) waitErrAsExitError() (int, bool) {
	select {
	case <-s.waitDone:
	default:
		return 0, false
	}
	if s.waitErr == nil {
		return 0, true
	}
	type exitCoder interface{ ExitCode() int }
	if ee, ok := s.waitErr.(exitCoder); ok {
		return ee.ExitCode(), true
	}
	return 0, false
}
