package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ExecResult is the outcome of one exec_command call.
type ExecResult struct {
	Output      string
	ExitCode    int
	ProcessDied bool
	TimedOut    bool
}

// exec runs command in the session's shell, framing its output with a fresh
// marker so the exit status can be recovered from a shared stdout stream.
// The command is never wrapped in a subshell: cd, exports and background
// jobs must persist across calls.
func (s *Session) exec(command string, timeout time.Duration, maxOutputChars int) ExecResult {
	if !s.Alive() && s.OutputClosed() {
		return ExecResult{Output: "Error: process has exited", ExitCode: 1, ProcessDied: true}
	}

	marker := newMarker()
	wrapped := fmt.Sprintf("%s\n__MCP_EC__=$?; printf '\\n%s%%d\\n' \"$__MCP_EC__\"", command, marker)
	if err := s.writeLine(wrapped); err != nil {
		return ExecResult{Output: "Error: failed to write to session: " + err.Error(), ExitCode: 1, ProcessDied: true}
	}

	var (
		buf         strings.Builder
		exitCode    int
		haveExit    bool
		processDied bool
	)

	deadline := time.Now().Add(timeout)
loop:
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := execTakeQuantum
		if remaining < wait {
			wait = remaining
		}

		res := takeLine(s.output, wait)
		switch {
		case res.timedOut:
			if !s.Alive() {
				code, found := s.drainForMarker(marker, &buf)
				if found {
					exitCode = code
					haveExit = true
				} else {
					processDied = true
				}
				break loop
			}
			continue
		case res.closed:
			code, found := s.drainForMarker(marker, &buf)
			if found {
				exitCode = code
				haveExit = true
			} else {
				processDied = true
			}
			break loop
		default:
			if code, ok := parseMarkerLine(res.line, marker); ok {
				idx := strings.Index(res.line, marker)
				buf.WriteString(res.line[:idx])
				exitCode = code
				haveExit = true
				break loop
			}
			buf.WriteString(res.line)
			buf.WriteString("\n")
		}
	}

	timedOut := !haveExit && !processDied

	output := strings.TrimSuffix(buf.String(), "\n")
	if len(output) > maxOutputChars {
		output = output[:maxOutputChars] + fmt.Sprintf("\n... (output truncated at %d characters)", maxOutputChars)
	}

	return ExecResult{
		Output:      output,
		ExitCode:    exitCode,
		ProcessDied: processDied,
		TimedOut:    timedOut,
	}
}

// drainForMarker greedily drains whatever is left on the channel — even if
// it has been closed — looking for the trailing marker line so a race
// between process death and the final printf is resolved in favor of the
// exit code if it made it out.
func (s *Session) drainForMarker(marker string, buf *strings.Builder) (int, bool) {
	for _, line := range drainAvailable(s.output) {
		if code, ok := parseMarkerLine(line, marker); ok {
			idx := strings.Index(line, marker)
			buf.WriteString(line[:idx])
			return code, true
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	return 0, false
}

// parseMarkerLine reports whether line carries marker as the trailing
// sentinel: marker followed (after trimming) by nothing but an integer. A
// line that merely contains marker as incidental command output — with
// non-numeric trailing text — is not recognized as the sentinel.
func parseMarkerLine(line, marker string) (int, bool) {
	idx := strings.Index(line, marker)
	if idx < 0 {
		return 0, false
	}
	tail := strings.TrimSpace(line[idx+len(marker):])
	code, err := strconv.Atoi(tail)
	if err != nil {
		return 0, false
	}
	return code, true
}
