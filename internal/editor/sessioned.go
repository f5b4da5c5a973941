package editor

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/acolita/shellsession-mcp/internal/session"
)

// SessionExecer is the slice of *session.Manager the editor depends on.
type SessionExecer interface {
	Exec(sessionID, command string, timeoutMS int) session.ExecResult
}

// Sessioned edits files by shelling out inside a running session, so a view
// or write is atomic with respect to that session's picture of the
// filesystem — it always sees what the session's own commands would see.
type Sessioned struct {
	sessions  SessionExecer
	timeoutMS int
}

// NewSessioned constructs a session-backed editor using timeoutMS for every
// probe/read/write it issues through the session.
func NewSessioned(sessions SessionExecer, timeoutMS int) *Sessioned {
	return &Sessioned{sessions: sessions, timeoutMS: timeoutMS}
}

// Result is a plain text/isError pair, mirroring the tool content envelope
// without importing the rpc package's schema-heavy types.
type Result struct {
	Text    string
	IsError bool
}

func errResult(format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...), IsError: true}
}

func (e *Sessioned) run(sessionID, command string) session.ExecResult {
	return e.sessions.Exec(sessionID, command, e.timeoutMS)
}

// View implements the "view" command: directory listing or line-numbered
// file content, optionally restricted to a 1-based inclusive range.
func (e *Sessioned) View(sessionID, path string, viewRange []int) Result {
	q := shellQuote(path)
	probe := e.run(sessionID, fmt.Sprintf("test -d %s && echo DIR || (test -f %s && echo FILE || echo NOTFOUND)", q, q))
	switch strings.TrimSpace(probe.Output) {
	case "NOTFOUND":
		return errResult("The path %s does not exist.", path)
	case "DIR":
		if viewRange != nil {
			return errResult("view_range is not allowed when path points to a directory.")
		}
		listing := e.run(sessionID, fmt.Sprintf("find %s -maxdepth 2 -not -path '*/.*'", q))
		return Result{Text: fmt.Sprintf("Directory listing for %s:\n%s", path, listing.Output)}
	case "FILE":
		return e.viewFile(sessionID, path, q, viewRange)
	default:
		return errResult("Unable to determine whether %s is a file or a directory.", path)
	}
}

func (e *Sessioned) viewFile(sessionID, path, q string, viewRange []int) Result {
	countRes := e.run(sessionID, fmt.Sprintf("wc -l < %s", q))
	total, err := strconv.Atoi(strings.TrimSpace(countRes.Output))
	if err != nil {
		return errResult("Unable to determine line count for %s.", path)
	}

	if viewRange == nil {
		body := e.run(sessionID, fmt.Sprintf(`awk '{printf "%%d\t%%s\n", NR, $0}' %s`, q))
		return Result{Text: fmt.Sprintf("Here's the result of running `cat -n` on %s (%d lines total):\n%s", path, total, body.Output)}
	}

	start, end, errMsg := validateRange(viewRange, total)
	if errMsg != "" {
		return errResult("%s", errMsg)
	}

	body := e.run(sessionID, fmt.Sprintf(`awk 'NR>=%d && NR<=%d {printf "%%d\t%%s\n", NR, $0}' %s`, start, end, q))
	return Result{Text: fmt.Sprintf("Here's the result of running `cat -n` on %s, lines %d-%d (%d lines total):\n%s", path, start, end, total, body.Output)}
}

// validateRange checks a [start,end] 1-based inclusive range against a file
// of total lines, where end==-1 means end-of-file.
func validateRange(r []int, total int) (start, end int, errMsg string) {
	if len(r) != 2 {
		return 0, 0, "Invalid view_range: it should be a list of two integers."
	}
	start, end = r[0], r[1]
	if start < 1 || start > total {
		return 0, 0, fmt.Sprintf("Invalid view_range: start line %d should be within the range [1, %d].", start, total)
	}
	if end == -1 {
		return start, total, ""
	}
	if end > total {
		return 0, 0, fmt.Sprintf("Invalid view_range: end line %d should be smaller than the number of lines in the file: %d.", end, total)
	}
	if end < start {
		return 0, 0, fmt.Sprintf("Invalid view_range: end line %d should be larger or equal than its first line %d.", end, start)
	}
	return start, end, ""
}

// StrReplace implements the "str_replace" command.
func (e *Sessioned) StrReplace(sessionID, path, oldStr, newStr string, replaceAll bool) Result {
	content, res := e.readFile(sessionID, path)
	if res.IsError {
		return res
	}

	count, lines := countOccurrences(content, oldStr)
	if count == 0 {
		return errResult("No replacement was performed: old_str `%s` did not appear verbatim in %s.", oldStr, path)
	}
	if !replaceAll && count > 1 {
		lineStrs := make([]string, len(lines))
		for i, l := range lines {
			lineStrs[i] = strconv.Itoa(l)
		}
		return errResult(
			"No replacement was performed: old_str `%s` appears %d times in lines %s. It must be unique, or replace_all must be set to true.",
			oldStr, count, strings.Join(lineStrs, ", "),
		)
	}

	var updated string
	if replaceAll {
		updated = strings.ReplaceAll(content, oldStr, newStr)
	} else {
		updated = strings.Replace(content, oldStr, newStr, 1)
	}

	if writeRes := e.writeFile(sessionID, path, updated); writeRes.IsError {
		return writeRes
	}

	msg := fmt.Sprintf("The file %s has been edited successfully.", path)
	if replaceAll && count > 1 {
		msg = fmt.Sprintf("The file %s has been edited successfully. Made %d replacements.", path, count)
	}
	return Result{Text: msg}
}

// countOccurrences returns how many times old occurs in content and the
// 1-based line number each occurrence starts on.
func countOccurrences(content, old string) (int, []int) {
	var lines []int
	start := 0
	for {
		idx := strings.Index(content[start:], old)
		if idx < 0 {
			break
		}
		abs := start + idx
		lines = append(lines, strings.Count(content[:abs], "\n")+1)
		start = abs + len(old)
	}
	return len(lines), lines
}

// Create implements the "create" command.
func (e *Sessioned) Create(sessionID, path, fileText string) Result {
	q := shellQuote(path)
	exists := e.run(sessionID, fmt.Sprintf("test -e %s && echo EXISTS || echo MISSING", q))
	if strings.TrimSpace(exists.Output) == "EXISTS" {
		return errResult("Cannot create file: %s already exists.", path)
	}

	parent := parentDir(path)
	if parent != "" {
		if res := e.run(sessionID, fmt.Sprintf("mkdir -p %s", shellQuote(parent))); res.ExitCode != 0 {
			return errResult("Failed to create parent directory for %s: %s", path, res.Output)
		}
	}

	if writeRes := e.writeFile(sessionID, path, fileText); writeRes.IsError {
		return writeRes
	}
	return Result{Text: fmt.Sprintf("File created successfully at %s", path)}
}

// readFile fetches path's content through base64, discarding whitespace
// before decoding, exactly the inverse of writeFile's here-document.
func (e *Sessioned) readFile(sessionID, path string) (string, Result) {
	res := e.run(sessionID, fmt.Sprintf("base64 %s", shellQuote(path)))
	if res.ExitCode != 0 {
		return "", errResult("The path %s does not exist or could not be read.", path)
	}
	compact := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			return -1
		}
		return r
	}, res.Output)
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return "", errResult("Failed to decode contents of %s: %s", path, err.Error())
	}
	return string(decoded), Result{}
}

// writeFile transfers content atomically via base64 and a randomly
// sentineled here-document so the write cannot collide with delimiter text
// that happens to appear in content.
func (e *Sessioned) writeFile(sessionID, path, content string) Result {
	token := randomHex(12)
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	cmd := fmt.Sprintf("base64 -d > %s << 'MARK_%s'\n%s\nMARK_%s", shellQuote(path), token, encoded, token)
	res := e.run(sessionID, cmd)
	if res.ExitCode != 0 {
		return errResult("Failed to write %s: %s", path, res.Output)
	}
	return Result{}
}

func parentDir(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
