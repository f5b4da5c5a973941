// Package editor implements view/str_replace/create file operations, both
// proxied through a session's shell and against the host filesystem.
package editor

import "strings"

// shellQuote single-quotes s for safe use as one POSIX shell word, escaping
// embedded single quotes with the standard close-escape-reopen sequence.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
