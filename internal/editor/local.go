package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Local edits files directly on the host filesystem, rooted at baseDir.
// Unlike Sessioned it never shells out — there is no session process whose
// view of the filesystem it needs to stay consistent with.
type Local struct {
	baseDir string
}

// NewLocal constructs a host-filesystem editor rooted at baseDir.
func NewLocal(baseDir string) *Local {
	return &Local{baseDir: baseDir}
}

func (e *Local) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.baseDir, path)
}

// View mirrors Sessioned.View's semantics on the host filesystem.
func (e *Local) View(path string, viewRange []int) Result {
	full := e.resolve(path)
	info, err := os.Stat(full)
	if err != nil {
		return errResult("The path %s does not exist.", path)
	}

	if info.IsDir() {
		if viewRange != nil {
			return errResult("view_range is not allowed when path points to a directory.")
		}
		entries, err := listDir(full)
		if err != nil {
			return errResult("Failed to list %s: %s", path, err.Error())
		}
		return Result{Text: fmt.Sprintf("Directory listing for %s:\n%s", path, strings.Join(entries, "\n"))}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return errResult("Failed to read %s: %s", path, err.Error())
	}
	lines := splitLines(string(data))
	total := len(lines)

	if viewRange == nil {
		return Result{Text: fmt.Sprintf("Here's the result of running `cat -n` on %s (%d lines total):\n%s", path, total, numberLines(lines, 1))}
	}

	start, end, errMsg := validateRange(viewRange, total)
	if errMsg != "" {
		return errResult("%s", errMsg)
	}
	return Result{Text: fmt.Sprintf(
		"Here's the result of running `cat -n` on %s, lines %d-%d (%d lines total):\n%s",
		path, start, end, total, numberLines(lines[start-1:end], start),
	)}
}

// listDir walks up to two levels below root, excluding dotfiles the same
// way the sessioned editor's `find -not -path '*/.*'` does.
func listDir(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(rel, string(filepath.Separator)) + 1
		}
		if depth > 2 {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}
		hidden, _ := doublestar.Match("**/.*", filepath.ToSlash(rel))
		if hidden || strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// StrReplace mirrors Sessioned.StrReplace on the host filesystem.
func (e *Local) StrReplace(path, oldStr, newStr string, replaceAll bool) Result {
	full := e.resolve(path)
	data, err := os.ReadFile(full)
	if err != nil {
		return errResult("The path %s does not exist or could not be read.", path)
	}
	content := string(data)

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

	if err := os.WriteFile(full, []byte(updated), 0644); err != nil {
		return errResult("Failed to write %s: %s", path, err.Error())
	}

	msg := fmt.Sprintf("The file %s has been edited successfully.", path)
	if replaceAll && count > 1 {
		msg = fmt.Sprintf("The file %s has been edited successfully. Made %d replacements.", path, count)
	}
	return Result{Text: msg}
}

// Create refuses to overwrite an existing file, per the non-sessioned
// editor's contract.
func (e *Local) Create(path, fileText string) Result {
	full := e.resolve(path)
	if _, err := os.Stat(full); err == nil {
		return errResult("Cannot create file: %s already exists.", path)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return errResult("Failed to create parent directory for %s: %s", path, err.Error())
	}
	if err := os.WriteFile(full, []byte(fileText), 0644); err != nil {
		return errResult("Failed to write %s: %s", path, err.Error())
	}
	return Result{Text: fmt.Sprintf("File created successfully at %s", path)}
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func numberLines(lines []string, start int) string {
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%d\t%s\n", start+i, l)
	}
	return b.String()
}
