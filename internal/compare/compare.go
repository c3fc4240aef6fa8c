// Package compare checks captured stdout against golden reference files.
package compare

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// NewLabel names the captured output in diff headers.
const NewLabel = "New"

// ContextLines is the number of unchanged lines shown around each change.
const ContextLines = 3

// Result is the outcome of comparing output against a reference file.
type Result struct {
	// Exists is false when no reference file is present.
	Exists bool

	// Diff is the unified diff from reference to actual. Empty on match.
	Diff string
}

// Match reports whether a reference exists and the output matches it.
func (r Result) Match() bool {
	return r.Exists && r.Diff == ""
}

// Compare diffs actual against the reference file at path.
// A missing reference is not an error.
func Compare(path, actual string) (Result, error) {
	ref, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("read reference: %w", err)
	}

	diff, err := Diff(string(ref), actual, path)
	if err != nil {
		return Result{}, err
	}
	return Result{Exists: true, Diff: diff}, nil
}

// Diff returns the line-based unified diff from reference to actual.
func Diff(reference, actual, referenceName string) (string, error) {
	if reference == actual {
		return "", nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(reference),
		B:        splitLines(actual),
		FromFile: referenceName,
		ToFile:   NewLabel,
		Context:  ContextLines,
	})
	if err != nil {
		return "", fmt.Errorf("diff against %s: %w", referenceName, err)
	}
	return diff, nil
}

// NoNewline marks a final line that lacks a line terminator.
const NoNewline = "\\ No newline at end of file\n"

// splitLines splits s after each newline. An unterminated final line is
// kept and followed by a NoNewline marker.
func splitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	last := len(lines) - 1
	if lines[last] == "" {
		return lines[:last]
	}
	lines[last] += "\n" + NoNewline
	return lines
}
