// Package diff computes line-level differences between file revisions and
// renders them in a unified format.
package diff

import (
	"bytes"
	"strings"
)

// Status describes what happened to a file between two snapshots.
type Status int

const (
	Modified Status = iota
	Added
	Deleted
)

// DefaultContext is the number of unchanged lines shown around a change.
const DefaultContext = 3

// FileDiff holds the line diff for one path.
type FileDiff struct {
	Path   string
	Status Status
	Binary bool
	Ops    []Op
}

// Lines computes the full edit script between a and b, one Op per line.
// A trailing newline does not produce an extra empty line.
func Lines(a, b []byte) []Op {
	return Myers(splitLines(string(a)), splitLines(string(b)))
}

// Changes returns only the inserted and deleted lines between a and b.
func Changes(a, b []byte) []Op {
	var out []Op
	for _, op := range Lines(a, b) {
		if op.Type != Equal {
			out = append(out, op)
		}
	}
	return out
}

// Files builds the diff for path. before is ignored for Added files and
// after is ignored for Deleted files.
func Files(path string, status Status, before, after []byte) *FileDiff {
	switch status {
	case Added:
		before = nil
	case Deleted:
		after = nil
	}
	fd := &FileDiff{Path: path, Status: status}
	if isBinary(before) || isBinary(after) {
		fd.Binary = true
		return fd
	}
	fd.Ops = Lines(before, after)
	return fd
}

// Empty reports whether the diff has no visible change.
func (fd *FileDiff) Empty() bool {
	if fd.Binary || fd.Status != Modified {
		return false
	}
	for _, op := range fd.Ops {
		if op.Type != Equal {
			return false
		}
	}
	return true
}

// Hunk is a contiguous group of changes with surrounding context.
// Start values are 1-based; a zero-length side reports the line before.
type Hunk struct {
	OldStart, OldLines int
	NewStart, NewLines int
	Ops                []Op
}

// Hunks groups ops into hunks, keeping up to context equal lines around
// every change. Changes separated by at most 2*context equal lines share
// a hunk.
func Hunks(ops []Op, context int) []Hunk {
	n := len(ops)
	oldPos := make([]int, n+1)
	newPos := make([]int, n+1)
	for i, op := range ops {
		oldPos[i+1], newPos[i+1] = oldPos[i], newPos[i]
		if op.Type != Insert {
			oldPos[i+1]++
		}
		if op.Type != Delete {
			newPos[i+1]++
		}
	}

	var hunks []Hunk
	i := 0
	for i < n {
		for i < n && ops[i].Type == Equal {
			i++
		}
		if i == n {
			break
		}
		start := max(0, i-context)
		end := i
		for {
			for end < n && ops[end].Type != Equal {
				end++
			}
			j := end
			for j < n && ops[j].Type == Equal {
				j++
			}
			if j < n && j-end <= 2*context {
				end = j
				continue
			}
			break
		}
		stop := min(n, end+context)

		h := Hunk{
			OldStart: oldPos[start] + 1,
			OldLines: oldPos[stop] - oldPos[start],
			NewStart: newPos[start] + 1,
			NewLines: newPos[stop] - newPos[start],
			Ops:      ops[start:stop],
		}
		if h.OldLines == 0 {
			h.OldStart--
		}
		if h.NewLines == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)
		i = stop
	}
	return hunks
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// isBinary uses the same heuristic as git: a NUL byte in the first 8000
// bytes.
func isBinary(data []byte) bool {
	if len(data) > 8000 {
		data = data[:8000]
	}
	return bytes.IndexByte(data, 0) >= 0
}
