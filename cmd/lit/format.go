package main

import (
	"strings"

	"github.com/imraghavojha/lit/pkg/repo"
)

// headLabel names what HEAD points at for display: the branch, or
// "HEAD" when detached.
func headLabel(r *repo.Repo) string {
	if b, err := r.CurrentBranch(); err == nil && b != "" {
		return b
	}
	return "HEAD"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
