package repo

import (
	"fmt"
	"sort"
	"strings"
)

// Reset unstages paths by restoring their index entries to HEAD. It
// returns the paths whose entry actually changed, sorted.
//
// A path present in HEAD gets HEAD's blob and mode back, which also undoes
// a staged deletion. A path absent from HEAD is dropped from the index. No
// paths means every entry. The working tree is not touched.
func (r *Repo) Reset(paths []string) ([]string, error) {
	idx, err := r.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	head, err := r.HeadCommit()
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	headFiles, err := r.commitFiles(head)
	if err != nil {
		return nil, fmt.Errorf("reset: read HEAD tree: %w", err)
	}

	known := make(map[string]struct{}, idx.Len()+len(headFiles))
	for _, e := range idx.Entries() {
		known[e.Path] = struct{}{}
	}
	for p := range headFiles {
		known[p] = struct{}{}
	}
	selected, err := r.selectPaths(paths, known)
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}

	var changed []string
	for _, p := range selected {
		cur, staged := idx.Get(p)
		f, inHead := headFiles[p]
		switch {
		case inHead && staged && cur.Hash == f.Hash && cur.Mode == f.Mode:
			continue
		case inHead:
			idx.Stage(p, f.Mode, f.Hash)
		case !idx.Unstage(p):
			continue
		}
		changed = append(changed, p)
	}
	if len(changed) == 0 {
		return nil, nil
	}
	if err := r.SaveIndex(idx); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	r.Logger().Debug("reset index entries", "count", len(changed))
	return changed, nil
}

// selectPaths expands user path arguments against known repo paths. A
// directory argument selects everything beneath it; no arguments selects
// everything. An argument matching nothing is an error.
func (r *Repo) selectPaths(args []string, known map[string]struct{}) ([]string, error) {
	out := make([]string, 0, len(known))
	if len(args) == 0 {
		for p := range known {
			out = append(out, p)
		}
		sort.Strings(out)
		return out, nil
	}

	picked := make(map[string]struct{})
	for _, arg := range args {
		rel, err := r.repoRelPath(arg)
		if err != nil {
			return nil, err
		}
		n := len(picked)
		for p := range known {
			if rel == "." || p == rel || strings.HasPrefix(p, rel+"/") {
				picked[p] = struct{}{}
			}
		}
		if len(picked) == n && !matchesAny(rel, known) {
			return nil, fmt.Errorf("path %q did not match staged or HEAD entries", arg)
		}
	}
	for p := range picked {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func matchesAny(rel string, known map[string]struct{}) bool {
	for p := range known {
		if rel == "." || p == rel || strings.HasPrefix(p, rel+"/") {
			return true
		}
	}
	return false
}
