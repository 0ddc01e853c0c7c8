package repo

import (
	"fmt"
	"os"
	"sort"
)

// FileStatus represents the state of a file in the working tree or index.
type FileStatus int

const (
	StatusClean     FileStatus = iota // file matches between compared areas
	StatusNew                         // in index, not in HEAD tree
	StatusModified                    // content or mode differs
	StatusDeleted                     // in HEAD but staged for deletion, or tracked but missing on disk
	StatusConflict                    // merge left conflict markers that are not re-staged
	StatusUntracked                   // in working dir but not in the index
)

func (s FileStatus) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusNew:
		return "new file"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	case StatusConflict:
		return "both modified"
	case StatusUntracked:
		return "untracked"
	default:
		return fmt.Sprintf("FileStatus(%d)", int(s))
	}
}

// StatusEntry records the status of a single file.
type StatusEntry struct {
	Path        string     // repo-relative path
	IndexStatus FileStatus // index vs HEAD tree
	WorkStatus  FileStatus // working tree vs index
}

// Status compares HEAD, the index and the working tree. Clean files are
// omitted; entries are sorted by path.
func (r *Repo) Status() ([]StatusEntry, error) {
	idx, err := r.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	head, err := r.HeadCommit()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	headFiles, err := r.commitFiles(head)
	if err != nil {
		return nil, fmt.Errorf("status: read HEAD tree: %w", err)
	}
	work, err := r.workFiles(NewIgnoreChecker(r.RootDir))
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	state, err := r.readMergeState()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	byPath := make(map[string]*StatusEntry)
	entry := func(p string) *StatusEntry {
		e, ok := byPath[p]
		if !ok {
			e = &StatusEntry{Path: p}
			byPath[p] = e
		}
		return e
	}

	live := idx.Live()
	for p, ie := range live {
		hf, inHead := headFiles[p]
		switch {
		case !inHead:
			entry(p).IndexStatus = StatusNew
		case hf.Hash != ie.Hash || hf.Mode != ie.Mode:
			entry(p).IndexStatus = StatusModified
		}

		if _, onDisk := work[p]; !onDisk {
			if info, err := os.Lstat(r.workPath(p)); err != nil || info.IsDir() {
				entry(p).WorkStatus = StatusDeleted
			}
			continue
		}
		h, mode, err := r.hashWorkFile(p)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		if h != ie.Hash || mode != ie.Mode {
			entry(p).WorkStatus = StatusModified
		}
	}
	for p := range headFiles {
		if _, ok := live[p]; !ok {
			entry(p).IndexStatus = StatusDeleted
		}
	}
	for p := range work {
		if _, ok := live[p]; !ok {
			entry(p).WorkStatus = StatusUntracked
		}
	}
	if state != nil {
		for _, p := range state.Conflicts {
			entry(p).WorkStatus = StatusConflict
		}
	}

	out := make([]StatusEntry, 0, len(byPath))
	for _, e := range byPath {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// ensureClean fails with ErrDirtyWorktree when anything tracked has staged
// or unstaged changes. Untracked files do not count.
func (r *Repo) ensureClean() error {
	entries, err := r.Status()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IndexStatus != StatusClean || (e.WorkStatus != StatusClean && e.WorkStatus != StatusUntracked) {
			return fmt.Errorf("%w (file %q has uncommitted changes)", ErrDirtyWorktree, e.Path)
		}
	}
	return nil
}
