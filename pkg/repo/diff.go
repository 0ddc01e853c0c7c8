package repo

import (
	"fmt"
	"os"
	"sort"

	"github.com/imraghavojha/lit/pkg/diff"
	"github.com/imraghavojha/lit/pkg/object"
)

// snapshot is a set of file versions plus a way to read their content.
type snapshot struct {
	files map[string]object.Hash
	read  func(p string, h object.Hash) ([]byte, error)
}

func (r *Repo) readStoredBlob(_ string, h object.Hash) ([]byte, error) {
	blob, err := r.Store.ReadBlob(h)
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}

func (r *Repo) readWorkFile(p string, _ object.Hash) ([]byte, error) {
	return os.ReadFile(r.workPath(p))
}

func (r *Repo) commitSnapshot(c object.Hash) (snapshot, error) {
	files, err := r.commitFiles(c)
	if err != nil {
		return snapshot{}, err
	}
	s := snapshot{files: make(map[string]object.Hash, len(files)), read: r.readStoredBlob}
	for p, f := range files {
		s.files[p] = f.Hash
	}
	return s, nil
}

func (r *Repo) indexSnapshot(idx *Index) snapshot {
	s := snapshot{files: make(map[string]object.Hash), read: r.readStoredBlob}
	for p, e := range idx.Live() {
		s.files[p] = e.Hash
	}
	return s
}

// worktreeSnapshot covers the files tracked by idx, plus any extra paths,
// that still exist on disk. Untracked files are not part of it.
func (r *Repo) worktreeSnapshot(idx *Index, extra map[string]object.Hash) (snapshot, error) {
	paths := make(map[string]struct{})
	for p := range idx.Live() {
		paths[p] = struct{}{}
	}
	for p := range extra {
		paths[p] = struct{}{}
	}
	s := snapshot{files: make(map[string]object.Hash), read: r.readWorkFile}
	for p := range paths {
		h, _, err := r.hashWorkFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return snapshot{}, err
		}
		s.files[p] = h
	}
	return s, nil
}

// DiffWorktree returns the unstaged changes: index against working tree.
func (r *Repo) DiffWorktree() ([]*diff.FileDiff, error) {
	idx, err := r.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	work, err := r.worktreeSnapshot(idx, nil)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return diffSnapshots(r.indexSnapshot(idx), work)
}

// DiffCommitWorktree returns the changes from commit c to the working
// tree. Files tracked by c or the index are compared; untracked files are
// ignored.
func (r *Repo) DiffCommitWorktree(c object.Hash) ([]*diff.FileDiff, error) {
	from, err := r.commitSnapshot(c)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	idx, err := r.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	work, err := r.worktreeSnapshot(idx, from.files)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return diffSnapshots(from, work)
}

// DiffStaged returns the staged changes: HEAD against index.
func (r *Repo) DiffStaged() ([]*diff.FileDiff, error) {
	idx, err := r.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	head, err := r.HeadCommit()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	base, err := r.commitSnapshot(head)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return diffSnapshots(base, r.indexSnapshot(idx))
}

// DiffCommits returns the changes from commit a to commit b.
func (r *Repo) DiffCommits(a, b object.Hash) ([]*diff.FileDiff, error) {
	from, err := r.commitSnapshot(a)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	to, err := r.commitSnapshot(b)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return diffSnapshots(from, to)
}

func diffSnapshots(from, to snapshot) ([]*diff.FileDiff, error) {
	paths := make(map[string]struct{}, len(from.files)+len(to.files))
	for p := range from.files {
		paths[p] = struct{}{}
	}
	for p := range to.files {
		paths[p] = struct{}{}
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	var out []*diff.FileDiff
	for _, p := range sorted {
		fh, inFrom := from.files[p]
		th, inTo := to.files[p]
		if inFrom && inTo && fh == th {
			continue
		}
		var before, after []byte
		var err error
		if inFrom {
			if before, err = from.read(p, fh); err != nil {
				return nil, fmt.Errorf("diff %q: %w", p, err)
			}
		}
		if inTo {
			if after, err = to.read(p, th); err != nil {
				return nil, fmt.Errorf("diff %q: %w", p, err)
			}
		}
		status := diff.Modified
		switch {
		case !inFrom:
			status = diff.Added
		case !inTo:
			status = diff.Deleted
		}
		out = append(out, diff.Files(p, status, before, after))
	}
	return out, nil
}
