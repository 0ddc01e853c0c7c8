package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/imraghavojha/lit/pkg/object"
)

// CheckoutOptions controls Checkout.
type CheckoutOptions struct {
	// Force discards uncommitted changes to tracked files and overwrites
	// untracked files that are in the way.
	Force bool
}

// Checkout switches the working directory to the state of the target.
// The target can be a branch name or a commit hash.
//
// Algorithm:
//  1. Refuse while a merge is in progress.
//  2. Resolve target: branch name first, then commit hash.
//  3. Flatten the target tree and read every blob before touching disk.
//  4. Unless forced, refuse on uncommitted changes or untracked files the
//     target would overwrite.
//  5. Remove all tracked files (HEAD tree plus index).
//  6. Write the target files, rebuild the index to mirror the target.
//  7. Update HEAD (symbolic for a branch, raw hash when detached).
//
// Untracked files that the target does not overwrite are left in place.
func (r *Repo) Checkout(target string, opts CheckoutOptions) error {
	state, err := r.readMergeState()
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if state != nil {
		return fmt.Errorf("checkout: %w", ErrMergeInProgress)
	}

	isBranch := r.BranchExists(target)
	targetHash, err := r.Resolve(target)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	targetFiles, err := r.commitFiles(targetHash)
	if err != nil {
		return fmt.Errorf("checkout: read target %s: %w", targetHash, err)
	}
	blobs, err := r.loadBlobs(targetFiles)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	head, err := r.HeadCommit()
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	tracked, err := r.trackedFiles(head)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if !opts.Force {
		if err := r.ensureClean(); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
		if err := r.checkUntrackedOverwrite(tracked, tracked, targetFiles); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
	}

	if err := r.replaceWorktree(tracked, targetFiles, blobs); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	from := describeHead(r)
	if isBranch {
		err = r.setHeadBranch(target)
	} else {
		err = r.detachHead(targetHash)
	}
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.appendReflog("HEAD", head, targetHash, fmt.Sprintf("checkout: moving from %s to %s", from, target)); err != nil {
		r.Logger().Warn("reflog append failed", "ref", "HEAD", "error", err)
	}
	r.Logger().Info("checked out", "target", target, "commit", targetHash, "files", len(targetFiles))
	return nil
}

// SwitchNewBranch creates a branch at HEAD and checks it out. On an empty
// repository only HEAD moves.
func (r *Repo) SwitchNewBranch(name string) error {
	head, err := r.HeadCommit()
	if err != nil {
		return fmt.Errorf("switch: %w", err)
	}
	if err := r.CreateBranch(name, head); err != nil {
		return fmt.Errorf("switch: %w", err)
	}
	if head == "" {
		return r.setHeadBranch(name)
	}
	return r.Checkout(name, CheckoutOptions{})
}

// describeHead names the current position for reflog messages.
func describeHead(r *Repo) string {
	if b, err := r.CurrentBranch(); err == nil && b != "" {
		return b
	}
	if h, err := r.HeadCommit(); err == nil && h != "" {
		return h.Short()
	}
	return "HEAD"
}

// trackedFiles returns every path known to the HEAD tree or the index.
func (r *Repo) trackedFiles(head object.Hash) (map[string]struct{}, error) {
	files := make(map[string]struct{})
	headFiles, err := r.commitFiles(head)
	if err != nil {
		return nil, fmt.Errorf("read HEAD tree: %w", err)
	}
	for p := range headFiles {
		files[p] = struct{}{}
	}
	idx, err := r.LoadIndex()
	if err != nil {
		return nil, err
	}
	for _, e := range idx.Entries() {
		files[e.Path] = struct{}{}
	}
	return files, nil
}

// checkUntrackedOverwrite fails when writing target would clobber work
// lit does not know about. A target path is blocked by an untracked file at
// that path or at one of its parent directories, or by a directory there
// that still holds files outside removed once the tracked ones are gone.
func (r *Repo) checkUntrackedOverwrite(tracked, removed map[string]struct{}, target map[string]TreeFile) error {
	var clobbered []string
	for p := range target {
		if _, ok := tracked[p]; ok {
			continue
		}
		if blocker, ok := r.blockingPath(p, removed); ok {
			clobbered = append(clobbered, blocker)
		}
	}
	if len(clobbered) == 0 {
		return nil
	}
	sort.Strings(clobbered)
	return fmt.Errorf("%w: untracked file %q would be overwritten", ErrDirtyWorktree, clobbered[0])
}

// blockingPath returns the first path on disk that would stop p from
// being written.
func (r *Repo) blockingPath(p string, removed map[string]struct{}) (string, bool) {
	info, err := os.Lstat(r.workPath(p))
	if err == nil {
		if !info.IsDir() {
			return p, true
		}
		return r.survivorUnder(p, removed)
	}
	for dir := path.Dir(p); dir != "."; dir = path.Dir(dir) {
		info, err := os.Lstat(r.workPath(dir))
		if err != nil {
			continue
		}
		if info.IsDir() {
			return "", false
		}
		if _, ok := removed[dir]; ok {
			return "", false
		}
		return dir, true
	}
	return "", false
}

// survivorUnder returns the first file below dir that is not in removed.
func (r *Repo) survivorUnder(dir string, removed map[string]struct{}) (string, bool) {
	var found string
	_ = filepath.WalkDir(r.workPath(dir), func(abs string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.RootDir, abs)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if _, ok := removed[rel]; !ok {
			found = rel
			return fs.SkipAll
		}
		return nil
	})
	return found, found != ""
}

// loadBlobs reads the content of every file in files, keyed by hash.
func (r *Repo) loadBlobs(files map[string]TreeFile) (map[object.Hash][]byte, error) {
	blobs := make(map[object.Hash][]byte, len(files))
	for p, f := range files {
		if _, ok := blobs[f.Hash]; ok {
			continue
		}
		blob, err := r.Store.ReadBlob(f.Hash)
		if err != nil {
			return nil, fmt.Errorf("read blob for %q: %w", p, err)
		}
		blobs[f.Hash] = blob.Data
	}
	return blobs, nil
}

// replaceWorktree removes every tracked path, writes target from the
// preloaded blobs and saves an index mirroring target.
func (r *Repo) replaceWorktree(tracked map[string]struct{}, target map[string]TreeFile, blobs map[object.Hash][]byte) error {
	for p := range tracked {
		if err := r.removeWorkFile(p); err != nil {
			return err
		}
	}
	paths := make([]string, 0, len(target))
	for p := range target {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		f := target[p]
		if err := r.writeWorkFile(p, blobs[f.Hash], f.Mode); err != nil {
			return err
		}
	}
	return r.SaveIndex(indexFromFiles(target))
}
