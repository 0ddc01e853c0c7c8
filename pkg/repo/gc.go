package repo

import (
	"context"
	"fmt"
	"sort"

	"github.com/imraghavojha/lit/pkg/object"
)

// FsckReport summarizes an object store integrity check.
type FsckReport struct {
	Objects     int                 // objects in the store
	Reachable   int                 // objects reachable from refs
	Corrupt     []object.Corruption // objects whose content does not match their name
	Missing     []object.Hash       // referenced from history but absent
	Unreachable []object.Hash       // stored but not referenced by refs or the index
}

// OK reports whether no corruption or missing objects were found.
// Unreachable objects are not errors.
func (f *FsckReport) OK() bool {
	return len(f.Corrupt) == 0 && len(f.Missing) == 0
}

// rootCommits returns the commit hashes referenced by branches, HEAD and a
// pending merge, sorted and deduplicated.
func (r *Repo) rootCommits() ([]object.Hash, error) {
	set := make(map[object.Hash]struct{})
	branches, err := r.ListBranches()
	if err != nil {
		return nil, err
	}
	for _, b := range branches {
		h, err := r.ResolveRef(headsPrefix + b)
		if err != nil {
			return nil, err
		}
		if h != "" {
			set[h] = struct{}{}
		}
	}
	if h, err := r.HeadCommit(); err != nil {
		return nil, err
	} else if h != "" {
		set[h] = struct{}{}
	}
	state, err := r.readMergeState()
	if err != nil {
		return nil, err
	}
	if state != nil && state.Head != "" {
		set[state.Head] = struct{}{}
	}

	roots := make([]object.Hash, 0, len(set))
	for h := range set {
		roots = append(roots, h)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	return roots, nil
}

// live returns every object that must be kept: the reachable history plus
// blobs staged in the index.
func (r *Repo) live() (*object.Reachability, map[object.Hash]struct{}, error) {
	roots, err := r.rootCommits()
	if err != nil {
		return nil, nil, err
	}
	reach, err := r.Store.ReachableSet(roots)
	if err != nil {
		return nil, nil, err
	}
	keep := make(map[object.Hash]struct{}, len(reach.Objects))
	for h := range reach.Objects {
		keep[h] = struct{}{}
	}
	idx, err := r.LoadIndex()
	if err != nil {
		return nil, nil, err
	}
	for _, e := range idx.Live() {
		keep[e.Hash] = struct{}{}
	}
	return reach, keep, nil
}

// Fsck rehashes every stored object with up to workers goroutines and
// walks history from all refs looking for missing objects.
func (r *Repo) Fsck(ctx context.Context, workers int) (*FsckReport, error) {
	all, err := r.Store.List()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	corrupt, err := r.Store.Verify(ctx, workers)
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	reach, keep, err := r.live()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}

	report := &FsckReport{
		Objects:   len(all),
		Reachable: len(reach.Objects),
		Corrupt:   corrupt,
		Missing:   reach.Missing,
	}
	for _, h := range all {
		if _, ok := keep[h]; !ok {
			report.Unreachable = append(report.Unreachable, h)
		}
	}
	r.Logger().Debug("fsck complete", "objects", report.Objects, "corrupt", len(corrupt), "missing", len(reach.Missing))
	return report, nil
}

// Prune deletes objects that are neither reachable from refs nor staged in
// the index and returns their hashes. With dryRun nothing is deleted.
func (r *Repo) Prune(dryRun bool) ([]object.Hash, error) {
	all, err := r.Store.List()
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	reach, keep, err := r.live()
	if err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	if len(reach.Missing) > 0 {
		return nil, fmt.Errorf("prune: history references %d missing objects; refusing to prune", len(reach.Missing))
	}

	var pruned []object.Hash
	for _, h := range all {
		if _, ok := keep[h]; ok {
			continue
		}
		if !dryRun {
			if err := r.Store.Delete(h); err != nil {
				return pruned, fmt.Errorf("prune: %w", err)
			}
		}
		pruned = append(pruned, h)
	}
	r.Logger().Info("pruned objects", "count", len(pruned), "dry_run", dryRun)
	return pruned, nil
}
