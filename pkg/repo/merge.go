package repo

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/imraghavojha/lit/pkg/object"
)

// MergeStatus is the outcome of Merge.
type MergeStatus int

const (
	MergeUpToDate        MergeStatus = iota // other is already reachable from head
	MergeFastForward                        // head moved to other, no commit
	MergeClean                              // three-way merge applied without conflicts
	MergeConflicted                         // three-way merge applied with conflicts
	MergeNoCommonHistory                    // histories are unrelated; nothing touched
)

func (s MergeStatus) String() string {
	switch s {
	case MergeUpToDate:
		return "up-to-date"
	case MergeFastForward:
		return "fast-forward"
	case MergeClean:
		return "clean"
	case MergeConflicted:
		return "conflicted"
	case MergeNoCommonHistory:
		return "no-common-history"
	default:
		return fmt.Sprintf("MergeStatus(%d)", int(s))
	}
}

// MergeResult reports what a merge did.
type MergeResult struct {
	Status          MergeStatus
	Head            object.Hash
	Other           object.Hash
	Ancestor        object.Hash
	Updated         []string    // paths written from the other side
	Deleted         []string    // paths removed
	ConflictedPaths []string    // paths written with conflict markers, sorted
	Commit          object.Hash // merge commit, when the caller created one
}

// Success reports whether the merge finished without conflicts.
func (m *MergeResult) Success() bool {
	return m.Status != MergeNoCommonHistory && len(m.ConflictedPaths) == 0
}

// TreeDiff lists blob paths that changed between two trees.
type TreeDiff struct {
	Added    map[string]TreeFile
	Modified map[string]TreeFile // value is the new version
	Deleted  map[string]TreeFile // value is the old version
}

func (d *TreeDiff) change(p string) changeKind {
	if _, ok := d.Added[p]; ok {
		return changeAdded
	}
	if _, ok := d.Modified[p]; ok {
		return changeModified
	}
	if _, ok := d.Deleted[p]; ok {
		return changeDeleted
	}
	return changeNone
}

type changeKind int

const (
	changeNone changeKind = iota
	changeAdded
	changeModified
	changeDeleted
)

const maxAncestorSteps = 1_000_000

// ancestorStepsLimit lets tests tighten the traversal bound.
var ancestorStepsLimit = maxAncestorSteps

// FindCommonAncestor returns a commit reachable from both a and b. It
// collects every ancestor of a over all parents, then walks b breadth-first
// over all parents and returns the first commit found in that set. found is
// false when the histories are unrelated. A commit that cannot be loaded
// fails with a *HistoryLoadError.
func (r *Repo) FindCommonAncestor(a, b object.Hash) (ancestor object.Hash, found bool, err error) {
	if a == "" || b == "" {
		return "", false, nil
	}
	if a == b {
		return a, true, nil
	}

	limit := ancestorStepsLimit
	if limit <= 0 || limit > maxAncestorSteps {
		limit = maxAncestorSteps
	}
	steps := 0

	seenA := map[object.Hash]struct{}{a: {}}
	queue := []object.Hash{a}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if steps++; steps > limit {
			return "", false, fmt.Errorf("find common ancestor: traversal exceeded maximum steps (%d)", limit)
		}
		c, err := r.Store.ReadCommit(h)
		if err != nil {
			return "", false, &HistoryLoadError{Commit: h, Err: err}
		}
		for _, p := range c.Parents {
			if _, ok := seenA[p]; !ok {
				seenA[p] = struct{}{}
				queue = append(queue, p)
			}
		}
	}

	seenB := map[object.Hash]struct{}{b: {}}
	queue = []object.Hash{b}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, ok := seenA[h]; ok {
			r.Logger().Debug("found common ancestor", "a", a, "b", b, "ancestor", h, "steps", steps)
			return h, true, nil
		}
		if steps++; steps > limit {
			return "", false, fmt.Errorf("find common ancestor: traversal exceeded maximum steps (%d)", limit)
		}
		c, err := r.Store.ReadCommit(h)
		if err != nil {
			return "", false, &HistoryLoadError{Commit: h, Err: err}
		}
		for _, p := range c.Parents {
			if _, ok := seenB[p]; !ok {
				seenB[p] = struct{}{}
				queue = append(queue, p)
			}
		}
	}
	return "", false, nil
}

// DiffTrees compares two tree hashes. An empty base hash is the empty tree.
func (r *Repo) DiffTrees(base, other object.Hash) (*TreeDiff, error) {
	baseFiles, err := r.FlattenTree(base)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	otherFiles, err := r.FlattenTree(other)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	return diffFiles(baseFiles, otherFiles), nil
}

func diffFiles(base, other map[string]TreeFile) *TreeDiff {
	d := &TreeDiff{
		Added:    make(map[string]TreeFile),
		Modified: make(map[string]TreeFile),
		Deleted:  make(map[string]TreeFile),
	}
	for p, o := range other {
		b, ok := base[p]
		switch {
		case !ok:
			d.Added[p] = o
		case b.Hash != o.Hash || b.Mode != o.Mode:
			d.Modified[p] = o
		}
	}
	for p, b := range base {
		if _, ok := other[p]; !ok {
			d.Deleted[p] = b
		}
	}
	return d
}

// mergeAction is what the three-way classification decided for one path.
type mergeAction int

const (
	actionKeep     mergeAction = iota // head's state already wins
	actionTake                        // write other's version
	actionDelete                      // remove the path
	actionConflict                    // write conflict markers
)

// classifyMerge applies the per-path decision table for a change on the
// head side against a change on the other side.
func classifyMerge(headChange, otherChange changeKind, headFile, otherFile TreeFile) mergeAction {
	switch headChange {
	case changeNone:
		switch otherChange {
		case changeModified, changeAdded:
			return actionTake
		case changeDeleted:
			return actionDelete
		}
	case changeModified:
		switch otherChange {
		case changeModified:
			if headFile.Hash != otherFile.Hash || headFile.Mode != otherFile.Mode {
				return actionConflict
			}
		case changeDeleted:
			return actionConflict
		}
	case changeDeleted:
		if otherChange == changeModified {
			return actionConflict
		}
	case changeAdded:
		if otherChange == changeAdded && (headFile.Hash != otherFile.Hash || headFile.Mode != otherFile.Mode) {
			return actionConflict
		}
	}
	return actionKeep
}

type plannedMerge struct {
	path   string
	action mergeAction
	mode   string
	data   []byte
}

// Merge merges other into head and applies the result to the working tree
// and index. otherLabel names the other side in conflict markers.
//
// Unrelated histories return MergeNoCommonHistory without touching
// anything. When other is already contained in head the result is
// MergeUpToDate. When head is an ancestor of other, HEAD fast-forwards.
// Otherwise every path changed on either side since the common ancestor is
// classified; all needed blobs are loaded before the first write so a load
// failure leaves the working tree untouched. A three-way merge leaves merge
// state behind for Commit to conclude.
func (r *Repo) Merge(head, other object.Hash, otherLabel string) (*MergeResult, error) {
	res := &MergeResult{Head: head, Other: other}
	if other == "" {
		return nil, fmt.Errorf("merge: %w", unknownReference(otherLabel))
	}

	if head == "" {
		res.Status = MergeFastForward
		if err := r.fastForward(head, other, otherLabel, res); err != nil {
			return nil, err
		}
		return res, nil
	}

	ancestor, found, err := r.FindCommonAncestor(head, other)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	if !found {
		res.Status = MergeNoCommonHistory
		return res, nil
	}
	res.Ancestor = ancestor

	switch ancestor {
	case other:
		res.Status = MergeUpToDate
		return res, nil
	case head:
		res.Status = MergeFastForward
		if err := r.fastForward(head, other, otherLabel, res); err != nil {
			return nil, err
		}
		return res, nil
	}

	if err := r.ensureClean(); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	baseFiles, err := r.commitFiles(ancestor)
	if err != nil {
		return nil, fmt.Errorf("merge: load ancestor %s: %w", ancestor, err)
	}
	headFiles, err := r.commitFiles(head)
	if err != nil {
		return nil, fmt.Errorf("merge: load head %s: %w", head, err)
	}
	otherFiles, err := r.commitFiles(other)
	if err != nil {
		return nil, fmt.Errorf("merge: load %s: %w", otherLabel, err)
	}

	plan, err := r.planMerge(baseFiles, headFiles, otherFiles, otherLabel)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	tracked, err := r.trackedFiles(head)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	incoming := make(map[string]TreeFile)
	removed := make(map[string]struct{})
	for _, pm := range plan {
		switch pm.action {
		case actionTake, actionConflict:
			incoming[pm.path] = TreeFile{Path: pm.path}
		case actionDelete:
			removed[pm.path] = struct{}{}
		}
	}
	if err := r.checkUntrackedOverwrite(tracked, removed, incoming); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	idx, err := r.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	// Deletions go first so a directory can give way to a file.
	for _, pm := range plan {
		if pm.action != actionDelete {
			continue
		}
		if err := r.StageDeletion(idx, pm.path, false); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		res.Deleted = append(res.Deleted, pm.path)
	}
	for _, pm := range plan {
		switch pm.action {
		case actionTake:
			if err := r.writeWorkFile(pm.path, pm.data, pm.mode); err != nil {
				return nil, fmt.Errorf("merge: %w", err)
			}
			idx.clearPathConflicts(pm.path)
			idx.Stage(pm.path, pm.mode, object.HashBytes(pm.data))
			res.Updated = append(res.Updated, pm.path)
		case actionConflict:
			if err := r.writeWorkFile(pm.path, pm.data, pm.mode); err != nil {
				return nil, fmt.Errorf("merge: %w", err)
			}
			res.ConflictedPaths = append(res.ConflictedPaths, pm.path)
			r.Logger().Info("merge conflict", "path", pm.path)
		}
	}
	if err := r.SaveIndex(idx); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	res.Status = MergeClean
	if len(res.ConflictedPaths) > 0 {
		res.Status = MergeConflicted
	}
	state := &MergeState{
		Head:      other,
		Message:   fmt.Sprintf("Merge %s", otherLabel),
		Conflicts: res.ConflictedPaths,
	}
	if err := r.writeMergeState(state); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	return res, nil
}

// planMerge classifies every touched path and loads the blobs each action
// needs. Nothing is written.
func (r *Repo) planMerge(base, head, other map[string]TreeFile, otherLabel string) ([]plannedMerge, error) {
	headChanges := diffFiles(base, head)
	otherChanges := diffFiles(base, other)

	touched := make(map[string]struct{})
	for _, d := range []*TreeDiff{headChanges, otherChanges} {
		for p := range d.Added {
			touched[p] = struct{}{}
		}
		for p := range d.Modified {
			touched[p] = struct{}{}
		}
		for p := range d.Deleted {
			touched[p] = struct{}{}
		}
	}
	paths := make([]string, 0, len(touched))
	for p := range touched {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	blobs := make(map[object.Hash][]byte)
	load := func(f TreeFile, ok bool) ([]byte, error) {
		if !ok {
			return nil, nil
		}
		if data, cached := blobs[f.Hash]; cached {
			return data, nil
		}
		blob, err := r.Store.ReadBlob(f.Hash)
		if err != nil {
			return nil, fmt.Errorf("read blob %s for %q: %w", f.Hash, f.Path, err)
		}
		blobs[f.Hash] = blob.Data
		return blob.Data, nil
	}

	var plan []plannedMerge
	for _, p := range paths {
		headFile, inHead := head[p]
		otherFile, inOther := other[p]
		action := classifyMerge(headChanges.change(p), otherChanges.change(p), headFile, otherFile)
		r.Logger().Debug("merge classify", "path", p, "action", action)

		pm := plannedMerge{path: p, action: action}
		switch action {
		case actionKeep:
			continue
		case actionTake:
			data, err := load(otherFile, inOther)
			if err != nil {
				return nil, err
			}
			pm.data, pm.mode = data, otherFile.Mode
		case actionConflict:
			headData, err := load(headFile, inHead)
			if err != nil {
				return nil, err
			}
			otherData, err := load(otherFile, inOther)
			if err != nil {
				return nil, err
			}
			pm.data = renderConflict(headData, otherData, otherLabel)
			pm.mode = otherFile.Mode
			if inHead {
				pm.mode = headFile.Mode
			}
		}
		plan = append(plan, pm)
	}
	return plan, nil
}

// renderConflict writes both versions between conflict markers. Each side
// ends with a newline; a missing side is empty.
func renderConflict(head, other []byte, otherLabel string) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<<<<<< HEAD\n")
	buf.Write(head)
	if len(head) > 0 && head[len(head)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString("=======\n")
	buf.Write(other)
	if len(other) > 0 && other[len(other)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(">>>>>>> " + otherLabel + "\n")
	return buf.Bytes()
}

// fastForward moves the working tree, index and HEAD from head to other.
func (r *Repo) fastForward(head, other object.Hash, otherLabel string, res *MergeResult) error {
	if err := r.ensureClean(); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	target, err := r.commitFiles(other)
	if err != nil {
		return fmt.Errorf("merge: load %s: %w", otherLabel, err)
	}
	blobs, err := r.loadBlobs(target)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	tracked, err := r.trackedFiles(head)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	if err := r.checkUntrackedOverwrite(tracked, tracked, target); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	if err := r.replaceWorktree(tracked, target, blobs); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	if err := r.advanceHead(other, head, "merge "+otherLabel+": Fast-forward"); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	for p := range target {
		res.Updated = append(res.Updated, p)
	}
	sort.Strings(res.Updated)
	r.Logger().Info("fast-forward", "from", head, "to", other)
	return nil
}

// MergeBranch merges the named branch (or commit) into HEAD. A clean
// three-way merge is committed with both parents; a conflicted one leaves
// merge state for the user to resolve. Unrelated histories fail with
// ErrNoCommonHistory.
func (r *Repo) MergeBranch(name string, author object.Signature) (*MergeResult, error) {
	state, err := r.readMergeState()
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	if state != nil {
		return nil, fmt.Errorf("merge: %w", ErrMergeInProgress)
	}

	head, err := r.HeadCommit()
	if err != nil {
		return nil, fmt.Errorf("merge: resolve HEAD: %w", err)
	}
	other, err := r.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	res, err := r.Merge(head, other, name)
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case MergeNoCommonHistory:
		return res, fmt.Errorf("merge %s: %w", name, ErrNoCommonHistory)
	case MergeClean:
		current, err := r.CurrentBranch()
		if err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		msg := fmt.Sprintf("Merge branch '%s'", name)
		if current != "" {
			msg += " into " + current
		}
		h, err := r.Commit(msg, author)
		if err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		res.Commit = h
	}
	return res, nil
}

// AbortMerge discards a pending merge, restoring the working tree and
// index to HEAD.
func (r *Repo) AbortMerge() error {
	state, err := r.readMergeState()
	if err != nil {
		return fmt.Errorf("merge abort: %w", err)
	}
	if state == nil {
		return fmt.Errorf("merge abort: no merge in progress")
	}
	head, err := r.HeadCommit()
	if err != nil {
		return fmt.Errorf("merge abort: %w", err)
	}
	target, err := r.commitFiles(head)
	if err != nil {
		return fmt.Errorf("merge abort: %w", err)
	}
	blobs, err := r.loadBlobs(target)
	if err != nil {
		return fmt.Errorf("merge abort: %w", err)
	}
	tracked, err := r.trackedFiles(head)
	if err != nil {
		return fmt.Errorf("merge abort: %w", err)
	}
	for _, p := range state.Conflicts {
		tracked[p] = struct{}{}
	}
	if err := r.replaceWorktree(tracked, target, blobs); err != nil {
		return fmt.Errorf("merge abort: %w", err)
	}
	return r.clearMergeState()
}
