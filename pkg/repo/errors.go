package repo

import (
	"errors"
	"fmt"

	"github.com/imraghavojha/lit/pkg/object"
)

var (
	// ErrNotRepository is returned by Open when no .lit directory is found.
	ErrNotRepository = errors.New("not a lit repository (or any parent up to /)")

	// ErrUnknownReference is returned when a name is neither a branch nor
	// the hash of an existing commit.
	ErrUnknownReference = errors.New("unknown reference")

	// ErrHistoryLoad is returned when a commit cannot be loaded while
	// walking history.
	ErrHistoryLoad = errors.New("history load failed")

	// ErrNoCommonHistory is returned when two commits share no ancestor.
	ErrNoCommonHistory = errors.New("refusing to merge unrelated histories")

	// ErrMergeInProgress is returned when an operation requires that no
	// merge is pending.
	ErrMergeInProgress = errors.New("merge in progress")

	// ErrUnresolvedConflicts is returned when committing while conflicted
	// paths have not been re-staged.
	ErrUnresolvedConflicts = errors.New("unresolved merge conflicts")

	// ErrNothingToCommit is returned when the index matches HEAD.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrDirtyWorktree is returned when tracked files have uncommitted changes.
	ErrDirtyWorktree = errors.New("uncommitted changes in working tree")

	// ErrRefCASMismatch is returned when a ref no longer holds the expected
	// old value.
	ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")

	// ErrInvalidBranchName is returned for names that cannot be used as a
	// branch file.
	ErrInvalidBranchName = errors.New("invalid branch name")

	// ErrBranchExists is returned when creating a branch that already exists.
	ErrBranchExists = errors.New("branch already exists")
)

// HistoryLoadError records which commit could not be loaded during a
// history walk. It matches ErrHistoryLoad with errors.Is.
type HistoryLoadError struct {
	Commit object.Hash
	Err    error
}

func (e *HistoryLoadError) Error() string {
	return fmt.Sprintf("%s: commit %s: %v", ErrHistoryLoad, e.Commit, e.Err)
}

func (e *HistoryLoadError) Unwrap() error {
	return e.Err
}

func (e *HistoryLoadError) Is(target error) bool {
	return target == ErrHistoryLoad
}

func unknownReference(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownReference, name)
}
