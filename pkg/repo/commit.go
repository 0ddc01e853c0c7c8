package repo

import (
	"fmt"
	"strings"
	"time"

	"github.com/imraghavojha/lit/pkg/object"
)

// NewSignature builds an author signature stamped with t. The offset is
// always in the canonical "+hhmm" form commits require.
func NewSignature(name, email string, t time.Time) object.Signature {
	return object.Signature{
		Name:   strings.TrimSpace(name),
		Email:  strings.TrimSpace(email),
		When:   t.Unix(),
		Offset: t.Format("-0700"),
	}
}

// Commit records the index as a new commit on the current branch (or the
// detached HEAD).
//
//  1. Refuse while a merge has unresolved conflicts.
//  2. Build and persist the tree from the index.
//  3. Parents are HEAD (if any) plus MERGE_HEAD when concluding a merge.
//  4. Refuse when the tree equals HEAD's tree outside a merge.
//  5. Write the commit, move HEAD with a compare-and-swap.
//  6. Drop consumed deletion markers and clear merge state.
func (r *Repo) Commit(message string, author object.Signature) (object.Hash, error) {
	state, err := r.readMergeState()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if state != nil && len(state.Conflicts) > 0 {
		return "", fmt.Errorf("commit: %w: %s", ErrUnresolvedConflicts, strings.Join(state.Conflicts, ", "))
	}
	if strings.TrimSpace(message) == "" {
		if state == nil || state.Message == "" {
			return "", fmt.Errorf("commit: empty commit message")
		}
		message = state.Message
	}

	idx, err := r.LoadIndex()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	treeHash, err := r.WriteTreeFromIndex(idx)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	parent, err := r.HeadCommit()
	if err != nil {
		return "", fmt.Errorf("commit: resolve HEAD: %w", err)
	}
	var parents []object.Hash
	if parent != "" {
		parents = append(parents, parent)
		if state == nil {
			pc, err := r.Store.ReadCommit(parent)
			if err != nil {
				return "", fmt.Errorf("commit: read HEAD commit: %w", err)
			}
			if pc.TreeHash == treeHash {
				return "", fmt.Errorf("commit: %w", ErrNothingToCommit)
			}
		}
	} else if len(idx.Live()) == 0 {
		return "", fmt.Errorf("commit: %w", ErrNothingToCommit)
	}
	if state != nil {
		parents = append(parents, state.Head)
	}

	if author.When == 0 {
		now := time.Now()
		author.When = now.Unix()
		author.Offset = now.Format("-0700")
	}
	commitHash, err := r.Store.WriteCommit(&object.Commit{
		TreeHash: treeHash,
		Parents:  parents,
		Author:   author,
		Message:  message,
	})
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	reason := "commit: " + firstLine(message)
	if state != nil {
		reason = "commit (merge): " + firstLine(message)
	} else if parent == "" {
		reason = "commit (initial): " + firstLine(message)
	}
	if err := r.advanceHead(commitHash, parent, reason); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	idx.DropDeletions()
	if err := r.SaveIndex(idx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if state != nil {
		if err := r.clearMergeState(); err != nil {
			return "", fmt.Errorf("commit: %w", err)
		}
	}
	r.Logger().Info("created commit", "hash", commitHash, "parents", len(parents))
	return commitHash, nil
}

// LogEntry pairs a commit with its hash.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.Commit
}

// Log walks the commit history starting from start, following first-parent
// links, returning up to limit commits newest first. limit <= 0 means no
// limit.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var out []LogEntry
	current := start
	for current != "" && (limit <= 0 || len(out) < limit) {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			return nil, fmt.Errorf("log: %w", &HistoryLoadError{Commit: current, Err: err})
		}
		out = append(out, LogEntry{Hash: current, Commit: c})
		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}
	return out, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
