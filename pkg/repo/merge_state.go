package repo

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/imraghavojha/lit/pkg/object"
)

// MergeState is the on-disk record of a three-way merge that has been
// applied to the working tree but not yet committed.
//
//	.lit/MERGE_HEAD       commit being merged in
//	.lit/MERGE_MSG        message for the eventual merge commit
//	.lit/MERGE_CONFLICTS  conflicted paths not yet re-staged, one per line
type MergeState struct {
	Head      object.Hash
	Message   string
	Conflicts []string
}

// Conflicted reports whether p still has unresolved conflicts.
func (s *MergeState) Conflicted(p string) bool {
	for _, c := range s.Conflicts {
		if c == p {
			return true
		}
	}
	return false
}

// conflictsUnder returns the conflicted paths equal to or beneath p.
func (s *MergeState) conflictsUnder(p string) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, c := range s.Conflicts {
		if p == "." || c == p || strings.HasPrefix(c, p+"/") {
			out = append(out, c)
		}
	}
	return out
}

// resolve removes paths from the conflict list and reports whether the
// list changed.
func (s *MergeState) resolve(paths ...string) bool {
	if len(s.Conflicts) == 0 || len(paths) == 0 {
		return false
	}
	drop := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		drop[p] = struct{}{}
	}
	kept := s.Conflicts[:0]
	for _, c := range s.Conflicts {
		if _, ok := drop[c]; !ok {
			kept = append(kept, c)
		}
	}
	changed := len(kept) != len(s.Conflicts)
	s.Conflicts = kept
	return changed
}

// MergeState returns the pending merge, or nil when none is in progress.
func (r *Repo) MergeState() (*MergeState, error) {
	return r.readMergeState()
}

func (r *Repo) readMergeState() (*MergeState, error) {
	head, err := os.ReadFile(r.litPath("MERGE_HEAD"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read merge state: %w", err)
	}
	s := &MergeState{Head: object.Hash(strings.TrimSpace(string(head)))}

	msg, err := os.ReadFile(r.litPath("MERGE_MSG"))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read merge state: %w", err)
	}
	s.Message = strings.TrimRight(string(msg), "\n")

	conflicts, err := os.ReadFile(r.litPath("MERGE_CONFLICTS"))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read merge state: %w", err)
	}
	for _, line := range strings.Split(string(conflicts), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			s.Conflicts = append(s.Conflicts, line)
		}
	}
	return s, nil
}

func (r *Repo) writeMergeState(s *MergeState) error {
	if err := writeFileAtomic(r.litPath("MERGE_HEAD"), []byte(string(s.Head)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write merge state: %w", err)
	}
	if err := writeFileAtomic(r.litPath("MERGE_MSG"), []byte(s.Message+"\n"), 0o644); err != nil {
		return fmt.Errorf("write merge state: %w", err)
	}
	return r.writeMergeConflicts(s.Conflicts)
}

func (r *Repo) writeMergeConflicts(paths []string) error {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	var b strings.Builder
	for _, p := range sorted {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	if err := writeFileAtomic(r.litPath("MERGE_CONFLICTS"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write merge conflicts: %w", err)
	}
	return nil
}

func (r *Repo) clearMergeState() error {
	for _, name := range []string{"MERGE_HEAD", "MERGE_MSG", "MERGE_CONFLICTS"} {
		if err := os.Remove(r.litPath(name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear merge state: %w", err)
		}
	}
	return nil
}
