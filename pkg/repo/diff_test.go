package repo

import (
	"os"
	"testing"

	"github.com/imraghavojha/lit/pkg/diff"
)

func TestDiffWorktreeAndStaged(t *testing.T) {
	r := newTestRepo(t)
	commitFilesOn(t, r, map[string]string{"a": "1\n2\n3\n", "b": "b\n"}, "base")

	writeFile(t, r, "a", "1\ntwo\n3\n")
	writeFile(t, r, "c", "new\n")
	if err := r.Add([]string{abs(r, "c")}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	unstaged, err := r.DiffWorktree()
	if err != nil {
		t.Fatalf("DiffWorktree: %v", err)
	}
	if len(unstaged) != 1 || unstaged[0].Path != "a" || unstaged[0].Status != diff.Modified {
		t.Fatalf("unstaged = %+v", unstaged)
	}
	changes := 0
	for _, op := range unstaged[0].Ops {
		if op.Type != diff.Equal {
			changes++
		}
	}
	if changes != 2 {
		t.Errorf("changed lines = %d, want 2", changes)
	}

	staged, err := r.DiffStaged()
	if err != nil {
		t.Fatalf("DiffStaged: %v", err)
	}
	if len(staged) != 1 || staged[0].Path != "c" || staged[0].Status != diff.Added {
		t.Fatalf("staged = %+v", staged)
	}
}

func TestDiffCommits(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFilesOn(t, r, map[string]string{"keep": "k\n", "gone": "g\n"}, "one")
	c2 := applyAndCommit(t, r, map[string]string{"gone": "", "keep": "k2\n"}, "two")

	fds, err := r.DiffCommits(c1, c2)
	if err != nil {
		t.Fatalf("DiffCommits: %v", err)
	}
	if len(fds) != 2 {
		t.Fatalf("got %d file diffs", len(fds))
	}
	if fds[0].Path != "gone" || fds[0].Status != diff.Deleted {
		t.Errorf("fds[0] = %+v", fds[0])
	}
	if fds[1].Path != "keep" || fds[1].Status != diff.Modified {
		t.Errorf("fds[1] = %+v", fds[1])
	}
}

func TestDiffCommitWorktree(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFilesOn(t, r, map[string]string{"a": "1\n", "b": "b\n"}, "base")

	writeFile(t, r, "a", "2\n")
	if err := os.Remove(abs(r, "b")); err != nil {
		t.Fatalf("remove b: %v", err)
	}
	writeFile(t, r, "c", "staged\n")
	if err := r.Add([]string{abs(r, "c")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	writeFile(t, r, "untracked", "u\n")

	fds, err := r.DiffCommitWorktree(c1)
	if err != nil {
		t.Fatalf("DiffCommitWorktree: %v", err)
	}
	want := []struct {
		path   string
		status diff.Status
	}{
		{"a", diff.Modified},
		{"b", diff.Deleted},
		{"c", diff.Added},
	}
	if len(fds) != len(want) {
		t.Fatalf("got %d file diffs: %+v", len(fds), fds)
	}
	for i, w := range want {
		if fds[i].Path != w.path || fds[i].Status != w.status {
			t.Errorf("fds[%d] = %s %v, want %s %v", i, fds[i].Path, fds[i].Status, w.path, w.status)
		}
	}
}
