package repo

import (
	"errors"
	"testing"
	"time"
)

func TestCommit_CreatesObjectAndMovesBranch(t *testing.T) {
	r := newTestRepo(t)
	writeFile(t, r, "main.go", "package main\n")
	h := commitAll(t, r, "initial commit")

	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.Message != "initial commit" || c.Author != testAuthor || len(c.Parents) != 0 {
		t.Errorf("commit = %+v", c)
	}
	if got, err := r.ResolveRef("main"); err != nil || got != h {
		t.Errorf("main = %s, %v; want %s", got, err, h)
	}
}

func TestCommit_SecondHasParentAndDropsDeletions(t *testing.T) {
	r := newTestRepo(t)
	writeFile(t, r, "a.txt", "a\n")
	writeFile(t, r, "b.txt", "b\n")
	c1 := commitAll(t, r, "first")

	if err := r.Remove([]string{abs(r, "b.txt")}, false); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	c2, err := r.Commit("drop b", testAuthor)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	c, err := r.Store.ReadCommit(c2)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(c.Parents) != 1 || c.Parents[0] != c1 {
		t.Errorf("Parents = %v, want [%s]", c.Parents, c1)
	}
	files, err := r.FlattenTree(c.TreeHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if _, ok := files["b.txt"]; ok || len(files) != 1 {
		t.Errorf("tree files = %v", files)
	}
	if _, ok := mustIndex(t, r).Get("b.txt"); ok {
		t.Error("deletion marker survived the commit")
	}
}

func TestCommit_NothingToCommit(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.Commit("empty", testAuthor); !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("commit on empty repo error = %v", err)
	}
	writeFile(t, r, "a.txt", "a\n")
	commitAll(t, r, "first")
	if _, err := r.Commit("again", testAuthor); !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("commit without changes error = %v", err)
	}
	if _, err := r.Commit("  ", testAuthor); err == nil {
		t.Error("blank message should fail")
	}
}

func TestCommit_FillsTimestamp(t *testing.T) {
	r := newTestRepo(t)
	writeFile(t, r, "a.txt", "a\n")
	if err := r.Add([]string{r.RootDir}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sig := NewSignature("N", "n@example.com", time.Time{})
	sig.When = 0
	h, err := r.Commit("now", sig)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.Author.When == 0 || c.Author.Offset == "" {
		t.Errorf("author = %+v, want timestamp filled", c.Author)
	}
}

func TestLog_FirstParentNewestFirst(t *testing.T) {
	r := newTestRepo(t)
	var hashes []string
	for _, content := range []string{"1\n", "2\n", "3\n"} {
		writeFile(t, r, "f", content)
		hashes = append(hashes, string(commitAll(t, r, "v"+content[:1])))
	}

	entries, err := r.Log(mustHead(t, r), 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Log returned %d entries", len(entries))
	}
	for i, e := range entries {
		if string(e.Hash) != hashes[len(hashes)-1-i] {
			t.Errorf("entry %d = %s", i, e.Hash)
		}
	}
	limited, err := r.Log(mustHead(t, r), 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("Log(limit 2) = %d entries, %v", len(limited), err)
	}
}

func TestLog_MissingParentIsHistoryLoadError(t *testing.T) {
	r := newTestRepo(t)
	writeFile(t, r, "f", "1\n")
	c1 := commitAll(t, r, "one")
	writeFile(t, r, "f", "2\n")
	commitAll(t, r, "two")
	if err := r.Store.Delete(c1); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err := r.Log(mustHead(t, r), 0)
	var hle *HistoryLoadError
	if !errors.As(err, &hle) || hle.Commit != c1 {
		t.Fatalf("Log error = %v, want HistoryLoadError for %s", err, c1)
	}
	if !errors.Is(err, ErrHistoryLoad) {
		t.Error("error should match ErrHistoryLoad")
	}
}
