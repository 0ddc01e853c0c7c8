package repo

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imraghavojha/lit/pkg/object"
)

func TestCheckout_RestoresFilesAndIndex(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFilesOn(t, r, map[string]string{"a.txt": "v1\n", "sub/b.txt": "b\n"}, "one")
	if err := r.CreateBranch("old", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	applyAndCommit(t, r, map[string]string{"a.txt": "v2\n", "sub/b.txt": "", "c.txt": "c\n"}, "two")

	switchTo(t, r, "old")

	if got := readFile(t, r, "a.txt"); got != "v1\n" {
		t.Errorf("a.txt = %q", got)
	}
	if got := readFile(t, r, "sub/b.txt"); got != "b\n" {
		t.Errorf("sub/b.txt = %q", got)
	}
	assertMissing(t, r, "c.txt")
	if b, _ := r.CurrentBranch(); b != "old" {
		t.Errorf("CurrentBranch = %q", b)
	}
	idx := mustIndex(t, r)
	if idx.Len() != 2 {
		t.Errorf("index has %d entries, want 2: %v", idx.Len(), idx.Entries())
	}

	switchTo(t, r, "main")
	assertMissing(t, r, "sub")
	if got := readFile(t, r, "c.txt"); got != "c\n" {
		t.Errorf("c.txt = %q", got)
	}
}

func TestCheckout_DetachedHead(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFilesOn(t, r, map[string]string{"f": "1\n"}, "one")
	applyAndCommit(t, r, map[string]string{"f": "2\n"}, "two")

	switchTo(t, r, string(c1))

	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != string(c1) {
		t.Errorf("HEAD = %q, want detached at %s", head, c1)
	}
	if b, _ := r.CurrentBranch(); b != "" {
		t.Errorf("CurrentBranch = %q, want detached", b)
	}
	if readFile(t, r, "f") != "1\n" {
		t.Error("f not restored")
	}

	writeFile(t, r, "f", "detached work\n")
	h := commitAll(t, r, "on detached head")
	if got, _ := r.Head(); got != string(h) {
		t.Errorf("detached commit did not move HEAD: %s", got)
	}
}

func TestCheckout_DirtyWorkTreeRefused(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFilesOn(t, r, map[string]string{"f": "1\n"}, "one")
	if err := r.CreateBranch("old", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	applyAndCommit(t, r, map[string]string{"f": "2\n"}, "two")
	writeFile(t, r, "f", "local edit\n")

	err := r.Checkout("old", CheckoutOptions{})
	if !errors.Is(err, ErrDirtyWorktree) {
		t.Fatalf("Checkout error = %v, want ErrDirtyWorktree", err)
	}
	if readFile(t, r, "f") != "local edit\n" {
		t.Error("refused checkout modified the working tree")
	}

	if err := r.Checkout("old", CheckoutOptions{Force: true}); err != nil {
		t.Fatalf("forced Checkout: %v", err)
	}
	if readFile(t, r, "f") != "1\n" {
		t.Error("forced checkout did not discard local edit")
	}
}

func TestCheckout_UntrackedFiles(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFilesOn(t, r, map[string]string{"f": "1\n"}, "one")
	if err := r.CreateBranch("old", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	applyAndCommit(t, r, map[string]string{"g": "tracked on main\n"}, "two")

	writeFile(t, r, "notes.txt", "mine\n")
	switchTo(t, r, "old")
	if readFile(t, r, "notes.txt") != "mine\n" {
		t.Error("untracked file was not preserved")
	}

	writeFile(t, r, "g", "untracked in the way\n")
	err := r.Checkout("main", CheckoutOptions{})
	if !errors.Is(err, ErrDirtyWorktree) || !strings.Contains(err.Error(), `"g"`) {
		t.Fatalf("Checkout error = %v, want untracked overwrite refusal", err)
	}
}

func TestCheckout_RestoresExecutableMode(t *testing.T) {
	r := newTestRepo(t)
	writeFile(t, r, "run.sh", "#!/bin/sh\n")
	if err := os.Chmod(abs(r, "run.sh"), 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	c1 := commitAll(t, r, "script")
	if err := r.CreateBranch("old", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	applyAndCommit(t, r, map[string]string{"run.sh": ""}, "drop script")

	switchTo(t, r, "old")
	info, err := os.Stat(abs(r, "run.sh"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Errorf("run.sh mode = %v, want executable", info.Mode())
	}
}

func TestCheckout_UnknownTarget(t *testing.T) {
	r := newTestRepo(t)
	commitFilesOn(t, r, map[string]string{"f": "1\n"}, "one")
	if err := r.Checkout("nowhere", CheckoutOptions{}); !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("Checkout error = %v, want ErrUnknownReference", err)
	}
}

func TestSwitchNewBranch(t *testing.T) {
	r := newTestRepo(t)
	if err := r.SwitchNewBranch("early"); err != nil {
		t.Fatalf("SwitchNewBranch on empty repo: %v", err)
	}
	if b, _ := r.CurrentBranch(); b != "early" {
		t.Fatalf("CurrentBranch = %q", b)
	}
	c1 := commitFilesOn(t, r, map[string]string{"f": "1\n"}, "one")

	if err := r.SwitchNewBranch("topic"); err != nil {
		t.Fatalf("SwitchNewBranch: %v", err)
	}
	if got, _ := r.ResolveRef("topic"); got != c1 {
		t.Errorf("topic = %s, want %s", got, c1)
	}
	if b, _ := r.CurrentBranch(); b != "topic" {
		t.Errorf("CurrentBranch = %q", b)
	}
}

func TestCheckout_DirectoryAndFileSwapPlaces(t *testing.T) {
	r := newTestRepo(t)
	commitFilesOn(t, r, map[string]string{"d/x": "x\n", "top": "t\n"}, "dir")
	if err := r.SwitchNewBranch("feature"); err != nil {
		t.Fatalf("SwitchNewBranch: %v", err)
	}
	replaceWithFile(t, r, "d", "flat\n")
	commitAll(t, r, "flatten d")

	switchTo(t, r, "main")
	if got := readFile(t, r, "d/x"); got != "x\n" {
		t.Errorf("d/x on main = %q", got)
	}
	switchTo(t, r, "feature")
	if got := readFile(t, r, "d"); got != "flat\n" {
		t.Errorf("d on feature = %q", got)
	}
	entries, err := r.Status()
	if err != nil || len(entries) != 0 {
		t.Fatalf("status after checkout = %+v, %v", entries, err)
	}

	switchTo(t, r, "main")
	writeFile(t, r, "d/notes", "mine\n")
	err = r.Checkout("feature", CheckoutOptions{})
	if !errors.Is(err, ErrDirtyWorktree) || !strings.Contains(err.Error(), `"d/notes"`) {
		t.Fatalf("Checkout error = %v, want refusal naming d/notes", err)
	}
	if readFile(t, r, "d/notes") != "mine\n" || readFile(t, r, "d/x") != "x\n" {
		t.Error("refused checkout touched the working tree")
	}
}

func TestCheckout_UntrackedFileBlocksParentDirectory(t *testing.T) {
	r := newTestRepo(t)
	c1 := commitFilesOn(t, r, map[string]string{"top": "t\n"}, "one")
	if err := r.CreateBranch("old", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	applyAndCommit(t, r, map[string]string{"d/x": "x\n"}, "nested")
	switchTo(t, r, "old")

	writeFile(t, r, "d", "untracked\n")
	err := r.Checkout("main", CheckoutOptions{})
	if !errors.Is(err, ErrDirtyWorktree) || !strings.Contains(err.Error(), `"d"`) {
		t.Fatalf("Checkout error = %v, want refusal naming d", err)
	}
	if readFile(t, r, "d") != "untracked\n" {
		t.Error("untracked file was modified")
	}
}

func TestCheckout_RejectsTreeEscapingRoot(t *testing.T) {
	r := newTestRepo(t)
	blob, err := r.Store.WriteBlob(&object.Blob{Data: []byte("outside\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	inner, err := r.Store.WriteTree(&object.Tree{Entries: []object.TreeEntry{
		{Mode: object.TreeModeFile, Type: object.TypeBlob, Hash: blob, Name: "escaped"},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	raw, err := hex.DecodeString(string(inner))
	if err != nil {
		t.Fatalf("decode hash: %v", err)
	}
	hostile, err := r.Store.Write(append([]byte("040000 ..\x00"), raw...))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	c, err := r.Store.WriteCommit(&object.Commit{TreeHash: hostile, Author: testAuthor, Message: "evil"})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}

	err = r.Checkout(string(c), CheckoutOptions{Force: true})
	if !errors.Is(err, object.ErrMalformedObject) {
		t.Fatalf("Checkout error = %v, want ErrMalformedObject", err)
	}
	if _, err := os.Lstat(filepath.Join(filepath.Dir(r.RootDir), "escaped")); !os.IsNotExist(err) {
		t.Fatalf("file written outside the repository (err=%v)", err)
	}
}
