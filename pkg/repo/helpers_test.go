package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/imraghavojha/lit/pkg/object"
)

var testAuthor = object.Signature{
	Name:   "Test Author",
	Email:  "test@example.com",
	When:   1700000000,
	Offset: "+0000",
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r
}

// writeFile writes content to rel inside the working tree.
func writeFile(t *testing.T, r *Repo, rel, content string) {
	t.Helper()
	abs := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func readFile(t *testing.T, r *Repo, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func assertMissing(t *testing.T, r *Repo, rel string) {
	t.Helper()
	if _, err := os.Lstat(filepath.Join(r.RootDir, filepath.FromSlash(rel))); !os.IsNotExist(err) {
		t.Fatalf("%s should not exist (err=%v)", rel, err)
	}
}

// abs returns rel as an absolute path inside the repository.
func abs(r *Repo, rel string) string {
	return filepath.Join(r.RootDir, filepath.FromSlash(rel))
}

// commitAll stages the whole working tree and commits it.
func commitAll(t *testing.T, r *Repo, message string) object.Hash {
	t.Helper()
	if err := r.Add([]string{r.RootDir}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, err := r.Commit(message, testAuthor)
	if err != nil {
		t.Fatalf("Commit(%q): %v", message, err)
	}
	return h
}

// commitFilesOn replaces the working tree with files and commits.
func commitFilesOn(t *testing.T, r *Repo, files map[string]string, message string) object.Hash {
	t.Helper()
	for p, c := range files {
		writeFile(t, r, p, c)
	}
	return commitAll(t, r, message)
}

func switchTo(t *testing.T, r *Repo, target string) {
	t.Helper()
	if err := r.Checkout(target, CheckoutOptions{}); err != nil {
		t.Fatalf("Checkout(%s): %v", target, err)
	}
}

func mustHead(t *testing.T, r *Repo) object.Hash {
	t.Helper()
	h, err := r.HeadCommit()
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}
	return h
}

// replaceWithFile removes whatever is at rel, directory or file, and
// writes a regular file there.
func replaceWithFile(t *testing.T, r *Repo, rel, content string) {
	t.Helper()
	if err := os.RemoveAll(abs(r, rel)); err != nil {
		t.Fatalf("remove %s: %v", rel, err)
	}
	writeFile(t, r, rel, content)
}
