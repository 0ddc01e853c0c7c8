package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imraghavojha/lit/pkg/repo"
)

// setupWorkdir creates an empty working directory, makes it the process
// cwd and points HOME at a scratch directory.
func setupWorkdir(t *testing.T) string {
	t.Helper()
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LIT_USER_NAME", "")
	t.Setenv("LIT_USER_EMAIL", "")
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

func runLit(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustLit(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runLit(t, args...)
	require.NoError(t, err, "lit %v\n%s", args, out)
	return out
}

func writeWorkFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestInitAddCommitLog(t *testing.T) {
	dir := setupWorkdir(t)

	out := mustLit(t, "init")
	assert.Contains(t, out, "initialized empty lit repository")

	writeWorkFile(t, dir, "hello.txt", "hello\n")
	mustLit(t, "add", "hello.txt")
	out = mustLit(t, "commit", "-m", "first", "--author", "Ada", "--email", "ada@example.com")
	assert.Regexp(t, `^\[main [0-9a-f]{7}\] first\n$`, out)

	out = mustLit(t, "log", "--oneline")
	assert.Regexp(t, `^[0-9a-f]{7} first\n$`, out)

	out = mustLit(t, "log")
	assert.Contains(t, out, "Author: Ada <ada@example.com>")

	out = mustLit(t, "status")
	assert.Contains(t, out, "on main")
	assert.Contains(t, out, "nothing to commit")
}

func TestCommitRequiresMessage(t *testing.T) {
	dir := setupWorkdir(t)
	mustLit(t, "init")
	writeWorkFile(t, dir, "a", "a\n")
	mustLit(t, "add", "a")

	_, err := runLit(t, "commit")
	assert.ErrorContains(t, err, "commit message is required")
}

func TestCommandsOutsideRepository(t *testing.T) {
	setupWorkdir(t)
	_, err := runLit(t, "status")
	assert.ErrorIs(t, err, repo.ErrNotRepository)
}

func TestStatusSections(t *testing.T) {
	dir := setupWorkdir(t)
	mustLit(t, "init")
	writeWorkFile(t, dir, "tracked", "1\n")
	mustLit(t, "add", ".")
	mustLit(t, "commit", "-m", "base", "--author", "T")

	writeWorkFile(t, dir, "tracked", "2\n")
	writeWorkFile(t, dir, "staged", "s\n")
	writeWorkFile(t, dir, "loose", "l\n")
	mustLit(t, "add", "staged")

	out := mustLit(t, "status")
	assert.Contains(t, out, "staged:\n  + staged\n")
	assert.Contains(t, out, "unstaged:\n  ~ tracked\n")
	assert.Contains(t, out, "untracked:\n  loose\n")
}

func TestDiffCmd(t *testing.T) {
	dir := setupWorkdir(t)
	mustLit(t, "init")
	writeWorkFile(t, dir, "f", "old\n")
	mustLit(t, "add", "f")
	mustLit(t, "commit", "-m", "base", "--author", "T")

	writeWorkFile(t, dir, "f", "new\n")
	out := mustLit(t, "diff")
	assert.Contains(t, out, "diff --lit a/f b/f\n")
	assert.Contains(t, out, "-old\n+new\n")

	out = mustLit(t, "diff", "--staged")
	assert.Empty(t, out)

	mustLit(t, "add", "f")
	out = mustLit(t, "diff", "--staged")
	assert.Contains(t, out, "+new\n")

	mustLit(t, "commit", "-m", "second", "--author", "T")
	writeWorkFile(t, dir, "f", "newest\n")
	writeWorkFile(t, dir, "scratch", "x\n")
	out = mustLit(t, "diff", "HEAD")
	assert.Contains(t, out, "-new\n+newest\n")
	assert.NotContains(t, out, "scratch")
}

func TestMergeConflictFlow(t *testing.T) {
	dir := setupWorkdir(t)
	mustLit(t, "init")
	writeWorkFile(t, dir, "f", "1\n")
	mustLit(t, "add", "f")
	mustLit(t, "commit", "-m", "base", "--author", "T")
	mustLit(t, "branch", "feature")

	writeWorkFile(t, dir, "f", "2\n")
	mustLit(t, "add", "f")
	mustLit(t, "commit", "-m", "main side", "--author", "T")

	out := mustLit(t, "switch", "feature")
	assert.Contains(t, out, "switched to branch 'feature'")
	writeWorkFile(t, dir, "f", "3\n")
	mustLit(t, "add", "f")
	mustLit(t, "commit", "-m", "feature side", "--author", "T")
	mustLit(t, "checkout", "main")

	out = mustLit(t, "merge", "feature", "--author", "T")
	assert.Contains(t, out, "CONFLICT: f")

	data, err := os.ReadFile(filepath.Join(dir, "f"))
	require.NoError(t, err)
	assert.Equal(t, "<<<<<<< HEAD\n2\n=======\n3\n>>>>>>> feature\n", string(data))

	out = mustLit(t, "status")
	assert.Contains(t, out, "conflicts:\n  ! f\n")

	_, err = runLit(t, "commit", "--author", "T")
	assert.ErrorIs(t, err, repo.ErrUnresolvedConflicts)

	writeWorkFile(t, dir, "f", "resolved\n")
	mustLit(t, "add", "f")
	out = mustLit(t, "commit", "--author", "T")
	assert.Contains(t, out, "Merge feature")

	out = mustLit(t, "log", "-n", "1")
	assert.Contains(t, out, "Merge: ")
}

func TestMergeFastForwardAndAbort(t *testing.T) {
	dir := setupWorkdir(t)
	mustLit(t, "init")
	writeWorkFile(t, dir, "f", "1\n")
	mustLit(t, "add", "f")
	mustLit(t, "commit", "-m", "base", "--author", "T")

	mustLit(t, "switch", "-c", "topic")
	writeWorkFile(t, dir, "g", "g\n")
	mustLit(t, "add", "g")
	mustLit(t, "commit", "-m", "topic work", "--author", "T")
	mustLit(t, "switch", "main")

	out := mustLit(t, "merge", "topic")
	assert.Contains(t, out, "fast-forward")
	_, err := os.Stat(filepath.Join(dir, "g"))
	assert.NoError(t, err)

	out = mustLit(t, "merge", "topic")
	assert.Contains(t, out, "already up to date")

	_, err = runLit(t, "merge", "--abort")
	assert.ErrorContains(t, err, "no merge in progress")
}

func TestConfigCmd(t *testing.T) {
	setupWorkdir(t)
	mustLit(t, "init")

	mustLit(t, "config", "user.name", "Grace")
	out := mustLit(t, "config", "user.name")
	assert.Equal(t, "Grace\n", out)

	_, err := runLit(t, "config", "core.compression", "gzip")
	assert.Error(t, err)
}

func TestVerifyAndPrune(t *testing.T) {
	dir := setupWorkdir(t)
	mustLit(t, "init")
	writeWorkFile(t, dir, "f", "1\n")
	mustLit(t, "add", "f")
	mustLit(t, "commit", "-m", "base", "--author", "T")

	out := mustLit(t, "verify")
	assert.Contains(t, out, "ok: verified 3 object(s), 3 reachable, 0 unreachable")

	writeWorkFile(t, dir, "f", "2\n")
	mustLit(t, "add", "f")
	writeWorkFile(t, dir, "f", "3\n")
	mustLit(t, "add", "f")

	out = mustLit(t, "prune", "--dry-run")
	assert.Contains(t, out, "would prune 1 object(s)")
	out = mustLit(t, "prune")
	assert.Contains(t, out, "pruned 1 object(s)")
	out = mustLit(t, "verify")
	assert.Contains(t, out, "0 unreachable")
}

func TestReflogAndVersion(t *testing.T) {
	dir := setupWorkdir(t)
	mustLit(t, "init")
	writeWorkFile(t, dir, "f", "1\n")
	mustLit(t, "add", "f")
	mustLit(t, "commit", "-m", "base", "--author", "T")

	out := mustLit(t, "reflog")
	assert.Contains(t, out, "refs/heads/main commit (initial): base")

	out = mustLit(t, "version")
	assert.Equal(t, "lit "+version+"\n", out)
}

func TestResetAndRmCmd(t *testing.T) {
	dir := setupWorkdir(t)
	mustLit(t, "init")
	writeWorkFile(t, dir, "a.txt", "a\n")
	writeWorkFile(t, dir, "b.txt", "b\n")
	mustLit(t, "add", ".")
	mustLit(t, "commit", "-m", "base")

	writeWorkFile(t, dir, "a.txt", "changed\n")
	mustLit(t, "add", "a.txt")
	out := mustLit(t, "reset", "a.txt")
	assert.Equal(t, "Unstaged changes after reset:\n  a.txt\n", out)
	assert.Empty(t, mustLit(t, "reset"))

	mustLit(t, "rm", "--cached", "b.txt")
	assert.FileExists(t, filepath.Join(dir, "b.txt"))
	out = mustLit(t, "status")
	assert.Contains(t, out, "  - b.txt")
	assert.Contains(t, out, "  ~ a.txt")
}
