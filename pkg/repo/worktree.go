package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/imraghavojha/lit/pkg/object"
)

// workFiles walks the working tree and returns every regular, non-ignored
// file as a slash-separated repo path.
func (r *Repo) workFiles(ic *IgnoreChecker) (map[string]struct{}, error) {
	files := make(map[string]struct{})
	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if ic.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files[rel] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk working tree: %w", err)
	}
	return files, nil
}

// hashWorkFile returns the blob hash and mode a working file would have if
// staged, without writing anything.
func (r *Repo) hashWorkFile(p string) (object.Hash, string, error) {
	abs := r.workPath(p)
	info, err := os.Lstat(abs)
	if err != nil {
		return "", "", err
	}
	if !info.Mode().IsRegular() {
		return "", "", fmt.Errorf("%s is not a regular file", p)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", "", err
	}
	return object.HashBytes(data), modeFromFileInfo(info), nil
}

// writeWorkFile materializes content at p with permissions derived from mode.
func (r *Repo) writeWorkFile(p string, data []byte, mode string) error {
	abs := r.workPath(p)
	if info, err := os.Lstat(abs); err == nil && info.IsDir() {
		if err := os.Remove(abs); err != nil {
			return fmt.Errorf("write %q: directory in the way: %w", p, err)
		}
	}
	if err := writeFileAtomic(abs, data, filePermFromMode(mode)); err != nil {
		return fmt.Errorf("write %q: %w", p, err)
	}
	return nil
}

// removeWorkFile deletes p if present and prunes empty parent directories.
// A directory at p, or a file where one of p's parents should be, means p
// is already gone.
func (r *Repo) removeWorkFile(p string) error {
	abs := r.workPath(p)
	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
			return nil
		}
		return fmt.Errorf("remove %q: %w", p, err)
	}
	if info.IsDir() {
		return nil
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %q: %w", p, err)
	}
	r.removeEmptyParents(filepath.Dir(abs))
	return nil
}

// removeEmptyParents removes empty directories up to (but not including)
// the repository root.
func (r *Repo) removeEmptyParents(dir string) {
	for {
		if dir == r.RootDir || !strings.HasPrefix(dir, r.RootDir+string(filepath.Separator)) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// repoRelPath converts a path (absolute, or relative to the process working
// directory) into a clean slash-separated path relative to the repository
// root. Paths outside the repository or inside .lit are rejected.
func (r *Repo) repoRelPath(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(p) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", p, err)
		}
		abs = filepath.Join(cwd, p)
	}
	rel, err := filepath.Rel(r.RootDir, filepath.Clean(abs))
	if err != nil {
		return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %q is outside repository at %s", p, r.RootDir)
	}
	if rel == DirName || strings.HasPrefix(rel, DirName+"/") {
		return "", fmt.Errorf("path %q is inside the repository metadata directory", p)
	}
	return rel, nil
}
