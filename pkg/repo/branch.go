package repo

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/imraghavojha/lit/pkg/object"
)

// validBranchName rejects names that cannot live as a single file under
// refs/heads or that would be ambiguous with HEAD.
func validBranchName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidBranchName)
	case name == "HEAD":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidBranchName, name)
	case name == "." || name == ".." || strings.HasPrefix(name, "-"):
		return fmt.Errorf("%w: %q", ErrInvalidBranchName, name)
	case strings.ContainsAny(name, " \t\n/\\"):
		return fmt.Errorf("%w: %q contains whitespace or a slash", ErrInvalidBranchName, name)
	case strings.HasSuffix(name, ".lock"):
		return fmt.Errorf("%w: %q ends with .lock", ErrInvalidBranchName, name)
	}
	return nil
}

// BranchExists reports whether refs/heads/<name> exists.
func (r *Repo) BranchExists(name string) bool {
	if validBranchName(name) != nil {
		return false
	}
	_, err := os.Stat(r.litPath("refs", "heads", name))
	return err == nil
}

// CreateBranch creates a branch pointing at target. An empty target
// creates a branch with no commits, used before the first commit.
func (r *Repo) CreateBranch(name string, target object.Hash) error {
	if err := validBranchName(name); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	if r.BranchExists(name) {
		return fmt.Errorf("create branch: %w: %q", ErrBranchExists, name)
	}
	if target == "" {
		f, err := os.OpenFile(r.litPath("refs", "heads", name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				return fmt.Errorf("create branch: %w: %q", ErrBranchExists, name)
			}
			return fmt.Errorf("create branch %q: %w", name, err)
		}
		return f.Close()
	}
	if err := r.UpdateRefCAS(headsPrefix+name, target, "", "branch: created"); err != nil {
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// DeleteBranch removes refs/heads/<name>. The current branch cannot be
// deleted.
func (r *Repo) DeleteBranch(name string) error {
	current, err := r.CurrentBranch()
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if current == name {
		return fmt.Errorf("delete branch: cannot delete current branch %q", name)
	}
	if err := validBranchName(name); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}

	if err := os.Remove(r.litPath("refs", "heads", name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete branch: %w", unknownReference(name))
		}
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
	_ = os.Remove(r.litPath("logs", "refs", "heads", name))
	return nil
}

// ListBranches returns the branch names sorted alphabetically.
func (r *Repo) ListBranches() ([]string, error) {
	entries, err := os.ReadDir(r.litPath("refs", "heads"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list branches: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch returns the branch HEAD points at, or "" when HEAD is
// detached.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	if strings.HasPrefix(head, headsPrefix) {
		return strings.TrimPrefix(head, headsPrefix), nil
	}
	return "", nil
}
