package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imraghavojha/lit/pkg/object"
)

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second

	headsPrefix = "refs/heads/"
)

// Head reads .lit/HEAD. If the content starts with "ref: ", it returns the
// ref path (e.g., "refs/heads/main"). Otherwise it returns the raw content
// as a detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(r.litPath("HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if strings.HasPrefix(content, "ref: ") {
		return strings.TrimPrefix(content, "ref: "), nil
	}
	return content, nil
}

// ResolveRef resolves a ref name to an object hash. An existing branch with
// no commits resolves to "".
//
// Resolution order:
//  1. If name is "HEAD", read HEAD. If HEAD is symbolic, resolve the target ref.
//  2. If name starts with "refs/", read .lit/<name>.
//  3. Otherwise, try "refs/heads/<name>".
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(head, "refs/") {
			return r.ResolveRef(head)
		}
		return object.Hash(head), nil
	}

	refName := name
	if !strings.HasPrefix(name, "refs/") {
		refName = headsPrefix + name
	}
	data, err := os.ReadFile(r.litPath(filepath.FromSlash(refName)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", unknownReference(name)
		}
		return "", fmt.Errorf("resolve ref %q: %w", name, err)
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}

// HeadCommit returns the commit HEAD points at, or "" when the current
// branch has no commits yet.
func (r *Repo) HeadCommit() (object.Hash, error) {
	h, err := r.ResolveRef("HEAD")
	if err != nil {
		if errors.Is(err, ErrUnknownReference) {
			return "", nil
		}
		return "", err
	}
	return h, nil
}

// Resolve turns a user-supplied name into a commit hash. Branch names win
// over hashes. Anything that is neither a branch with commits nor the
// hash of a stored commit fails with ErrUnknownReference.
func (r *Repo) Resolve(name string) (object.Hash, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", unknownReference(name)
	}
	if name == "HEAD" {
		h, err := r.HeadCommit()
		if err != nil {
			return "", err
		}
		if h == "" {
			return "", fmt.Errorf("%w: HEAD has no commits", ErrUnknownReference)
		}
		return h, nil
	}

	if validBranchName(name) == nil {
		h, err := r.ResolveRef(headsPrefix + name)
		switch {
		case err == nil && h == "":
			return "", fmt.Errorf("%w: branch %q exists but points to no commit", ErrUnknownReference, name)
		case err == nil:
			return h, nil
		case !errors.Is(err, ErrUnknownReference):
			return "", err
		}
	}

	h := object.Hash(name)
	if !h.Valid() {
		return "", unknownReference(name)
	}
	if _, err := r.Store.ReadCommit(h); err != nil {
		if object.IsNotFound(err) {
			return "", unknownReference(name)
		}
		return "", fmt.Errorf("resolve %q: %w", name, err)
	}
	return h, nil
}

// UpdateRef writes a hash to the named ref file under .lit/.
func (r *Repo) UpdateRef(name string, h object.Hash, reason string) error {
	return r.updateRef(name, h, reason, false, "")
}

// UpdateRefCAS writes a hash to the named ref file only if the ref still
// holds expectedOld. An empty expectedOld means the ref must be missing or
// empty.
func (r *Repo) UpdateRefCAS(name string, h, expectedOld object.Hash, reason string) error {
	return r.updateRef(name, h, reason, true, expectedOld)
}

// updateRef uses lockfile + rename so concurrent writers fail rather than
// interleave. The reflog is appended after the rename.
func (r *Repo) updateRef(name string, h object.Hash, reason string, checkOld bool, wantOld object.Hash) error {
	refPath := r.litPath(filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if checkOld && oldHash != wantOld {
		return fmt.Errorf("update ref %q: %w (expected %q, found %q)", name, ErrRefCASMismatch, wantOld, oldHash)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	if err := r.appendReflog(name, oldHash, h, reason); err != nil {
		r.Logger().Warn("reflog append failed", "ref", name, "error", err)
	}
	return nil
}

// setHeadBranch points HEAD at refs/heads/<branch>.
func (r *Repo) setHeadBranch(branch string) error {
	if err := writeFileAtomic(r.litPath("HEAD"), []byte("ref: "+headsPrefix+branch+"\n"), 0o644); err != nil {
		return fmt.Errorf("set HEAD: %w", err)
	}
	return nil
}

// detachHead stores a raw commit hash in HEAD.
func (r *Repo) detachHead(h object.Hash) error {
	if err := writeFileAtomic(r.litPath("HEAD"), []byte(string(h)+"\n"), 0o644); err != nil {
		return fmt.Errorf("detach HEAD: %w", err)
	}
	return nil
}

// advanceHead moves whatever HEAD designates to h: the current branch when
// HEAD is symbolic, HEAD itself when detached. The move is checked against
// expectedOld.
func (r *Repo) advanceHead(h, expectedOld object.Hash, reason string) error {
	head, err := r.Head()
	if err != nil {
		return err
	}
	if strings.HasPrefix(head, "refs/") {
		return r.UpdateRefCAS(head, h, expectedOld, reason)
	}
	if object.Hash(head) != expectedOld {
		return fmt.Errorf("update HEAD: %w (expected %q, found %q)", ErrRefCASMismatch, expectedOld, head)
	}
	if err := r.detachHead(h); err != nil {
		return err
	}
	if err := r.appendReflog("HEAD", expectedOld, h, reason); err != nil {
		r.Logger().Warn("reflog append failed", "ref", "HEAD", "error", err)
	}
	return nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}
