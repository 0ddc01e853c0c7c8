package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imraghavojha/lit/pkg/object"
)

// DefaultBranch is the branch HEAD points at in a new repository.
const DefaultBranch = "main"

// Init creates a new lit repository at path. It creates the .lit/
// directory structure: HEAD, objects/, refs/heads/ with an empty main
// branch, logs/ and config.toml. Returns an error if a .lit/ directory
// already exists.
func Init(path string, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: abs path: %w", err)
	}
	r, err := newRepo(abs, opts)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	if _, err := os.Stat(r.LitDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", r.LitDir)
	}

	dirs := []string{
		r.litPath("objects"),
		r.litPath("refs", "heads"),
		r.litPath("logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	if err := os.WriteFile(r.litPath("HEAD"), []byte("ref: refs/heads/"+DefaultBranch+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}
	if err := os.WriteFile(r.litPath("refs", "heads", DefaultBranch), nil, 0o644); err != nil {
		return nil, fmt.Errorf("init: write branch %s: %w", DefaultBranch, err)
	}
	if err := r.WriteConfig(DefaultConfig()); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	r.Store = object.NewStore(r.LitDir)
	r.Logger().Debug("initialized repository", "path", r.RootDir)
	return r, nil
}

// Open searches upward from path for a .lit/ directory and opens the
// repository. Returns ErrNotRepository if none is found.
func Open(path string, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		info, err := os.Stat(filepath.Join(cur, DirName))
		if err == nil && info.IsDir() {
			break
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: %w", ErrNotRepository)
		}
		cur = parent
	}

	r, err := newRepo(cur, opts)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	cfg, err := r.ReadConfig()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	r.Store = object.NewStore(r.LitDir, object.WithCompression(cfg.Core.Compression == CompressionZstd))
	return r, nil
}
