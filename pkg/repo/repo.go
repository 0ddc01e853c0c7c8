package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imraghavojha/lit/pkg/log"
	"github.com/imraghavojha/lit/pkg/object"
)

// DirName is the name of the metadata directory at the repository root.
const DirName = ".lit"

// Repo represents an opened lit repository. All paths are derived from
// RootDir; nothing depends on the process working directory except
// repoRelPath when resolving relative user input.
type Repo struct {
	RootDir string        // working directory root
	LitDir  string        // .lit/ directory
	Store   *object.Store // content-addressed object store

	logger log.Logger
}

// Option configures a Repo during Init or Open.
type Option func(*Repo) error

// WithLogger sets the logger used by repository operations. If not
// provided, a no-op logger is used.
func WithLogger(logger log.Logger) Option {
	return func(r *Repo) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// Logger returns the repository logger.
func (r *Repo) Logger() log.Logger {
	if r.logger == nil {
		return log.Noop()
	}
	return r.logger
}

func newRepo(root string, opts []Option) (*Repo, error) {
	r := &Repo{
		RootDir: root,
		LitDir:  filepath.Join(root, DirName),
		logger:  log.Noop(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// litPath joins elem onto the .lit directory.
func (r *Repo) litPath(elem ...string) string {
	return filepath.Join(append([]string{r.LitDir}, elem...)...)
}

// workPath converts a slash-separated repo path to an absolute path.
func (r *Repo) workPath(p string) string {
	return filepath.Join(r.RootDir, filepath.FromSlash(p))
}

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by a rename.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".lit-tmp-*")
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
