package object

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Store is a content-addressed object store with a 2-character fan-out
// directory layout: objects/ab/cdef0123...
//
// Objects are stored as their canonical bytes. When compression is enabled
// new objects are written zstd-compressed with a ".zst" suffix; reads accept
// either form and hashes are always taken over the canonical bytes.
type Store struct {
	root     string
	compress bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCompression makes the store write new objects zstd-compressed.
func WithCompression(enabled bool) StoreOption {
	return func(s *Store) {
		s.compress = enabled
	}
}

// NewStore creates a Store rooted at the given directory. The objects/
// subdirectory is created lazily on first write.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if !h.Valid() {
		return false
	}
	p := s.objectPath(h)
	if _, err := os.Stat(p); err == nil {
		return true
	}
	_, err := os.Stat(p + compressedSuffix)
	return err == nil
}

// Put stores data under h. It is a no-op when the object already exists.
// Writes are atomic: data is written to a temp file and then renamed into
// place. Put trusts the caller that h is the hash of data.
func (s *Store) Put(h Hash, data []byte) error {
	if !h.Valid() {
		return &ObjectError{Op: "object put", Hash: h, Err: ErrInvalidHash}
	}
	if s.Has(h) {
		return nil
	}

	dest := s.objectPath(h)
	payload := data
	if s.compress {
		z, err := compressZstd(data)
		if err != nil {
			return fmt.Errorf("object put %s compress: %w", h, err)
		}
		payload = z
		dest += compressedSuffix
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("object put mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("object put tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("object put: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("object put close: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("object put rename: %w", err)
	}
	return nil
}

// Write stores data and returns its content hash.
func (s *Store) Write(data []byte) (Hash, error) {
	h := HashBytes(data)
	if err := s.Put(h, data); err != nil {
		return "", err
	}
	return h, nil
}

// Get returns the canonical bytes stored under h.
func (s *Store) Get(h Hash) ([]byte, error) {
	if !h.Valid() {
		return nil, &ObjectError{Op: "object read", Hash: h, Err: ErrInvalidHash}
	}
	p := s.objectPath(h)
	data, err := os.ReadFile(p)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, &ObjectError{Op: "object read", Hash: h, Err: err}
	}

	z, err := os.ReadFile(p + compressedSuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ObjectError{Op: "object read", Hash: h, Err: ErrObjectNotFound}
		}
		return nil, &ObjectError{Op: "object read", Hash: h, Err: err}
	}
	data, err = decompressZstd(z)
	if err != nil {
		return nil, &ObjectError{Op: "object read", Hash: h, Err: fmt.Errorf("%w: zstd: %v", ErrMalformedObject, err)}
	}
	return data, nil
}

// List returns every object hash in the store, sorted.
func (s *Store) List() ([]Hash, error) {
	objDir := filepath.Join(s.root, "objects")
	fanouts, err := os.ReadDir(objDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("object list: %w", err)
	}

	var out []Hash
	for _, fan := range fanouts {
		if !fan.IsDir() || len(fan.Name()) != 2 {
			continue
		}
		files, err := os.ReadDir(filepath.Join(objDir, fan.Name()))
		if err != nil {
			return nil, fmt.Errorf("object list %s: %w", fan.Name(), err)
		}
		for _, f := range files {
			name := f.Name()
			if ext := filepath.Ext(name); ext == compressedSuffix {
				name = name[:len(name)-len(ext)]
			}
			h := Hash(fan.Name() + name)
			if h.Valid() {
				out = append(out, h)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Delete removes the object stored under h in either encoding. Deleting a
// missing object is not an error.
func (s *Store) Delete(h Hash) error {
	if !h.Valid() {
		return &ObjectError{Op: "object delete", Hash: h, Err: ErrInvalidHash}
	}
	p := s.objectPath(h)
	for _, name := range []string{p, p + compressedSuffix} {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &ObjectError{Op: "object delete", Hash: h, Err: err}
		}
	}
	_ = os.Remove(filepath.Dir(p)) // only succeeds when the fanout dir is empty
	return nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Write(MarshalBlob(b))
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	data, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(data)
}

// WriteTree serializes and stores a Tree.
func (s *Store) WriteTree(tr *Tree) (Hash, error) {
	data, err := MarshalTree(tr)
	if err != nil {
		return "", err
	}
	return s.Write(data)
}

// ReadTree reads and deserializes a Tree.
func (s *Store) ReadTree(h Hash) (*Tree, error) {
	data, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	tr, err := UnmarshalTree(data)
	if err != nil {
		return nil, &ObjectError{Op: "read tree", Hash: h, Err: err}
	}
	return tr, nil
}

// WriteCommit serializes and stores a Commit.
func (s *Store) WriteCommit(c *Commit) (Hash, error) {
	data, err := MarshalCommit(c)
	if err != nil {
		return "", err
	}
	return s.Write(data)
}

// ReadCommit reads and deserializes a Commit.
func (s *Store) ReadCommit(h Hash) (*Commit, error) {
	data, err := s.Get(h)
	if err != nil {
		return nil, err
	}
	c, err := UnmarshalCommit(data)
	if err != nil {
		return nil, &ObjectError{Op: "read commit", Hash: h, Err: err}
	}
	return c, nil
}
