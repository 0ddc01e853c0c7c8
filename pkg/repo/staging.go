package repo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/imraghavojha/lit/pkg/object"
)

// IndexEntry records the staged state of a single path. A Hash equal to
// object.DeletionMarker means the path is staged for deletion.
type IndexEntry struct {
	Mode string
	Hash object.Hash
	Path string
}

// Deleted reports whether the entry is a deletion marker.
func (e IndexEntry) Deleted() bool {
	return e.Hash == object.DeletionMarker
}

func (e IndexEntry) String() string {
	return fmt.Sprintf("%s %s %s", e.Mode, e.Hash, e.Path)
}

// Index is the staging area: at most one entry per path. It mirrors the
// tree of the last commit plus staged changes.
type Index struct {
	entries map[string]IndexEntry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]IndexEntry)}
}

// Get returns the entry for p.
func (idx *Index) Get(p string) (IndexEntry, bool) {
	e, ok := idx.entries[p]
	return e, ok
}

// Len returns the number of entries, deletion markers included.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Stage inserts or replaces the entry for p.
func (idx *Index) Stage(p, mode string, h object.Hash) {
	idx.entries[p] = IndexEntry{Mode: normalizeFileMode(mode), Hash: h, Path: p}
}

// MarkDeleted stages p for deletion, keeping its last known mode.
func (idx *Index) MarkDeleted(p string) {
	mode := object.TreeModeFile
	if e, ok := idx.entries[p]; ok {
		mode = e.Mode
	}
	idx.entries[p] = IndexEntry{Mode: mode, Hash: object.DeletionMarker, Path: p}
}

// Unstage drops the entry for p entirely. It reports whether one existed.
func (idx *Index) Unstage(p string) bool {
	_, ok := idx.entries[p]
	delete(idx.entries, p)
	return ok
}

// ReplaceAll discards every entry and installs entries instead.
func (idx *Index) ReplaceAll(entries []IndexEntry) {
	idx.entries = make(map[string]IndexEntry, len(entries))
	for _, e := range entries {
		idx.entries[e.Path] = e
	}
}

// DropDeletions removes consumed deletion markers, keeping every other
// entry. It is called once a commit has recorded the deletions.
func (idx *Index) DropDeletions() {
	for p, e := range idx.entries {
		if e.Deleted() {
			delete(idx.entries, p)
		}
	}
}

// Entries returns all entries sorted by path.
func (idx *Index) Entries() []IndexEntry {
	out := make([]IndexEntry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Live returns the non-deleted entries keyed by path.
func (idx *Index) Live() map[string]IndexEntry {
	out := make(map[string]IndexEntry, len(idx.entries))
	for p, e := range idx.entries {
		if !e.Deleted() {
			out[p] = e
		}
	}
	return out
}

// clearPathConflicts marks entries that would collide with p as a file:
// its ancestors staged as files and anything staged beneath it.
func (idx *Index) clearPathConflicts(p string) {
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if e, ok := idx.entries[dir]; ok && !e.Deleted() {
			idx.MarkDeleted(dir)
		}
	}
	prefix := p + "/"
	for q, e := range idx.entries {
		if strings.HasPrefix(q, prefix) && !e.Deleted() {
			idx.MarkDeleted(q)
		}
	}
}

// indexPath returns the filesystem path to the index file.
func (r *Repo) indexPath() string {
	return r.litPath("index")
}

// LoadIndex reads .lit/index. A missing file yields an empty index.
// Malformed lines are skipped with a warning.
func (r *Repo) LoadIndex() (*Index, error) {
	idx := NewIndex()
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return idx, nil
		}
		return nil, fmt.Errorf("load index: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := parseIndexLine(line)
		if err != nil {
			r.Logger().Warn("skipping malformed index line", "line", lineNo, "error", err)
			continue
		}
		idx.entries[e.Path] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	return idx, nil
}

// parseIndexLine parses "<mode> <hash-or-0> <path>". The path may contain
// spaces.
func parseIndexLine(line string) (IndexEntry, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return IndexEntry{}, fmt.Errorf("want 3 fields, got %d", len(parts))
	}
	mode, h, p := parts[0], object.Hash(parts[1]), parts[2]
	if mode != object.TreeModeFile && mode != object.TreeModeExecutable {
		return IndexEntry{}, fmt.Errorf("unsupported mode %q", mode)
	}
	if h != object.DeletionMarker && !h.Valid() {
		return IndexEntry{}, fmt.Errorf("bad hash %q", h)
	}
	if err := validIndexPath(p); err != nil {
		return IndexEntry{}, err
	}
	return IndexEntry{Mode: mode, Hash: h, Path: p}, nil
}

func validIndexPath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("empty path")
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("absolute path %q", p)
	case path.Clean(p) != p:
		return fmt.Errorf("path %q is not clean", p)
	case p == ".." || strings.HasPrefix(p, "../"):
		return fmt.Errorf("path %q escapes the repository", p)
	case p == DirName || strings.HasPrefix(p, DirName+"/"):
		return fmt.Errorf("path %q is inside %s", p, DirName)
	case strings.ContainsAny(p, "\n\x00"):
		return fmt.Errorf("path %q contains a control character", p)
	}
	return nil
}

// SaveIndex atomically rewrites .lit/index from idx.
func (r *Repo) SaveIndex(idx *Index) error {
	var buf bytes.Buffer
	for _, e := range idx.Entries() {
		buf.WriteString(e.String())
		buf.WriteByte('\n')
	}
	if err := writeFileAtomic(r.indexPath(), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// StageDeletion stages p for deletion and removes the working file unless
// keepFile is set.
func (r *Repo) StageDeletion(idx *Index, p string, keepFile bool) error {
	idx.MarkDeleted(p)
	if keepFile {
		return nil
	}
	return r.removeWorkFile(p)
}

// Add stages the given paths. Directories are walked recursively and
// ignore rules apply to their contents. A path that is tracked but no
// longer exists on disk is staged for deletion. Staging a path that is in
// conflict after a merge marks it resolved; a conflicted path that was
// deleted from disk resolves as a deletion.
func (r *Repo) Add(paths []string) error {
	idx, err := r.LoadIndex()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	state, err := r.readMergeState()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	ic := NewIgnoreChecker(r.RootDir)

	var staged []string
	for _, arg := range paths {
		rel, err := r.repoRelPath(arg)
		if err != nil {
			return fmt.Errorf("add: %w", err)
		}
		info, statErr := os.Lstat(r.workPath(rel))
		switch {
		case statErr == nil && info.IsDir():
			files, err := r.addDir(idx, ic, rel)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			staged = append(staged, files...)
		case statErr == nil:
			if err := r.stageFile(idx, rel); err != nil {
				return fmt.Errorf("add: %w", err)
			}
			staged = append(staged, rel)
		case os.IsNotExist(statErr):
			removed := r.stageMissing(idx, rel)
			conflicted := state.conflictsUnder(rel)
			if len(removed) == 0 && len(conflicted) == 0 {
				return fmt.Errorf("add: pathspec %q did not match any files", arg)
			}
			staged = append(staged, removed...)
			staged = append(staged, conflicted...)
		default:
			return fmt.Errorf("add: stat %q: %w", rel, statErr)
		}
	}

	if err := r.SaveIndex(idx); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if state != nil && state.resolve(staged...) {
		if err := r.writeMergeConflicts(state.Conflicts); err != nil {
			return fmt.Errorf("add: %w", err)
		}
	}
	return nil
}

// addDir stages every file under dir and stages deletions for tracked
// files under dir that have disappeared.
func (r *Repo) addDir(idx *Index, ic *IgnoreChecker, dir string) ([]string, error) {
	files, err := r.workFiles(ic)
	if err != nil {
		return nil, err
	}
	inDir := func(p string) bool {
		return dir == "." || p == dir || strings.HasPrefix(p, dir+"/")
	}

	var touched []string
	for p := range files {
		if !inDir(p) {
			continue
		}
		if err := r.stageFile(idx, p); err != nil {
			return nil, err
		}
		touched = append(touched, p)
	}
	for p, e := range idx.entries {
		if e.Deleted() || !inDir(p) {
			continue
		}
		if _, ok := files[p]; ok {
			continue
		}
		if _, err := os.Lstat(r.workPath(p)); os.IsNotExist(err) {
			idx.MarkDeleted(p)
			touched = append(touched, p)
		}
	}
	sort.Strings(touched)
	return touched, nil
}

// stageFile writes the blob for a working file and stages it.
func (r *Repo) stageFile(idx *Index, p string) error {
	abs := r.workPath(p)
	info, err := os.Lstat(abs)
	if err != nil {
		return fmt.Errorf("stat %q: %w", p, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%q is not a regular file", p)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %q: %w", p, err)
	}
	h, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return fmt.Errorf("write blob %q: %w", p, err)
	}
	idx.clearPathConflicts(p)
	idx.Stage(p, modeFromFileInfo(info), h)
	r.Logger().Debug("staged file", "path", p, "hash", h)
	return nil
}

// stageMissing marks p, or everything tracked under p, as deleted.
func (r *Repo) stageMissing(idx *Index, p string) []string {
	var out []string
	for q, e := range idx.entries {
		if e.Deleted() {
			continue
		}
		if q == p || strings.HasPrefix(q, p+"/") {
			idx.MarkDeleted(q)
			out = append(out, q)
		}
	}
	sort.Strings(out)
	return out
}

// Remove stages the given tracked paths for deletion. Unless cached is
// set, the working files are deleted too. Conflicted paths from a pending
// merge match even when the index has no entry for them, and removing one
// resolves it as a deletion.
func (r *Repo) Remove(paths []string, cached bool) error {
	idx, err := r.LoadIndex()
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	state, err := r.readMergeState()
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}

	var resolved []string
	for _, arg := range paths {
		rel, err := r.repoRelPath(arg)
		if err != nil {
			return fmt.Errorf("rm: %w", err)
		}
		var matched []string
		for q, e := range idx.entries {
			if !e.Deleted() && (rel == "." || q == rel || strings.HasPrefix(q, rel+"/")) {
				matched = append(matched, q)
			}
		}
		conflicted := state.conflictsUnder(rel)
		if len(matched) == 0 && len(conflicted) == 0 {
			return fmt.Errorf("rm: pathspec %q did not match any tracked files", arg)
		}
		sort.Strings(matched)
		for _, q := range matched {
			if err := r.StageDeletion(idx, q, cached); err != nil {
				return fmt.Errorf("rm: %w", err)
			}
		}
		for _, q := range conflicted {
			if _, ok := idx.Get(q); ok || cached {
				continue
			}
			if err := r.removeWorkFile(q); err != nil {
				return fmt.Errorf("rm: %w", err)
			}
		}
		resolved = append(resolved, conflicted...)
	}
	if err := r.SaveIndex(idx); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	if state != nil && state.resolve(resolved...) {
		if err := r.writeMergeConflicts(state.Conflicts); err != nil {
			return fmt.Errorf("rm: %w", err)
		}
	}
	return nil
}
