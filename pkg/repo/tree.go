package repo

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/imraghavojha/lit/pkg/object"
)

// TreeFile is a blob entry of a flattened tree, keyed by its full path.
type TreeFile struct {
	Path string
	Mode string
	Hash object.Hash
}

// treeNode is one directory of the path trie built from index entries.
type treeNode struct {
	files map[string]IndexEntry
	dirs  map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{
		files: make(map[string]IndexEntry),
		dirs:  make(map[string]*treeNode),
	}
}

// BuildTreeFromIndex converts flat index entries into a tree. Deletion
// markers are skipped. Every subtree is written to the store bottom-up;
// the root tree is returned without being persisted.
func (r *Repo) BuildTreeFromIndex(entries []IndexEntry) (*object.Tree, error) {
	root := newTreeNode()
	for _, e := range entries {
		if e.Deleted() {
			continue
		}
		if err := root.insert(e); err != nil {
			return nil, fmt.Errorf("build tree: %w", err)
		}
	}
	return r.buildTreeNode(root, "")
}

func (n *treeNode) insert(e IndexEntry) error {
	segs := strings.Split(e.Path, "/")
	cur := n
	for i, seg := range segs[:len(segs)-1] {
		if _, isFile := cur.files[seg]; isFile {
			return fmt.Errorf("path %q: %q is staged as a file", e.Path, strings.Join(segs[:i+1], "/"))
		}
		child, ok := cur.dirs[seg]
		if !ok {
			child = newTreeNode()
			cur.dirs[seg] = child
		}
		cur = child
	}
	name := segs[len(segs)-1]
	if _, isDir := cur.dirs[name]; isDir {
		return fmt.Errorf("path %q is staged as both a file and a directory", e.Path)
	}
	cur.files[name] = e
	return nil
}

// buildTreeNode persists the subtrees of n and returns n's own tree.
func (r *Repo) buildTreeNode(n *treeNode, prefix string) (*object.Tree, error) {
	tree := &object.Tree{Entries: make([]object.TreeEntry, 0, len(n.files)+len(n.dirs))}
	for name, e := range n.files {
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Mode: normalizeFileMode(e.Mode),
			Type: object.TypeBlob,
			Hash: e.Hash,
			Name: name,
		})
	}
	for name, child := range n.dirs {
		childPrefix := path.Join(prefix, name)
		sub, err := r.buildTreeNode(child, childPrefix)
		if err != nil {
			return nil, err
		}
		subHash, err := r.Store.WriteTree(sub)
		if err != nil {
			return nil, fmt.Errorf("write tree %q: %w", childPrefix, err)
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Mode: object.TreeModeDir,
			Type: object.TypeTree,
			Hash: subHash,
			Name: name,
		})
	}
	sort.Slice(tree.Entries, func(i, j int) bool { return tree.Entries[i].Name < tree.Entries[j].Name })
	return tree, nil
}

// WriteTreeFromIndex builds the tree for idx and persists the root,
// returning its hash.
func (r *Repo) WriteTreeFromIndex(idx *Index) (object.Hash, error) {
	tree, err := r.BuildTreeFromIndex(idx.Entries())
	if err != nil {
		return "", err
	}
	h, err := r.Store.WriteTree(tree)
	if err != nil {
		return "", fmt.Errorf("write root tree: %w", err)
	}
	return h, nil
}

// FlattenTree walks the tree h with an explicit stack and returns every
// blob keyed by full slash-separated path. An empty hash yields an empty
// map.
func (r *Repo) FlattenTree(h object.Hash) (map[string]TreeFile, error) {
	type frame struct {
		hash   object.Hash
		prefix string
	}

	out := make(map[string]TreeFile)
	if h == "" {
		return out, nil
	}
	stack := []frame{{hash: h}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		tree, err := r.Store.ReadTree(f.hash)
		if err != nil {
			return nil, fmt.Errorf("flatten tree %q: %w", f.prefix, err)
		}
		for _, e := range tree.Entries {
			full := path.Join(f.prefix, e.Name)
			if e.IsDir() {
				stack = append(stack, frame{hash: e.Hash, prefix: full})
				continue
			}
			out[full] = TreeFile{Path: full, Mode: normalizeFileMode(e.Mode), Hash: e.Hash}
		}
	}
	return out, nil
}

// commitFiles flattens the tree of commit c. An empty hash yields an empty
// map.
func (r *Repo) commitFiles(c object.Hash) (map[string]TreeFile, error) {
	if c == "" {
		return map[string]TreeFile{}, nil
	}
	commit, err := r.Store.ReadCommit(c)
	if err != nil {
		return nil, err
	}
	return r.FlattenTree(commit.TreeHash)
}

// indexFromFiles builds an index mirroring a flattened tree.
func indexFromFiles(files map[string]TreeFile) *Index {
	idx := NewIndex()
	for p, f := range files {
		idx.Stage(p, f.Mode, f.Hash)
	}
	return idx
}
