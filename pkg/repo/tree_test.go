package repo

import (
	"testing"

	"github.com/imraghavojha/lit/pkg/object"
)

func TestBuildTreeFromIndex_NestedRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	files := map[string]string{
		"README":        "readme\n",
		"src/main.go":   "package main\n",
		"src/lib/a.go":  "package lib\n",
		"src/lib/b.go":  "package lib // b\n",
		"docs/guide.md": "# guide\n",
	}
	idx := NewIndex()
	for p, c := range files {
		h, err := r.Store.WriteBlob(&object.Blob{Data: []byte(c)})
		if err != nil {
			t.Fatalf("WriteBlob: %v", err)
		}
		idx.Stage(p, object.TreeModeFile, h)
	}
	idx.MarkDeleted("stale.txt")

	root, err := r.WriteTreeFromIndex(idx)
	if err != nil {
		t.Fatalf("WriteTreeFromIndex: %v", err)
	}
	flat, err := r.FlattenTree(root)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(flat) != len(files) {
		t.Fatalf("flattened %d files, want %d: %v", len(flat), len(files), flat)
	}
	for p, c := range files {
		f, ok := flat[p]
		if !ok {
			t.Errorf("missing %s", p)
			continue
		}
		if f.Hash != object.HashBytes([]byte(c)) || f.Mode != object.TreeModeFile {
			t.Errorf("%s = %+v", p, f)
		}
	}

	tree, err := r.Store.ReadTree(root)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	var names []string
	for _, e := range tree.Entries {
		names = append(names, e.Name)
		if e.Name == "src" && (e.Mode != object.TreeModeDir || e.Type != object.TypeTree) {
			t.Errorf("src entry = %+v, want directory", e)
		}
	}
	if len(names) != 3 || names[0] != "README" || names[1] != "docs" || names[2] != "src" {
		t.Errorf("root entries = %v", names)
	}
}

func TestBuildTreeFromIndex_RootNotPersisted(t *testing.T) {
	r := newTestRepo(t)
	h, err := r.Store.WriteBlob(&object.Blob{Data: []byte("x\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	idx := NewIndex()
	idx.Stage("dir/x.txt", object.TreeModeFile, h)

	tree, err := r.BuildTreeFromIndex(idx.Entries())
	if err != nil {
		t.Fatalf("BuildTreeFromIndex: %v", err)
	}
	data, err := object.MarshalTree(tree)
	if err != nil {
		t.Fatalf("MarshalTree: %v", err)
	}
	if r.Store.Has(object.HashBytes(data)) {
		t.Error("root tree should not be persisted by BuildTreeFromIndex")
	}
	if len(tree.Entries) != 1 || !r.Store.Has(tree.Entries[0].Hash) {
		t.Errorf("subtree dir not persisted: %+v", tree.Entries)
	}
}

func TestBuildTreeFromIndex_FileDirectoryCollision(t *testing.T) {
	r := newTestRepo(t)
	h := object.HashBytes([]byte("x"))
	entries := []IndexEntry{
		{Mode: object.TreeModeFile, Hash: h, Path: "a"},
		{Mode: object.TreeModeFile, Hash: h, Path: "a/b"},
	}
	if _, err := r.BuildTreeFromIndex(entries); err == nil {
		t.Fatal("expected collision error")
	}
}

func TestBuildTreeFromIndex_Deterministic(t *testing.T) {
	r := newTestRepo(t)
	h, err := r.Store.WriteBlob(&object.Blob{Data: []byte("same\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	a := NewIndex()
	a.Stage("z.txt", object.TreeModeFile, h)
	a.Stage("m/n.txt", object.TreeModeFile, h)
	b := NewIndex()
	b.Stage("m/n.txt", object.TreeModeFile, h)
	b.Stage("z.txt", object.TreeModeFile, h)

	ha, err := r.WriteTreeFromIndex(a)
	if err != nil {
		t.Fatalf("WriteTreeFromIndex: %v", err)
	}
	hb, err := r.WriteTreeFromIndex(b)
	if err != nil {
		t.Fatalf("WriteTreeFromIndex: %v", err)
	}
	if ha != hb {
		t.Errorf("tree hashes differ: %s vs %s", ha, hb)
	}
}

func TestFlattenTree_EmptyHash(t *testing.T) {
	r := newTestRepo(t)
	flat, err := r.FlattenTree("")
	if err != nil || len(flat) != 0 {
		t.Fatalf("FlattenTree(\"\") = %v, %v", flat, err)
	}
}
