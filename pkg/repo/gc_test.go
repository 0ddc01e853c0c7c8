package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/imraghavojha/lit/pkg/object"
)

func TestFsck_CleanRepository(t *testing.T) {
	r := newTestRepo(t)
	commitFilesOn(t, r, map[string]string{"a": "a\n", "d/b": "b\n"}, "one")

	report, err := r.Fsck(context.Background(), 2)
	if err != nil {
		t.Fatalf("Fsck: %v", err)
	}
	if !report.OK() {
		t.Fatalf("report = %+v", report)
	}
	// commit, root tree, subtree, two blobs
	if report.Reachable != 5 || report.Objects != 5 || len(report.Unreachable) != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestFsck_DetectsCorruptionAndMissing(t *testing.T) {
	r := newTestRepo(t)
	commitFilesOn(t, r, map[string]string{"a": "a\n", "b": "b\n"}, "one")
	blobA := object.HashBytes([]byte("a\n"))
	blobB := object.HashBytes([]byte("b\n"))

	p := filepath.Join(r.LitDir, "objects", string(blobA[:2]), string(blobA[2:]))
	if err := os.WriteFile(p, []byte("tampered\n"), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if err := r.Store.Delete(blobB); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	report, err := r.Fsck(context.Background(), 0)
	if err != nil {
		t.Fatalf("Fsck: %v", err)
	}
	if report.OK() {
		t.Fatal("report should not be OK")
	}
	if len(report.Corrupt) != 1 || report.Corrupt[0].Hash != blobA {
		t.Errorf("Corrupt = %v", report.Corrupt)
	}
	if len(report.Missing) != 1 || report.Missing[0] != blobB {
		t.Errorf("Missing = %v", report.Missing)
	}
}

func TestPrune_RemovesOnlyUnreachable(t *testing.T) {
	r := newTestRepo(t)
	commitFilesOn(t, r, map[string]string{"a": "a\n"}, "one")
	orphan, err := r.Store.WriteBlob(&object.Blob{Data: []byte("orphan\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	writeFile(t, r, "staged", "staged only\n")
	if err := r.Add([]string{abs(r, "staged")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	staged := object.HashBytes([]byte("staged only\n"))

	dry, err := r.Prune(true)
	if err != nil {
		t.Fatalf("Prune(dry): %v", err)
	}
	if len(dry) != 1 || dry[0] != orphan || !r.Store.Has(orphan) {
		t.Fatalf("dry run = %v", dry)
	}

	pruned, err := r.Prune(false)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(pruned) != 1 || r.Store.Has(orphan) {
		t.Fatalf("pruned = %v, orphan still present = %v", pruned, r.Store.Has(orphan))
	}
	if !r.Store.Has(staged) {
		t.Error("staged blob was pruned")
	}
}
