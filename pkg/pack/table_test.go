package pack

import (
	"testing"

	"github.com/odvcencio/packforge/pkg/object"
)

func tempTable(t *testing.T) (*object.Store, *Table) {
	t.Helper()
	store := object.NewStore(t.TempDir())
	return store, NewTable(store)
}

func TestTableInsertIsIdempotent(t *testing.T) {
	store, tbl := tempTable(t)
	h, err := store.WriteBlob(&object.Blob{Data: []byte("x")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if err := tbl.Insert(h, "a.txt"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tbl.Insert(h, "a.txt"); err != nil {
		t.Fatalf("Insert (re-insert): %v", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len: got %d, want 1", tbl.Len())
	}
}

func TestTableInsertMissingObjectFails(t *testing.T) {
	_, tbl := tempTable(t)
	if err := tbl.Insert(object.Hash("0000000000000000000000000000000000000000"), ""); err == nil {
		t.Error("expected error inserting a hash absent from the store")
	}
}

func TestTableInsertTreeWalksAllEntries(t *testing.T) {
	store, tbl := tempTable(t)

	leafHash, err := store.WriteBlob(&object.Blob{Data: []byte("leaf")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	subHash, err := store.WriteTree(&object.TreeObj{Entries: []object.TreeEntry{
		{Name: "leaf.txt", Mode: object.TreeModeFile, BlobHash: leafHash},
	}})
	if err != nil {
		t.Fatalf("WriteTree (sub): %v", err)
	}
	rootHash, err := store.WriteTree(&object.TreeObj{Entries: []object.TreeEntry{
		{Name: "sub", IsDir: true, SubtreeHash: subHash},
	}})
	if err != nil {
		t.Fatalf("WriteTree (root): %v", err)
	}

	if err := tbl.InsertTree(rootHash); err != nil {
		t.Fatalf("InsertTree: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("Len: got %d, want 3 (root tree, sub tree, leaf blob)", tbl.Len())
	}
	for _, h := range []object.Hash{rootHash, subHash, leafHash} {
		if _, ok := tbl.byHash[h]; !ok {
			t.Errorf("expected %s present in table", h)
		}
	}
}

func TestTableInsertTreeNameHashReflectsPath(t *testing.T) {
	store, tbl := tempTable(t)
	leafHash, err := store.WriteBlob(&object.Blob{Data: []byte("leaf")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	rootHash, err := store.WriteTree(&object.TreeObj{Entries: []object.TreeEntry{
		{Name: "deep/path/leaf.txt", Mode: object.TreeModeFile, BlobHash: leafHash},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if err := tbl.InsertTree(rootHash); err != nil {
		t.Fatalf("InsertTree: %v", err)
	}
	leafIdx := tbl.byHash[leafHash]
	if tbl.records[leafIdx].nameHash != nameHash("deep/path/leaf.txt") {
		t.Error("leaf record's name hash does not reflect its full path hint")
	}
}

func TestCheckDeltaLimitFollowsDeepestChild(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "a", deltaChild: 1, deltaSibling: -1},
		{hash: "b", deltaChild: 2, deltaSibling: -1},
		{hash: "c", deltaChild: -1, deltaSibling: -1},
	}
	if got := tbl.checkDeltaLimit(0); got != 2 {
		t.Errorf("checkDeltaLimit: got %d, want 2", got)
	}
}

func TestLinkAndUnlinkChild(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "base", deltaChild: -1, deltaSibling: -1},
		{hash: "child1", deltaChild: -1, deltaSibling: -1},
		{hash: "child2", deltaChild: -1, deltaSibling: -1},
	}
	tbl.linkChild(0, 1)
	tbl.linkChild(0, 2)
	if tbl.records[0].deltaChild != 2 {
		t.Fatalf("expected most recently linked child to be first, got %d", tbl.records[0].deltaChild)
	}
	if tbl.records[2].deltaSibling != 1 {
		t.Fatalf("expected child2's sibling to be child1, got %d", tbl.records[2].deltaSibling)
	}

	tbl.unlinkChild(0, 2)
	if tbl.records[0].deltaChild != 1 {
		t.Errorf("unlinkChild: expected head to become child1, got %d", tbl.records[0].deltaChild)
	}

	tbl.unlinkChild(0, 1)
	if tbl.records[0].deltaChild != -1 {
		t.Errorf("unlinkChild: expected no children left, got %d", tbl.records[0].deltaChild)
	}
}

func TestNameHashIgnoresWhitespace(t *testing.T) {
	if nameHash("a b") != nameHash("ab") {
		t.Error("nameHash should skip whitespace bytes")
	}
}

func TestNameHashDiffersForDifferentContent(t *testing.T) {
	if nameHash("foo.go") == nameHash("bar.go") {
		t.Error("expected different hashes for different path hints")
	}
}
