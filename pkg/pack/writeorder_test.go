package pack

import (
	"testing"

	"github.com/odvcencio/packforge/pkg/object"
)

func indexOf(order []int, v int) int {
	for i, x := range order {
		if x == v {
			return i
		}
	}
	return -1
}

func TestPlanWriteOrderCoversEveryRecord(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "blob-base", kind: object.TypeBlob, deltaBase: -1, deltaChild: -1, deltaSibling: -1},
		{hash: "blob-delta", kind: object.TypeBlob, deltaBase: 0, deltaChild: -1, deltaSibling: -1},
		{hash: "tree", kind: object.TypeTree, deltaBase: -1, deltaChild: -1, deltaSibling: -1},
		{hash: "commit", kind: object.TypeCommit, deltaBase: -1, deltaChild: -1, deltaSibling: -1},
	}
	tagIdx := &TagIndex{targets: map[object.Hash]bool{}}

	order, err := tbl.planWriteOrder(tagIdx)
	if err != nil {
		t.Fatalf("planWriteOrder: %v", err)
	}
	if len(order) != len(tbl.records) {
		t.Fatalf("order length: got %d, want %d", len(order), len(tbl.records))
	}
	seen := make(map[int]bool)
	for _, idx := range order {
		if seen[idx] {
			t.Fatalf("record %d appears more than once in write order", idx)
		}
		seen[idx] = true
	}

	if indexOf(order, 0) > indexOf(order, 1) {
		t.Error("delta base must be written before its delta child")
	}
}

func TestPlanWriteOrderPutsTaggedTipsAfterUntaggedPrefix(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "untagged-blob", kind: object.TypeBlob, deltaBase: -1, deltaChild: -1, deltaSibling: -1},
		{hash: "tagged-commit", kind: object.TypeCommit, deltaBase: -1, deltaChild: -1, deltaSibling: -1},
		{hash: "trailing-blob", kind: object.TypeBlob, deltaBase: -1, deltaChild: -1, deltaSibling: -1},
	}
	tagIdx := &TagIndex{targets: map[object.Hash]bool{"tagged-commit": true}}

	order, err := tbl.planWriteOrder(tagIdx)
	if err != nil {
		t.Fatalf("planWriteOrder: %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("order length: got %d, want 3", len(order))
	}
	if order[0] != 0 {
		t.Errorf("expected the untagged prefix record first, got index %d", order[0])
	}
	if indexOf(order, 1) >= indexOf(order, 2) {
		t.Error("the tagged tip commit should be emitted before the remaining untagged blob")
	}
}

func TestPlanWriteOrderCoversRecordOfUnknownKind(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "orphaned", kind: object.ObjectType("unknown"), deltaBase: -1, deltaChild: -1, deltaSibling: -1},
	}
	tagIdx := &TagIndex{targets: map[object.Hash]bool{}}
	order, err := tbl.planWriteOrder(tagIdx)
	// An unrecognized kind still gets visited by the final descendants pass,
	// so this should still succeed; the invariant check only fires if the
	// forest walk itself fails to reach every record, which a well-formed
	// delta-base graph never does.
	if err != nil {
		t.Fatalf("planWriteOrder: %v", err)
	}
	if len(order) != 1 {
		t.Fatalf("order length: got %d, want 1", len(order))
	}
}

func TestRelinkDeltaForestOrdersChildrenInInsertionOrder(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "base", deltaBase: -1},
		{hash: "child-early", deltaBase: 0},
		{hash: "child-late", deltaBase: 0},
	}
	tbl.relinkDeltaForest()
	if tbl.records[0].deltaChild != 1 {
		t.Errorf("expected the earlier-inserted child first, got %d", tbl.records[0].deltaChild)
	}
	if tbl.records[1].deltaSibling != 2 {
		t.Errorf("expected child-early's sibling to be child-late, got %d", tbl.records[1].deltaSibling)
	}
}

func TestAddDescendantsToWriteOrderVisitsBaseBeforeDeltaChain(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "root", deltaBase: -1, deltaChild: 1, deltaSibling: -1},
		{hash: "mid", deltaBase: 0, deltaChild: 2, deltaSibling: -1},
		{hash: "leaf", deltaBase: 1, deltaChild: -1, deltaSibling: -1},
	}
	var order []int
	tbl.addDescendantsToWriteOrder(&order, 0)
	if len(order) != 3 {
		t.Fatalf("order length: got %d, want 3", len(order))
	}
	if order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("expected depth-first base-to-leaf order, got %v", order)
	}
}

// TestAddDescendantsToWriteOrderVisitsSiblingsBeforeSubtree pins the
// libgit2 batch-sibling behavior: R's whole sibling chain (A, B, C) is
// emitted before descending into any of their children, so A's own
// children (A1, A2) come after C rather than immediately after A.
func TestAddDescendantsToWriteOrderVisitsSiblingsBeforeSubtree(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "R", deltaBase: -1, deltaChild: 1, deltaSibling: -1},
		{hash: "A", deltaBase: 0, deltaChild: 4, deltaSibling: 2},
		{hash: "B", deltaBase: 0, deltaChild: -1, deltaSibling: 3},
		{hash: "C", deltaBase: 0, deltaChild: -1, deltaSibling: -1},
		{hash: "A1", deltaBase: 1, deltaChild: -1, deltaSibling: 5},
		{hash: "A2", deltaBase: 1, deltaChild: -1, deltaSibling: -1},
	}
	var order []int
	tbl.addDescendantsToWriteOrder(&order, 0)
	want := []int{0, 1, 2, 3, 4, 5}
	if len(order) != len(want) {
		t.Fatalf("order length: got %d, want %d", len(order), len(want))
	}
	for i, idx := range want {
		if order[i] != idx {
			t.Fatalf("expected R,A,B,C,A1,A2 order, got %v", order)
		}
	}
}
