package pack

import (
	"testing"

	"github.com/odvcencio/packforge/pkg/object"
)

func TestMarkBigFilesSetsNoTryDelta(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "small", size: 10},
		{hash: "big", size: 1000},
	}
	tbl.markBigFiles(100)
	if tbl.records[0].noTryDelta {
		t.Error("small object should not be marked noTryDelta")
	}
	if !tbl.records[1].noTryDelta {
		t.Error("big object should be marked noTryDelta")
	}
}

func TestBuildCandidatesExcludesTooSmallAndBigFiles(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "tiny", size: minCandidateSize - 1},
		{hash: "eligible", size: minCandidateSize + 1, kind: object.TypeBlob},
		{hash: "big", size: minCandidateSize + 1, noTryDelta: true},
	}
	got := tbl.buildCandidates()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("buildCandidates: got %v, want [1]", got)
	}
}

func TestBuildCandidatesSortOrder(t *testing.T) {
	_, tbl := tempTable(t)
	tbl.records = []*objectRecord{
		{hash: "commit", size: 100, kind: object.TypeCommit, insertionOrder: 0},
		{hash: "tag", size: 100, kind: object.TypeTag, insertionOrder: 1},
		{hash: "blob-a", size: 100, kind: object.TypeBlob, nameHash: 5, insertionOrder: 2},
		{hash: "blob-b", size: 200, kind: object.TypeBlob, nameHash: 5, insertionOrder: 3},
	}
	got := tbl.buildCandidates()
	if len(got) != 4 {
		t.Fatalf("buildCandidates: got %d entries, want 4", len(got))
	}
	// tag (kindRank 4) sorts before commit (kindRank 1).
	if tbl.records[got[0]].kind != object.TypeTag {
		t.Errorf("first candidate kind: got %v, want tag", tbl.records[got[0]].kind)
	}
	// Among the two same-nameHash blobs, larger size sorts first.
	var blobPositions []int
	for i, idx := range got {
		if tbl.records[idx].kind == object.TypeBlob {
			blobPositions = append(blobPositions, i)
		}
	}
	if len(blobPositions) != 2 {
		t.Fatalf("expected 2 blob candidates, got %d", len(blobPositions))
	}
	firstBlob := tbl.records[got[blobPositions[0]]]
	if firstBlob.hash != "blob-b" {
		t.Errorf("expected larger blob-b to sort before blob-a, got %s first", firstBlob.hash)
	}
}

func TestKindRankOrdering(t *testing.T) {
	ranks := map[object.ObjectType]int{
		object.TypeTag:    kindRank(object.TypeTag),
		object.TypeBlob:   kindRank(object.TypeBlob),
		object.TypeTree:   kindRank(object.TypeTree),
		object.TypeCommit: kindRank(object.TypeCommit),
	}
	if !(ranks[object.TypeTag] > ranks[object.TypeBlob] &&
		ranks[object.TypeBlob] > ranks[object.TypeTree] &&
		ranks[object.TypeTree] > ranks[object.TypeCommit]) {
		t.Errorf("unexpected kind rank ordering: %+v", ranks)
	}
}
