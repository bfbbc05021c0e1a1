package pack

import (
	"sort"

	"github.com/odvcencio/packforge/pkg/object"
)

// minCandidateSize is the lower bound on object size for delta
// consideration (§4.2).
const minCandidateSize = 50

// kindRank orders object kinds for the candidate sort's "kind descending"
// key, matching the pack wire format's type numbering (tag=4 highest
// through commit=1 lowest).
func kindRank(k object.ObjectType) int {
	switch k {
	case object.TypeTag:
		return 4
	case object.TypeBlob:
		return 3
	case object.TypeTree:
		return 2
	case object.TypeCommit:
		return 1
	default:
		return 0
	}
}

// markBigFiles sets noTryDelta on every record above the big-file
// threshold (§4.2 get_object_details).
func (t *Table) markBigFiles(bigFileThreshold int64) {
	for _, r := range t.records {
		r.noTryDelta = r.size > bigFileThreshold
	}
}

// buildCandidates returns record indices eligible for delta search,
// sorted by (kind desc, name_hash desc, size desc, insertion order desc).
func (t *Table) buildCandidates() []int {
	out := make([]int, 0, len(t.records))
	for i, r := range t.records {
		if r.size >= minCandidateSize && !r.noTryDelta {
			out = append(out, i)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := t.records[out[i]], t.records[out[j]]
		if ka, kb := kindRank(a.kind), kindRank(b.kind); ka != kb {
			return ka > kb
		}
		if a.nameHash != b.nameHash {
			return a.nameHash > b.nameHash
		}
		if a.size != b.size {
			return a.size > b.size
		}
		return a.insertionOrder > b.insertionOrder
	})
	return out
}
