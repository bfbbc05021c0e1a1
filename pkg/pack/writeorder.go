package pack

import (
	"fmt"

	"github.com/odvcencio/packforge/pkg/object"
)

// planWriteOrder computes the emit permutation described in §4.5: an
// untagged prefix, then all tagged tips, then remaining commits/tags,
// then remaining trees, then every remaining object visited family by
// family (base followed by its delta descendants, depth-first).
func (t *Table) planWriteOrder(tagIdx *TagIndex) ([]int, error) {
	t.resetScratch()
	t.relinkDeltaForest()
	t.markTagged(tagIdx)

	order := make([]int, 0, len(t.records))

	for i := range t.records {
		if t.records[i].tagged {
			break
		}
		t.fill(i, &order)
	}

	for i := range t.records {
		if t.records[i].tagged && !t.records[i].filled {
			t.fill(i, &order)
		}
	}

	for i := range t.records {
		r := t.records[i]
		if !r.filled && (r.kind == object.TypeCommit || r.kind == object.TypeTag) {
			t.fill(i, &order)
		}
	}

	for i := range t.records {
		r := t.records[i]
		if !r.filled && r.kind == object.TypeTree {
			t.fill(i, &order)
		}
	}

	for i := range t.records {
		if t.records[i].filled {
			continue
		}
		root := i
		for t.records[root].deltaBase != -1 {
			root = t.records[root].deltaBase
		}
		t.addDescendantsToWriteOrder(&order, root)
	}

	if len(order) != len(t.records) {
		return nil, fmt.Errorf("%w: invalid write order: emitted %d of %d records", ErrInvariant, len(order), len(t.records))
	}
	return order, nil
}

func (t *Table) fill(i int, order *[]int) {
	t.records[i].filled = true
	*order = append(*order, i)
}

// relinkDeltaForest rebuilds the delta_child/delta_sibling parent/
// first-child/next-sibling forest from the delta_base links left by
// search, iterating in reverse insertion order so that sibling order
// equals original recency order when walked forward.
func (t *Table) relinkDeltaForest() {
	for _, r := range t.records {
		r.deltaChild = -1
		r.deltaSibling = -1
	}
	for i := len(t.records) - 1; i >= 0; i-- {
		if base := t.records[i].deltaBase; base != -1 {
			t.linkChild(base, i)
		}
	}
}

func (t *Table) markTagged(tagIdx *TagIndex) {
	for _, r := range t.records {
		r.tagged = tagIdx.IsTagged(r.hash)
	}
}

// addDescendantsToWriteOrder performs the family walk rooted at rootIdx:
// batch-add a node and all of its siblings, then descend into the first
// child's own sibling batch, and so on; only after an entire sibling
// batch's subtrees are exhausted does the walk backtrack through
// delta_base links to resume at the next unvisited sibling one level up
// (stopping naturally once that climb runs off the root, whose
// delta_base is -1). This matches libgit2's add_descendants_to_write_order:
// a node's siblings are emitted together before any of them is descended
// into, not interleaved with their children.
func (t *Table) addDescendantsToWriteOrder(order *[]int, rootIdx int) {
	n := rootIdx
	addToOrder := true
	for n != -1 {
		if addToOrder {
			t.addSiblingBatch(order, n)
		}

		if child := t.records[n].deltaChild; child != -1 {
			n = child
			addToOrder = true
			continue
		}
		addToOrder = false

		if sib := t.records[n].deltaSibling; sib != -1 {
			n = sib
			continue
		}

		cur := t.records[n].deltaBase
		for cur != -1 && t.records[cur].deltaSibling == -1 {
			cur = t.records[cur].deltaBase
		}
		if cur == -1 {
			return
		}
		n = t.records[cur].deltaSibling
	}
}

// addSiblingBatch adds n, then walks n's delta_sibling chain adding each
// one in turn, so a whole generation of a delta family is emitted
// contiguously before any of them is descended into.
func (t *Table) addSiblingBatch(order *[]int, n int) {
	if !t.records[n].filled {
		t.fill(n, order)
	}
	for s := t.records[n].deltaSibling; s != -1; s = t.records[s].deltaSibling {
		if !t.records[s].filled {
			t.fill(s, order)
		}
	}
}
