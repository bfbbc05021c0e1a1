package pack

import (
	"fmt"

	"github.com/odvcencio/packforge/pkg/object"
)

// objectRecord is one entry in the object table. Fields are grouped the
// way §3 of the design groups them: identity, delta linkage populated
// during search, and planner/emitter scratch repopulated on every write.
type objectRecord struct {
	hash           object.Hash
	kind           object.ObjectType
	size           int64
	nameHash       uint32
	insertionOrder int
	noTryDelta     bool

	// Delta linkage, populated during search.
	deltaBase    int // index into Table.records, or -1
	deltaSize    int64
	deltaData    []byte // cached buffer, possibly compressed (see zDeltaSize)
	zDeltaSize   int64  // compressed length when deltaData already holds the compressed form
	depth        int
	deltaChild   int // first child, or -1
	deltaSibling int // next sibling, or -1

	// Planner/emitter scratch, reset on every write.
	tagged    bool
	filled    bool
	written   bool
	recursing bool
}

// Table is the append-only object table: a vector of records plus a
// hash-to-index map enforcing uniqueness.
type Table struct {
	store   *object.Store
	records []*objectRecord
	byHash  map[object.Hash]int
	done    bool
}

// NewTable creates an empty table reading objects from store.
func NewTable(store *object.Store) *Table {
	return &Table{
		store:  store,
		byHash: make(map[object.Hash]int),
	}
}

// Len returns the number of distinct objects in the table.
func (t *Table) Len() int {
	return len(t.records)
}

// Insert adds one object by hash, reading its kind and size from the
// backing store. Re-inserting a hash already present is a no-op that
// still reports success. A successful insertion clears the "done" flag so
// the next emit re-runs preparation.
func (t *Table) Insert(hash object.Hash, nameHint string) error {
	if _, ok := t.byHash[hash]; ok {
		return nil
	}

	kind, data, err := t.store.Read(hash)
	if err != nil {
		return fmt.Errorf("%w: insert %s: %v", ErrStoreRead, hash, err)
	}

	rec := &objectRecord{
		hash:           hash,
		kind:           kind,
		size:           int64(len(data)),
		nameHash:       nameHash(nameHint),
		insertionOrder: len(t.records),
		deltaBase:      -1,
		deltaChild:     -1,
		deltaSibling:   -1,
	}
	t.byHash[hash] = len(t.records)
	t.records = append(t.records, rec)
	t.done = false
	return nil
}

// InsertTree inserts the tree itself and then every entry it transitively
// references, in pre-order, with each entry's name hint formed from the
// path prefix leading to it.
func (t *Table) InsertTree(root object.Hash) error {
	return t.insertTreeAt(root, "")
}

func (t *Table) insertTreeAt(treeHash object.Hash, prefix string) error {
	if err := t.Insert(treeHash, prefix); err != nil {
		return err
	}

	tree, err := t.store.ReadTree(treeHash)
	if err != nil {
		return fmt.Errorf("%w: insert_tree read %s: %v", ErrStoreRead, treeHash, err)
	}

	for _, entry := range tree.Entries {
		fullName := entry.Name
		if prefix != "" {
			fullName = prefix + "/" + entry.Name
		}
		if entry.IsDir {
			if err := t.insertTreeAt(entry.SubtreeHash, fullName); err != nil {
				return err
			}
			continue
		}
		if err := t.Insert(entry.BlobHash, fullName); err != nil {
			return err
		}
	}
	return nil
}

// resetScratch clears planner/emitter scratch fields on every record,
// ahead of a write-order computation.
func (t *Table) resetScratch() {
	for _, r := range t.records {
		r.tagged = false
		r.filled = false
		r.written = false
		r.recursing = false
	}
}

// nameHash implements §4.1's locality fingerprint: iterate the hint's
// bytes skipping whitespace; for each remaining byte c, fold it into the
// running hash so the last ~16 non-whitespace bytes dominate.
func nameHash(hint string) uint32 {
	var h uint32
	for i := 0; i < len(hint); i++ {
		c := hint[i]
		if isHashWhitespace(c) {
			continue
		}
		h = (h >> 2) + (uint32(c) << 24)
	}
	return h
}

func isHashWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

// checkDeltaLimit returns the depth of the deepest delta-child subtree
// rooted at rec (0 if rec has no delta children yet).
func (t *Table) checkDeltaLimit(recIdx int) int {
	rec := t.records[recIdx]
	best := 0
	for child := rec.deltaChild; child != -1; child = t.records[child].deltaSibling {
		d := 1 + t.checkDeltaLimit(child)
		if d > best {
			best = d
		}
	}
	return best
}

// linkChild prepends child as the first delta-child of base.
func (t *Table) linkChild(baseIdx, childIdx int) {
	base := t.records[baseIdx]
	child := t.records[childIdx]
	child.deltaSibling = base.deltaChild
	base.deltaChild = childIdx
}

// unlinkChild removes child from base's delta-child list.
func (t *Table) unlinkChild(baseIdx, childIdx int) {
	base := t.records[baseIdx]
	if base.deltaChild == childIdx {
		base.deltaChild = t.records[childIdx].deltaSibling
		return
	}
	for cur := base.deltaChild; cur != -1; cur = t.records[cur].deltaSibling {
		rec := t.records[cur]
		if rec.deltaSibling == childIdx {
			rec.deltaSibling = t.records[childIdx].deltaSibling
			return
		}
	}
}
