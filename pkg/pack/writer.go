package pack

import (
	"fmt"
	"io"

	"github.com/odvcencio/packforge/pkg/deltacodec"
	"github.com/odvcencio/packforge/pkg/object"
)

// recomputeMaxSize bounds the delta recomputed at write time when no cached
// buffer survived the search phase. It only needs to be large enough that
// deltacodec.Create never truncates early; deltacodec's greedy scan is
// deterministic given the same base and target, so recomputing reproduces
// the exact bytes search already measured.
const recomputeMaxSize = 1 << 31

func packKind(k object.ObjectType) (object.PackObjectType, error) {
	switch k {
	case object.TypeCommit:
		return object.PackCommit, nil
	case object.TypeTree:
		return object.PackTree, nil
	case object.TypeBlob:
		return object.PackBlob, nil
	case object.TypeTag:
		return object.PackTag, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized object kind %q", ErrInvariant, k)
	}
}

// packEmitter drives the §4.6 write_one emission over a table whose write
// order has already been planned, streaming entries into a PackWriter.
type packEmitter struct {
	t     *Table
	pw    *object.PackWriter
	cache *deltaCache
}

// writePack writes every record in order through pw, recursing into a
// record's delta base first so bases always precede their deltas.
func (t *Table) writePack(pw *object.PackWriter, cache *deltaCache, order []int) error {
	e := &packEmitter{t: t, pw: pw, cache: cache}
	for _, idx := range order {
		if err := e.writeOne(idx); err != nil {
			return err
		}
	}
	return nil
}

// writeOne emits rec and, transitively, any delta base it still depends on.
// recursing is used to detect a base already on the active call stack: if
// found, the cycle is broken by dropping this record's delta and falling
// back to a whole-object entry.
func (e *packEmitter) writeOne(idx int) error {
	rec := e.t.records[idx]
	if rec.written {
		return nil
	}

	if rec.deltaBase != -1 {
		base := e.t.records[rec.deltaBase]
		if base.recursing {
			e.dropDelta(rec)
		} else if !base.written {
			rec.recursing = true
			err := e.writeOne(rec.deltaBase)
			rec.recursing = false
			if err != nil {
				return err
			}
		}
	}

	return e.emit(idx)
}

// dropDelta clears a record's delta linkage so it emits as a whole object.
// Reached only when a cycle is detected in a caller-supplied delta chain,
// which planWriteOrder's forest construction should never itself produce.
func (e *packEmitter) dropDelta(rec *objectRecord) {
	if rec.deltaData != nil {
		e.cache.release(deltaCacheCharge(rec))
		rec.deltaData = nil
		rec.zDeltaSize = 0
	}
	e.t.unlinkChild(rec.deltaBase, e.t.byHash[rec.hash])
	rec.deltaBase = -1
}

func deltaCacheCharge(rec *objectRecord) int64 {
	if rec.zDeltaSize > 0 {
		return rec.zDeltaSize
	}
	return int64(len(rec.deltaData))
}

// emit writes rec's entry, assuming any delta base it still references has
// already been written. It recomputes the delta payload when the cached
// buffer did not survive from the search phase.
func (e *packEmitter) emit(idx int) error {
	rec := e.t.records[idx]
	if rec.written {
		return nil
	}

	if rec.deltaBase == -1 {
		return e.emitWhole(rec)
	}
	return e.emitDelta(rec)
}

func (e *packEmitter) emitWhole(rec *objectRecord) error {
	kind, err := packKind(rec.kind)
	if err != nil {
		return err
	}
	_, data, err := e.t.store.Read(rec.hash)
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStoreRead, rec.hash, err)
	}
	if err := e.pw.WriteEntry(kind, data); err != nil {
		return fmt.Errorf("%w: write entry %s: %v", ErrIO, rec.hash, err)
	}
	rec.written = true
	return nil
}

func (e *packEmitter) emitDelta(rec *objectRecord) error {
	base := e.t.records[rec.deltaBase]

	var err error
	switch {
	case rec.deltaData != nil && rec.zDeltaSize > 0:
		err = e.pw.WriteRefDeltaCompressed(base.hash, rec.deltaData, uint64(rec.deltaSize))
	case rec.deltaData != nil:
		err = e.pw.WriteRefDelta(base.hash, rec.deltaData, uint64(rec.deltaSize))
	default:
		err = e.emitRecomputedDelta(rec, base)
	}
	if err != nil {
		return err
	}

	if rec.deltaData != nil {
		e.cache.release(deltaCacheCharge(rec))
	}
	rec.deltaData = nil
	rec.zDeltaSize = 0
	rec.written = true
	return nil
}

// emitRecomputedDelta rebuilds a delta that admit() declined to cache
// during search, reading both base and target content back from the store.
func (e *packEmitter) emitRecomputedDelta(rec, base *objectRecord) error {
	_, baseData, err := e.t.store.Read(base.hash)
	if err != nil {
		return fmt.Errorf("%w: recompute delta base %s: %v", ErrStoreRead, base.hash, err)
	}
	_, targetData, err := e.t.store.Read(rec.hash)
	if err != nil {
		return fmt.Errorf("%w: recompute delta target %s: %v", ErrStoreRead, rec.hash, err)
	}

	idx := deltacodec.NewIndex(baseData)
	delta, ok := deltacodec.Create(idx, targetData, recomputeMaxSize)
	if !ok {
		return fmt.Errorf("%w: delta for %s against %s did not reproduce at write time", ErrInvariant, rec.hash, base.hash)
	}
	if int64(len(delta)) != rec.deltaSize {
		return fmt.Errorf("%w: delta for %s changed size between search (%d) and write (%d)", ErrInvariant, rec.hash, rec.deltaSize, len(delta))
	}

	return e.pw.WriteRefDelta(base.hash, delta, uint64(rec.deltaSize))
}

// WritePack streams every object in t, in the write order computed from
// tagIdx, into out as a complete Git-compatible pack stream, and returns the
// trailer checksum.
func (t *Table) WritePack(out io.Writer, cache *deltaCache, tagIdx *TagIndex) (object.Hash, error) {
	order, err := t.planWriteOrder(tagIdx)
	if err != nil {
		return "", err
	}

	pw, err := object.NewPackWriter(out, uint32(len(t.records)))
	if err != nil {
		return "", fmt.Errorf("%w: start pack stream: %v", ErrIO, err)
	}

	if err := t.writePack(pw, cache, order); err != nil {
		return "", err
	}

	sum, err := pw.Finish()
	if err != nil {
		return "", fmt.Errorf("%w: finish pack stream: %v", ErrIO, err)
	}
	return sum, nil
}
