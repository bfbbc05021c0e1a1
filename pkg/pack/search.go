package pack

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/odvcencio/packforge/pkg/deltacodec"
)

// deltaCache is the global, mutex-guarded budget for cached delta
// buffers, shared across every worker in the parallel driver (§4.4's
// "cache mutex").
type deltaCache struct {
	mu              sync.Mutex
	used            int64
	max             int64
	smallDeltaLimit int64
}

func newDeltaCache(maxSize, smallDeltaLimit int64) *deltaCache {
	return &deltaCache{max: maxSize, smallDeltaLimit: smallDeltaLimit}
}

// admit decides whether a freshly accepted delta of deltaSize (computed
// from a source of srcSize against a target of trgSize) should be cached,
// charging the budget atomically if so (§4.3 step "decide whether to
// cache").
func (c *deltaCache) admit(deltaSize, srcSize, trgSize int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.used+deltaSize > c.max {
		return false
	}
	smallEnough := deltaSize < c.smallDeltaLimit
	sizeRatio := (srcSize>>20)+(trgSize>>21) > (deltaSize >> 10)
	if !smallEnough && !sizeRatio {
		return false
	}
	c.used += deltaSize
	return true
}

// release refunds n bytes previously charged by admit.
func (c *deltaCache) release(n int64) {
	c.mu.Lock()
	c.used -= n
	c.mu.Unlock()
}

// recharge atomically swaps a charged amount for a new amount (used when
// a cached delta is recompressed in place).
func (c *deltaCache) recharge(oldSize, newSize int64) {
	c.mu.Lock()
	c.used += newSize - oldSize
	c.mu.Unlock()
}

// windowSlot is one occupant of the sliding window: the candidate record
// it holds, its materialized payload, and a lazily built source index.
type windowSlot struct {
	recIdx   int // -1 when empty
	data     []byte
	srcIndex *deltacodec.Index
}

func (s *windowSlot) memUsage() int64 {
	if s.recIdx == -1 {
		return 0
	}
	return int64(len(s.data))
}

// window is the circular buffer of up to W+1 candidate slots that the
// single-worker search scans for delta bases.
type window struct {
	slots     []*windowSlot
	idx       int
	count     int
	memUsage  int64
	memLimit  int64
}

func newWindow(size int, memLimit int64) *window {
	slots := make([]*windowSlot, size)
	for i := range slots {
		slots[i] = &windowSlot{recIdx: -1}
	}
	return &window{slots: slots, memLimit: memLimit}
}

func (w *window) evict(pos int) {
	s := w.slots[pos]
	if s.recIdx == -1 {
		return
	}
	w.memUsage -= s.memUsage()
	s.recIdx = -1
	s.data = nil
	s.srcIndex = nil
	if w.count > 0 {
		w.count--
	}
}

// trim evicts slots from the slot following idx (the oldest occupant)
// while over the configured memory limit and more than one slot remains.
func (w *window) trim() {
	if w.memLimit <= 0 {
		return
	}
	for w.memUsage > w.memLimit && w.count > 1 {
		pos := (w.idx + 1) % len(w.slots)
		for w.slots[pos].recIdx == -1 {
			pos = (pos + 1) % len(w.slots)
			if pos == w.idx {
				return
			}
		}
		w.evict(pos)
	}
}

// searcher runs the §4.3 single-worker delta search loop over one
// candidate segment, against a shared table and cache.
type searcher struct {
	t      *Table
	cfg    Config
	cache  *deltaCache
	window *window
}

func newSearcher(t *Table, cfg Config, cache *deltaCache) *searcher {
	return &searcher{
		t:      t,
		cfg:    cfg,
		cache:  cache,
		window: newWindow(cfg.Window+1, cfg.WindowMemory),
	}
}

// run executes the search over candidates in order, honoring ctx
// cancellation at the head of each iteration.
func (s *searcher) run(ctx context.Context, candidates []int) error {
	for _, poIdx := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.step(poIdx); err != nil {
			return err
		}
	}
	return nil
}

func (s *searcher) step(poIdx int) error {
	w := s.window
	po := s.t.records[poIdx]

	slotPos := w.idx
	w.evict(slotPos)
	slot := w.slots[slotPos]
	slot.recIdx = poIdx
	w.count++

	w.trim()

	maxDepth := s.cfg.MaxDepth - s.t.checkDeltaLimit(poIdx)
	bestBaseSlot := -1
	if maxDepth > 0 {
		n := len(w.slots)
		for k := 1; k < n; k++ {
			mPos := (slotPos + n - k) % n
			mSlot := w.slots[mPos]
			if mSlot.recIdx == -1 || mPos == slotPos {
				continue
			}
			result, err := s.tryDelta(poIdx, mSlot, maxDepth)
			if err != nil {
				return err
			}
			if result < 0 {
				break
			}
			if result > 0 {
				bestBaseSlot = mPos
			}
		}
	}

	if po.deltaBase != -1 {
		if po.deltaData != nil && po.zDeltaSize == 0 {
			compressed, err := compressDeltaPayload(po.deltaData)
			if err != nil {
				return fmt.Errorf("%w: compress cached delta for %s: %v", ErrAlloc, po.hash, err)
			}
			s.cache.recharge(int64(len(po.deltaData)), int64(len(compressed)))
			po.deltaData = compressed
			po.zDeltaSize = int64(len(compressed))
		}

		if po.depth == maxDepth {
			w.evict(slotPos)
		} else if bestBaseSlot != -1 {
			other := (slotPos + len(w.slots) - 1) % len(w.slots)
			if other != bestBaseSlot {
				w.slots[bestBaseSlot], w.slots[other] = w.slots[other], w.slots[bestBaseSlot]
			}
		}
	}

	w.idx = (slotPos + 1) % len(w.slots)
	return nil
}

// tryDelta implements §4.3's try_delta(n, m, max_depth), where n is the
// candidate just inserted into the window and m is one slot being probed
// as a potential base.
func (s *searcher) tryDelta(nIdx int, mSlot *windowSlot, maxDepth int) (int, error) {
	n := s.t.records[nIdx]
	mIdx := mSlot.recIdx
	m := s.t.records[mIdx]

	if n.kind != m.kind {
		return -1, nil
	}
	if m.depth >= maxDepth {
		return 0, nil
	}

	var maxSize, refDepth int64
	if n.deltaBase == -1 {
		refDepth = 1
		maxSize = n.size/2 - 20
	} else {
		refDepth = int64(n.depth)
		maxSize = n.deltaSize
	}
	if maxSize <= 0 {
		return 0, nil
	}
	denom := int64(maxDepth) - refDepth + 1
	if denom <= 0 {
		return 0, nil
	}
	maxSize = maxSize * (int64(maxDepth) - int64(m.depth)) / denom
	if maxSize <= 0 {
		return 0, nil
	}

	if m.size < n.size && n.size-m.size >= maxSize {
		return 0, nil
	}
	if n.size < m.size/32 {
		return 0, nil
	}

	if err := s.materialize(nIdx); err != nil {
		return 0, err
	}
	if err := s.materialize(mIdx); err != nil {
		return 0, err
	}

	nSlot := s.slotFor(nIdx)
	if mSlot.srcIndex == nil {
		mSlot.srcIndex = deltacodec.NewIndex(mSlot.data)
	}

	delta, ok := deltacodec.Create(mSlot.srcIndex, nSlot.data, int(maxSize))
	if !ok {
		return 0, nil
	}
	deltaSize := int64(len(delta))

	if n.deltaBase != -1 {
		improves := deltaSize < n.deltaSize
		shallower := deltaSize == n.deltaSize && m.depth+1 < n.depth
		if !improves && !shallower {
			return 0, nil
		}
	}

	if n.deltaData != nil {
		s.cache.release(int64(len(n.deltaData)))
		n.deltaData = nil
		n.zDeltaSize = 0
	}
	if n.deltaBase != -1 {
		s.t.unlinkChild(n.deltaBase, nIdx)
	}

	if s.cache.admit(deltaSize, m.size, n.size) {
		owned := make([]byte, len(delta))
		copy(owned, delta)
		n.deltaData = owned
		n.zDeltaSize = 0
	}

	n.deltaBase = mIdx
	n.deltaSize = deltaSize
	n.depth = m.depth + 1
	s.t.linkChild(mIdx, nIdx)

	return 1, nil
}

func (s *searcher) slotFor(recIdx int) *windowSlot {
	for _, sl := range s.window.slots {
		if sl.recIdx == recIdx {
			return sl
		}
	}
	return nil
}

// materialize lazily reads a slot's record content from the backing
// store, accounting the bytes in the window's memory usage.
func (s *searcher) materialize(recIdx int) error {
	slot := s.slotFor(recIdx)
	if slot == nil || slot.data != nil {
		return nil
	}
	rec := s.t.records[recIdx]
	_, data, err := s.t.store.Read(rec.hash)
	if err != nil {
		return fmt.Errorf("%w: materialize %s: %v", ErrStoreRead, rec.hash, err)
	}
	if int64(len(data)) != rec.size {
		return fmt.Errorf("%w: %s size changed since insertion: had %d, now %d", ErrInvariant, rec.hash, rec.size, len(data))
	}
	slot.data = data
	s.window.memUsage += int64(len(data))
	return nil
}

func compressDeltaPayload(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
