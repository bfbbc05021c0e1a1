// Package deltacodec implements the create_index/create_delta/apply
// collaborator that the pack builder searches against: a content index
// over a source object, a greedy block-match delta encoder, and the
// matching decoder.
package deltacodec

import (
	"github.com/cespare/xxhash/v2"
)

// BlockSize is the granularity at which source blocks are hashed and
// indexed for matching.
const BlockSize = 16

// Index is a source-side lookup structure built once per base object and
// reused across every target that is probed against it.
type Index struct {
	src     []byte
	buckets map[uint64][]int // block hash -> source offsets, insertion order
}

// NewIndex builds a block-hash index over src. Every BlockSize-aligned
// offset is hashed with xxhash and appended to its bucket; overlapping
// (non-aligned) matches are still found by Create's extension step,
// which only needs one aligned anchor per run of matching bytes.
func NewIndex(src []byte) *Index {
	idx := &Index{src: src}
	if len(src) < BlockSize {
		return idx
	}
	nBlocks := len(src) / BlockSize
	idx.buckets = make(map[uint64][]int, nBlocks)
	for i := 0; i+BlockSize <= len(src); i += BlockSize {
		h := xxhash.Sum64(src[i : i+BlockSize])
		idx.buckets[h] = append(idx.buckets[h], i)
	}
	return idx
}

// Size reports the length of the indexed source.
func (idx *Index) Size() int {
	return len(idx.src)
}
