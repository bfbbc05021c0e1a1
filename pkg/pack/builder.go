package pack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/odvcencio/packforge/pkg/object"
)

// Builder accumulates objects into a Table and drives the search and
// emission pipeline described across §4 of the design: populate, prepare
// (mark big files, build candidates, search for deltas, build the tag
// index), then plan the write order and stream the result through a Sink.
type Builder struct {
	store  *object.Store
	table  *Table
	cfg    Config
	roots  []object.Hash
	cache  *deltaCache
	tagIdx *TagIndex
}

// New creates a Builder backed by store, using cfg for search and cache
// tuning.
func New(store *object.Store, cfg Config) *Builder {
	return &Builder{
		store: store,
		table: NewTable(store),
		cfg:   cfg,
	}
}

// Insert adds a single object by hash under the given locality hint.
func (b *Builder) Insert(hash object.Hash, nameHint string) error {
	b.roots = append(b.roots, hash)
	return b.table.Insert(hash, nameHint)
}

// InsertTree adds a tree and everything it transitively references.
func (b *Builder) InsertTree(root object.Hash) error {
	b.roots = append(b.roots, root)
	return b.table.InsertTree(root)
}

// Len returns the number of distinct objects currently staged.
func (b *Builder) Len() int {
	return b.table.Len()
}

func (b *Builder) workerCount() int {
	if b.cfg.Workers > 0 {
		return b.cfg.Workers
	}
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}

// prepare runs the search phase once (idempotent across repeated Write*
// calls as long as no further Insert happened in between) and builds the
// tag index used by write-order planning.
func (b *Builder) prepare(ctx context.Context) error {
	if b.table.done {
		return nil
	}

	b.table.markBigFiles(b.cfg.BigFileThreshold)
	candidates := b.table.buildCandidates()

	b.cache = newDeltaCache(b.cfg.DeltaCacheSize, b.cfg.DeltaCacheLimit)
	if err := b.runParallel(ctx, b.table, candidates, b.cfg, b.cache, b.workerCount()); err != nil {
		return err
	}

	tagIdx, err := BuildTagIndex(b.store, b.roots)
	if err != nil {
		return err
	}
	b.tagIdx = tagIdx

	b.table.done = true
	return nil
}

// WriteToWriter runs preparation (if not already done) and streams a
// complete pack to w, returning the trailing checksum.
func (b *Builder) WriteToWriter(ctx context.Context, w io.Writer) (object.Hash, error) {
	if err := b.prepare(ctx); err != nil {
		return "", err
	}
	return b.table.WritePack(w, b.cache, b.tagIdx)
}

// WriteToBuffer is a convenience wrapper returning the pack bytes in a
// freshly allocated buffer.
func (b *Builder) WriteToBuffer(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.WriteToWriter(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteToFile writes the pack to a temp file beside path and renames it
// into place, so a failed or interrupted write never leaves a partial pack
// at the destination.
func (b *Builder) WriteToFile(ctx context.Context, path string) (object.Hash, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp pack file: %v", ErrIO, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	sum, err := b.WriteToWriter(ctx, tmp)
	if err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close temp pack file: %v", ErrIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("%w: rename temp pack file into place: %v", ErrIO, err)
	}
	return sum, nil
}

// Send builds the complete pack and hands it to sink (§6's send
// collaborator) in one call, matching the "write(bytes) -> ok|error" sink
// contract: any error from sink.Write aborts the operation.
func (b *Builder) Send(ctx context.Context, sink Sink) error {
	data, err := b.WriteToBuffer(ctx)
	if err != nil {
		return err
	}
	return sink.Write(ctx, data)
}
