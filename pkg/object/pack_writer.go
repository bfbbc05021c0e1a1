package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/klauspost/compress/zlib"
)

type packCountedWriter struct {
	w io.Writer
	n uint64
}

func (cw *packCountedWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += uint64(n)
	return n, err
}

func (cw *packCountedWriter) Count() uint64 {
	return cw.n
}

func compressPackPayload(raw []byte) ([]byte, error) {
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

// PackWriter writes Git-compatible pack streams with zlib-compressed object
// entries. The trailer checksum is the SHA-1 over all bytes preceding the
// trailer, matching the width of Hash.
type PackWriter struct {
	out      io.Writer
	hasher   hash.Hash
	hashedW  io.Writer
	counter  *packCountedWriter
	expected uint32
	written  uint32
	finished bool
}

// NewPackWriter initializes a new writer and writes the fixed pack header.
func NewPackWriter(out io.Writer, numObjects uint32) (*PackWriter, error) {
	hasher := sha1.New()
	counter := &packCountedWriter{w: out}
	pw := &PackWriter{
		out:      out,
		hasher:   hasher,
		hashedW:  io.MultiWriter(counter, hasher),
		counter:  counter,
		expected: numObjects,
	}

	header := PackHeader{
		Version:    supportedPackVersion,
		NumObjects: numObjects,
	}
	if _, err := pw.hashedW.Write(header.Marshal()); err != nil {
		return nil, fmt.Errorf("write pack header: %w", err)
	}
	return pw, nil
}

// CurrentOffset returns the current byte offset in the pack stream (from pack
// start), excluding the trailing checksum written by Finish().
func (p *PackWriter) CurrentOffset() uint64 {
	return p.counter.Count()
}

// WriteEntry appends one whole-object entry to the pack stream.
func (p *PackWriter) WriteEntry(objType PackObjectType, data []byte) error {
	if p.finished {
		return fmt.Errorf("pack writer already finished")
	}
	if p.written >= p.expected {
		return fmt.Errorf("pack object count exceeded: expected %d", p.expected)
	}

	header := encodePackEntryHeader(objType, uint64(len(data)))
	if _, err := p.hashedW.Write(header); err != nil {
		return fmt.Errorf("write pack entry header: %w", err)
	}

	compressed, err := compressPackPayload(data)
	if err != nil {
		return fmt.Errorf("compress pack entry: %w", err)
	}
	if _, err := p.hashedW.Write(compressed); err != nil {
		return fmt.Errorf("write compressed pack entry: %w", err)
	}

	p.written++
	return nil
}

// WriteOfsDelta writes an OFS_DELTA entry. delta must already be a complete
// Git delta instruction stream (base size, result size, copy/insert ops) as
// produced by pkg/deltacodec.
func (p *PackWriter) WriteOfsDelta(baseOffset uint64, delta []byte, resultSize uint64) error {
	if p.finished {
		return fmt.Errorf("pack writer already finished")
	}
	if p.written >= p.expected {
		return fmt.Errorf("pack object count exceeded: expected %d", p.expected)
	}
	current := p.CurrentOffset()
	if baseOffset >= current {
		return fmt.Errorf("base offset %d must be before current offset %d", baseOffset, current)
	}

	header := encodePackEntryHeader(PackOfsDelta, resultSize)
	ofs := encodeOfsDeltaDistance(current - baseOffset)
	compressed, err := compressPackPayload(delta)
	if err != nil {
		return fmt.Errorf("compress delta payload: %w", err)
	}

	if _, err := p.hashedW.Write(header); err != nil {
		return fmt.Errorf("write ofs-delta header: %w", err)
	}
	if _, err := p.hashedW.Write(ofs); err != nil {
		return fmt.Errorf("write ofs-delta base distance: %w", err)
	}
	if _, err := p.hashedW.Write(compressed); err != nil {
		return fmt.Errorf("write ofs-delta payload: %w", err)
	}

	p.written++
	return nil
}

// WriteRefDelta writes a REF_DELTA entry: a 20-byte raw base hash followed by
// a compressed delta instruction stream.
func (p *PackWriter) WriteRefDelta(base Hash, delta []byte, resultSize uint64) error {
	if p.finished {
		return fmt.Errorf("pack writer already finished")
	}
	if p.written >= p.expected {
		return fmt.Errorf("pack object count exceeded: expected %d", p.expected)
	}

	baseRaw, err := base.Bytes()
	if err != nil {
		return fmt.Errorf("ref-delta base: %w", err)
	}

	header := encodePackEntryHeader(PackRefDelta, resultSize)
	compressed, err := compressPackPayload(delta)
	if err != nil {
		return fmt.Errorf("compress delta payload: %w", err)
	}

	if _, err := p.hashedW.Write(header); err != nil {
		return fmt.Errorf("write ref-delta header: %w", err)
	}
	if _, err := p.hashedW.Write(baseRaw); err != nil {
		return fmt.Errorf("write ref-delta base: %w", err)
	}
	if _, err := p.hashedW.Write(compressed); err != nil {
		return fmt.Errorf("write ref-delta payload: %w", err)
	}

	p.written++
	return nil
}

// WriteRefDeltaCompressed writes a REF_DELTA entry whose delta payload is
// already zlib-compressed, skipping the compress step WriteRefDelta performs.
// Used when the caller cached a compressed delta buffer across the search
// and write phases.
func (p *PackWriter) WriteRefDeltaCompressed(base Hash, compressed []byte, resultSize uint64) error {
	if p.finished {
		return fmt.Errorf("pack writer already finished")
	}
	if p.written >= p.expected {
		return fmt.Errorf("pack object count exceeded: expected %d", p.expected)
	}

	baseRaw, err := base.Bytes()
	if err != nil {
		return fmt.Errorf("ref-delta base: %w", err)
	}

	header := encodePackEntryHeader(PackRefDelta, resultSize)
	if _, err := p.hashedW.Write(header); err != nil {
		return fmt.Errorf("write ref-delta header: %w", err)
	}
	if _, err := p.hashedW.Write(baseRaw); err != nil {
		return fmt.Errorf("write ref-delta base: %w", err)
	}
	if _, err := p.hashedW.Write(compressed); err != nil {
		return fmt.Errorf("write ref-delta payload: %w", err)
	}

	p.written++
	return nil
}

// Finish validates object count, writes the trailing pack checksum, and
// returns that checksum as a hex digest.
func (p *PackWriter) Finish() (Hash, error) {
	if p.finished {
		return "", fmt.Errorf("pack writer already finished")
	}
	if p.written != p.expected {
		return "", fmt.Errorf("pack object count mismatch: wrote %d, expected %d", p.written, p.expected)
	}

	sum := p.hasher.Sum(nil)
	if _, err := p.out.Write(sum); err != nil {
		return "", fmt.Errorf("write pack trailer checksum: %w", err)
	}

	p.finished = true
	return Hash(hex.EncodeToString(sum)), nil
}
