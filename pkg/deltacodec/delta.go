package deltacodec

import (
	"github.com/cespare/xxhash/v2"
)

// maxCopySize is the largest span Create emits in a single copy opcode. A
// copy op whose size bytes are all zero decodes as this size, which is how
// a span of exactly maxCopySize is encoded.
const maxCopySize = 0x10000

func encodeVarint(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	out := make([]byte, 0, 10)
	for v > 0 {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func appendCopyOp(out []byte, offset, size int) []byte {
	cmd := byte(0x80)
	var bytesToAppend []byte

	if offset&0xff != 0 {
		cmd |= 0x01
		bytesToAppend = append(bytesToAppend, byte(offset))
	}
	if offset&0xff00 != 0 {
		cmd |= 0x02
		bytesToAppend = append(bytesToAppend, byte(offset>>8))
	}
	if offset&0xff0000 != 0 {
		cmd |= 0x04
		bytesToAppend = append(bytesToAppend, byte(offset>>16))
	}
	if offset&0xff000000 != 0 {
		cmd |= 0x08
		bytesToAppend = append(bytesToAppend, byte(offset>>24))
	}

	encodedSize := size
	if encodedSize == maxCopySize {
		encodedSize = 0
	}
	if encodedSize&0xff != 0 {
		cmd |= 0x10
		bytesToAppend = append(bytesToAppend, byte(encodedSize))
	}
	if encodedSize&0xff00 != 0 {
		cmd |= 0x20
		bytesToAppend = append(bytesToAppend, byte(encodedSize>>8))
	}
	if encodedSize&0xff0000 != 0 {
		cmd |= 0x40
		bytesToAppend = append(bytesToAppend, byte(encodedSize>>16))
	}

	out = append(out, cmd)
	out = append(out, bytesToAppend...)
	return out
}

func appendInsertRun(out []byte, run []byte) []byte {
	for len(run) > 0 {
		chunk := len(run)
		if chunk > 127 {
			chunk = 127
		}
		out = append(out, byte(chunk))
		out = append(out, run[:chunk]...)
		run = run[chunk:]
	}
	return out
}

// Create searches idx's source for matching runs against target and
// encodes a Git-format delta instruction stream. It returns (nil, false)
// if no matching block is found anywhere (the caller should fall back to
// storing target whole) or if the encoded delta would exceed maxSize.
func Create(idx *Index, target []byte, maxSize int) ([]byte, bool) {
	header := append(encodeVarint(uint64(idx.Size())), encodeVarint(uint64(len(target)))...)
	body := make([]byte, 0, len(target)/2)

	var pending []byte
	matched := false

	flushPending := func() {
		body = appendInsertRun(body, pending)
		pending = nil
	}

	i := 0
	for i < len(target) {
		if idx.buckets != nil && i+BlockSize <= len(target) {
			h := xxhash.Sum64(target[i : i+BlockSize])
			if offsets, ok := idx.buckets[h]; ok {
				bestOff, bestLen := -1, 0
				for _, off := range offsets {
					runLen := extendMatch(idx.src, target, off, i)
					if runLen > bestLen {
						bestOff, bestLen = off, runLen
					}
				}
				if bestLen >= BlockSize {
					flushPending()
					matched = true
					off, remaining := bestOff, bestLen
					for remaining > 0 {
						chunk := remaining
						if chunk > maxCopySize {
							chunk = maxCopySize
						}
						body = appendCopyOp(body, off, chunk)
						off += chunk
						remaining -= chunk
					}
					i += bestLen
					if len(header)+len(body) > maxSize {
						return nil, false
					}
					continue
				}
			}
		}
		pending = append(pending, target[i])
		i++
		if len(header)+len(body)+len(pending) > maxSize {
			return nil, false
		}
	}
	flushPending()

	if !matched {
		return nil, false
	}

	out := append(header, body...)
	if len(out) > maxSize {
		return nil, false
	}
	return out, true
}

func extendMatch(base, target []byte, baseOff, targetOff int) int {
	n := 0
	for baseOff+n < len(base) && targetOff+n < len(target) && base[baseOff+n] == target[targetOff+n] {
		n++
	}
	return n
}

// Apply reconstructs the target bytes encoded by delta against base using
// this package's own opcode interpreter, which decodes the same Git delta
// wire format as pkg/object.ApplyDelta.
func Apply(base, delta []byte) ([]byte, error) {
	return applyDelta(base, delta)
}
