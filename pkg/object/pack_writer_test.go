package object

import (
	"bytes"
	"testing"
)

func TestPackWriterWholeObjectsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	pw, err := NewPackWriter(&buf, 2)
	if err != nil {
		t.Fatalf("NewPackWriter: %v", err)
	}
	if err := pw.WriteEntry(PackBlob, []byte("blob one")); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := pw.WriteEntry(PackTree, []byte("tree one")); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	sum, err := pw.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(sum) != 40 {
		t.Errorf("checksum length: got %d, want 40", len(sum))
	}

	pf, err := ReadPack(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadPack: %v", err)
	}
	if len(pf.Entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(pf.Entries))
	}
	if pf.Entries[0].Type != PackBlob || string(pf.Entries[0].Data) != "blob one" {
		t.Errorf("entry 0: got %v %q", pf.Entries[0].Type, pf.Entries[0].Data)
	}
	if pf.Entries[1].Type != PackTree || string(pf.Entries[1].Data) != "tree one" {
		t.Errorf("entry 1: got %v %q", pf.Entries[1].Type, pf.Entries[1].Data)
	}
	if pf.Checksum != sum {
		t.Errorf("checksum mismatch: header trailer %q, Finish() %q", pf.Checksum, sum)
	}
}

func TestPackWriterRefDeltaRoundTrip(t *testing.T) {
	base := []byte("the quick brown fox jumps over the lazy dog")
	baseHash := HashObject(TypeBlob, base)
	insert := []byte(" and then some")
	delta := buildTestDelta(base, insert)

	var buf bytes.Buffer
	pw, err := NewPackWriter(&buf, 2)
	if err != nil {
		t.Fatalf("NewPackWriter: %v", err)
	}
	if err := pw.WriteEntry(PackBlob, base); err != nil {
		t.Fatalf("WriteEntry base: %v", err)
	}
	if err := pw.WriteRefDelta(baseHash, delta, uint64(len(delta))); err != nil {
		t.Fatalf("WriteRefDelta: %v", err)
	}
	if _, err := pw.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	pf, err := ReadPack(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadPack: %v", err)
	}
	if pf.Entries[1].Type != PackRefDelta {
		t.Fatalf("entry 1 type: got %v, want PackRefDelta", pf.Entries[1].Type)
	}
	if pf.Entries[1].BaseHash != baseHash {
		t.Errorf("base hash: got %s, want %s", pf.Entries[1].BaseHash, baseHash)
	}

	reconstructed, err := ApplyDelta(base, pf.Entries[1].Data)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	want := append(append([]byte{}, base...), insert...)
	if !bytes.Equal(reconstructed, want) {
		t.Errorf("reconstructed: got %q, want %q", reconstructed, want)
	}
}

func TestPackWriterRefDeltaCompressedMatchesUncompressed(t *testing.T) {
	base := []byte("repeated repeated repeated content for compression")
	baseHash := HashObject(TypeBlob, base)
	delta := buildTestDelta(base, []byte("!"))

	compressed, err := compressPackPayload(delta)
	if err != nil {
		t.Fatalf("compressPackPayload: %v", err)
	}

	var buf bytes.Buffer
	pw, err := NewPackWriter(&buf, 1)
	if err != nil {
		t.Fatalf("NewPackWriter: %v", err)
	}
	if err := pw.WriteRefDeltaCompressed(baseHash, compressed, uint64(len(delta))); err != nil {
		t.Fatalf("WriteRefDeltaCompressed: %v", err)
	}
	if _, err := pw.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	pf, err := ReadPack(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadPack: %v", err)
	}
	if !bytes.Equal(pf.Entries[0].Data, delta) {
		t.Errorf("decoded delta mismatch: got %x, want %x", pf.Entries[0].Data, delta)
	}
}

func TestPackWriterOfsDeltaRoundTrip(t *testing.T) {
	base := []byte("base payload for offset delta test")
	delta := buildTestDelta(base, []byte(" extra"))

	var buf bytes.Buffer
	pw, err := NewPackWriter(&buf, 2)
	if err != nil {
		t.Fatalf("NewPackWriter: %v", err)
	}
	if err := pw.WriteEntry(PackBlob, base); err != nil {
		t.Fatalf("WriteEntry base: %v", err)
	}
	// The base is the first entry, so its stream offset is exactly the
	// fixed-size pack header.
	if err := pw.WriteOfsDelta(packHeaderSize, delta, uint64(len(delta))); err != nil {
		t.Fatalf("WriteOfsDelta: %v", err)
	}
	if _, err := pw.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	pf, err := ReadPack(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadPack: %v", err)
	}
	if pf.Entries[1].Type != PackOfsDelta {
		t.Fatalf("entry 1 type: got %v, want PackOfsDelta", pf.Entries[1].Type)
	}
	if pf.Entries[1].BaseOffset != pf.Entries[0].StreamStart {
		t.Errorf("base offset: got %d, want %d", pf.Entries[1].BaseOffset, pf.Entries[0].StreamStart)
	}
}
