package object

import (
	"bytes"
	"testing"
)

func TestBlobRoundTrip(t *testing.T) {
	orig := &Blob{Data: []byte("some file content\x00with a null byte")}
	data := MarshalBlob(orig)
	got, err := UnmarshalBlob(data)
	if err != nil {
		t.Fatalf("UnmarshalBlob: %v", err)
	}
	if !bytes.Equal(got.Data, orig.Data) {
		t.Errorf("blob round-trip: got %q, want %q", got.Data, orig.Data)
	}
}

func TestTreeRoundTripSortsByName(t *testing.T) {
	orig := &TreeObj{Entries: []TreeEntry{
		{Name: "zebra.go", Mode: TreeModeFile, BlobHash: Hash("1111111111111111111111111111111111111111")},
		{Name: "apple.go", Mode: TreeModeFile, BlobHash: Hash("2222222222222222222222222222222222222222")},
		{Name: "sub", IsDir: true, SubtreeHash: Hash("3333333333333333333333333333333333333333")},
	}}
	data := MarshalTree(orig)
	got, err := UnmarshalTree(data)
	if err != nil {
		t.Fatalf("UnmarshalTree: %v", err)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("Entries length: got %d, want 3", len(got.Entries))
	}
	for i := 1; i < len(got.Entries); i++ {
		if got.Entries[i-1].Name > got.Entries[i].Name {
			t.Errorf("entries not sorted: %q before %q", got.Entries[i-1].Name, got.Entries[i].Name)
		}
	}
}

func TestTreeEntryModePreserved(t *testing.T) {
	orig := &TreeObj{Entries: []TreeEntry{
		{Name: "run.sh", Mode: TreeModeExecutable, BlobHash: Hash("4444444444444444444444444444444444444444")},
	}}
	got, err := UnmarshalTree(MarshalTree(orig))
	if err != nil {
		t.Fatalf("UnmarshalTree: %v", err)
	}
	if got.Entries[0].Mode != TreeModeExecutable {
		t.Errorf("mode: got %q, want %q", got.Entries[0].Mode, TreeModeExecutable)
	}
}

func TestEmptyTreeRoundTrip(t *testing.T) {
	got, err := UnmarshalTree(MarshalTree(&TreeObj{}))
	if err != nil {
		t.Fatalf("UnmarshalTree: %v", err)
	}
	if len(got.Entries) != 0 {
		t.Errorf("expected empty tree, got %d entries", len(got.Entries))
	}
}

func TestCommitRoundTripWithParentsAndSignature(t *testing.T) {
	orig := &CommitObj{
		TreeHash:  Hash("5555555555555555555555555555555555555555"),
		Parents:   []Hash{Hash("6666666666666666666666666666666666666666"), Hash("7777777777777777777777777777777777777777")},
		Author:    "author <author@example.com>",
		Timestamp: 1700000123,
		Signature: "-----BEGIN SIGNATURE-----fake-----END-----",
		Message:   "multi\nline\nmessage\n",
	}
	got, err := UnmarshalCommit(MarshalCommit(orig))
	if err != nil {
		t.Fatalf("UnmarshalCommit: %v", err)
	}
	if got.TreeHash != orig.TreeHash || got.Author != orig.Author || got.Timestamp != orig.Timestamp {
		t.Errorf("commit header mismatch: got %+v", got)
	}
	if got.Signature != orig.Signature {
		t.Errorf("signature mismatch: got %q, want %q", got.Signature, orig.Signature)
	}
	if len(got.Parents) != 2 {
		t.Fatalf("parents: got %d, want 2", len(got.Parents))
	}
	if got.Message != orig.Message {
		t.Errorf("message: got %q, want %q", got.Message, orig.Message)
	}
}

func TestCommitWithoutSignatureOmitsHeaderLine(t *testing.T) {
	orig := &CommitObj{
		TreeHash:  Hash("8888888888888888888888888888888888888888"),
		Author:    "author <author@example.com>",
		Timestamp: 1,
		Message:   "m\n",
	}
	data := MarshalCommit(orig)
	if bytes.Contains(data, []byte("signature ")) {
		t.Errorf("expected no signature header line, got %q", data)
	}
	got, err := UnmarshalCommit(data)
	if err != nil {
		t.Fatalf("UnmarshalCommit: %v", err)
	}
	if got.Signature != "" {
		t.Errorf("expected empty signature, got %q", got.Signature)
	}
}

func TestTagRoundTrip(t *testing.T) {
	orig := &TagObj{
		TargetHash: Hash("9999999999999999999999999999999999999999"),
		TargetType: TypeCommit,
		Tagger:     "tagger <tagger@example.com>",
		Name:       "v2.0.0",
		Message:    "release notes\n",
	}
	got, err := UnmarshalTag(MarshalTag(orig))
	if err != nil {
		t.Fatalf("UnmarshalTag: %v", err)
	}
	if got.TargetHash != orig.TargetHash || got.TargetType != orig.TargetType {
		t.Errorf("tag target mismatch: got %+v", got)
	}
	if got.Name != orig.Name || got.Tagger != orig.Tagger {
		t.Errorf("tag metadata mismatch: got %+v", got)
	}
	if got.Message != orig.Message {
		t.Errorf("message: got %q, want %q", got.Message, orig.Message)
	}
}

func TestUnmarshalCommitMissingSeparator(t *testing.T) {
	_, err := UnmarshalCommit([]byte("tree abc\nauthor a"))
	if err == nil {
		t.Error("expected error for missing header/message separator")
	}
}

func TestUnmarshalTagMissingSeparator(t *testing.T) {
	_, err := UnmarshalTag([]byte("object abc\ntype commit"))
	if err == nil {
		t.Error("expected error for missing header/message separator")
	}
}
