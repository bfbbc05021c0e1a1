package object

import "testing"

func TestHashBytesRoundTripsThroughHashFromBytes(t *testing.T) {
	h := HashBytes([]byte("round trip me"))
	raw, err := h.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := HashFromBytes(raw)
	if err != nil {
		t.Fatalf("HashFromBytes: %v", err)
	}
	if got != h {
		t.Errorf("round trip: got %s, want %s", got, h)
	}
}

func TestHashBytesRejectsWrongLength(t *testing.T) {
	if _, err := Hash("abc").Bytes(); err == nil {
		t.Error("expected an error for a hash of the wrong length")
	}
}

func TestHashFromBytesRejectsWrongLength(t *testing.T) {
	if _, err := HashFromBytes([]byte{1, 2, 3}); err == nil {
		t.Error("expected an error for a raw digest of the wrong length")
	}
}
