package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// HashBytes computes the raw SHA-1 hash of data and returns it as a
// lowercase hex-encoded Hash.
func HashBytes(data []byte) Hash {
	sum := sha1.Sum(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashObject computes the SHA-1 of the envelope "type len\0content",
// mirroring Git's object hashing.
func HashObject(objType ObjectType, data []byte) Hash {
	header := fmt.Sprintf("%s %d\x00", objType, len(data))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// Bytes decodes a hex-encoded Hash into its raw 20-byte form.
func (h Hash) Bytes() ([]byte, error) {
	if len(h) != HashSize*2 {
		return nil, fmt.Errorf("hash %q: want %d hex chars, got %d", h, HashSize*2, len(h))
	}
	raw, err := hex.DecodeString(string(h))
	if err != nil {
		return nil, fmt.Errorf("hash %q: %w", h, err)
	}
	return raw, nil
}

// HashFromBytes encodes a raw 20-byte digest as a hex Hash.
func HashFromBytes(raw []byte) (Hash, error) {
	if len(raw) != HashSize {
		return "", fmt.Errorf("raw hash: want %d bytes, got %d", HashSize, len(raw))
	}
	return Hash(hex.EncodeToString(raw)), nil
}
