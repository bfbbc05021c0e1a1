package pack

import (
	"fmt"

	"github.com/odvcencio/packforge/pkg/deltacodec"
	"github.com/odvcencio/packforge/pkg/object"
)

// DecodedEntry is one fully resolved object recovered from a pack stream:
// its kind and its reconstructed (non-delta) payload.
type DecodedEntry struct {
	Kind object.ObjectType
	Data []byte
}

func entryKind(t object.PackObjectType) (object.ObjectType, error) {
	switch t {
	case object.PackCommit:
		return object.TypeCommit, nil
	case object.PackTree:
		return object.TypeTree, nil
	case object.PackBlob:
		return object.TypeBlob, nil
	case object.PackTag:
		return object.TypeTag, nil
	default:
		return "", fmt.Errorf("%w: not a base object type: %v", ErrInvariant, t)
	}
}

// DecodePack parses a complete pack stream and resolves every entry
// (including delta chains) to its reconstructed content, primarily for use
// by tests asserting round-trip fidelity against what a Builder staged.
func DecodePack(data []byte) ([]DecodedEntry, error) {
	pf, err := object.ReadPack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvariant, err)
	}

	byOffset := make(map[uint64]int, len(pf.Entries))
	for i, e := range pf.Entries {
		byOffset[e.StreamStart] = i
	}
	byHash := make(map[object.Hash]int)

	resolved := make([]*DecodedEntry, len(pf.Entries))
	var resolve func(i int, seen map[int]bool) (*DecodedEntry, error)
	resolve = func(i int, seen map[int]bool) (*DecodedEntry, error) {
		if resolved[i] != nil {
			return resolved[i], nil
		}
		if seen[i] {
			return nil, fmt.Errorf("%w: delta cycle at entry %d", ErrInvariant, i)
		}
		seen[i] = true

		e := pf.Entries[i]
		switch e.Type {
		case object.PackOfsDelta:
			baseIdx, ok := byOffset[e.BaseOffset]
			if !ok {
				return nil, fmt.Errorf("%w: entry %d: unresolved ofs-delta base offset %d", ErrInvariant, i, e.BaseOffset)
			}
			base, err := resolve(baseIdx, seen)
			if err != nil {
				return nil, err
			}
			data, err := deltacodec.Apply(base.Data, e.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d: apply ofs-delta: %v", ErrInvariant, i, err)
			}
			resolved[i] = &DecodedEntry{Kind: base.Kind, Data: data}
		case object.PackRefDelta:
			baseIdx, ok := byHash[e.BaseHash]
			if !ok {
				return nil, fmt.Errorf("%w: entry %d: unresolved ref-delta base %s", ErrInvariant, i, e.BaseHash)
			}
			base, err := resolve(baseIdx, seen)
			if err != nil {
				return nil, err
			}
			data, err := deltacodec.Apply(base.Data, e.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d: apply ref-delta: %v", ErrInvariant, i, err)
			}
			resolved[i] = &DecodedEntry{Kind: base.Kind, Data: data}
		default:
			kind, err := entryKind(e.Type)
			if err != nil {
				return nil, err
			}
			resolved[i] = &DecodedEntry{Kind: kind, Data: e.Data}
		}

		hash := object.HashObject(resolved[i].Kind, resolved[i].Data)
		byHash[hash] = i
		return resolved[i], nil
	}

	out := make([]DecodedEntry, len(pf.Entries))
	for i := range pf.Entries {
		d, err := resolve(i, map[int]bool{})
		if err != nil {
			return nil, err
		}
		out[i] = *d
	}
	return out, nil
}
