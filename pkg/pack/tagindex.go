package pack

import "github.com/odvcencio/packforge/pkg/object"

// TagIndex enumerates the tag objects reachable from a set of roots,
// standing in for the "tag enumeration" collaborator §4.5 treats as
// external. Tag peeling is deliberately not performed: a chain of
// annotated tags pointing through further tags is marked tagged only at
// its immediate target, matching the Open Question recorded in
// SPEC_FULL.md and DESIGN.md.
type TagIndex struct {
	targets map[object.Hash]bool
}

// BuildTagIndex walks every object reachable from roots, reads every tag
// object it finds, and records the immediate target hash of each tag tip:
// a tag that is one of roots or is not itself the target of another tag.
func BuildTagIndex(store *object.Store, roots []object.Hash) (*TagIndex, error) {
	reachable, err := store.ReachableSet(roots)
	if err != nil {
		return nil, err
	}

	idx := &TagIndex{targets: make(map[object.Hash]bool)}
	tagTargets := make(map[object.Hash]object.Hash)
	for h := range reachable {
		kind, data, err := store.Read(h)
		if err != nil {
			return nil, err
		}
		if kind != object.TypeTag {
			continue
		}
		tag, err := object.UnmarshalTag(data)
		if err != nil {
			return nil, err
		}
		tagTargets[h] = tag.TargetHash
	}

	behindTag := make(map[object.Hash]bool, len(tagTargets))
	for _, target := range tagTargets {
		behindTag[target] = true
	}
	for _, r := range roots {
		delete(behindTag, r)
	}
	for h, target := range tagTargets {
		if !behindTag[h] {
			idx.targets[target] = true
		}
	}
	return idx, nil
}

// IsTagged reports whether hash is the immediate target of some tag in
// the index.
func (idx *TagIndex) IsTagged(hash object.Hash) bool {
	if idx == nil {
		return false
	}
	return idx.targets[hash]
}
