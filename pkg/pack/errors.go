package pack

import "errors"

// Error kinds returned (wrapped with call-site context via fmt.Errorf's
// %w) by every exported Builder operation.
var (
	// ErrStoreRead is returned when the backing store cannot supply an
	// object by hash.
	ErrStoreRead = errors.New("pack: backing store read failed")

	// ErrInvariant is returned when a consistency check fails: an
	// object's size changed between metadata and read, a delta's size
	// changed between search and emission, or write-order coverage
	// does not match the object table.
	ErrInvariant = errors.New("pack: invariant violated")

	// ErrAlloc is returned when an allocation-sensitive step fails in a
	// way that cannot be safely downgraded to "skip delta".
	ErrAlloc = errors.New("pack: allocation failed")

	// ErrIO is returned when a sink rejects bytes.
	ErrIO = errors.New("pack: sink rejected write")

	// ErrThread is returned when a worker cannot be started.
	ErrThread = errors.New("pack: worker spawn failed")

	// ErrConfig is returned for a negative or malformed configuration
	// value.
	ErrConfig = errors.New("pack: invalid configuration")
)
