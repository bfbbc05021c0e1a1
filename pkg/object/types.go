package object

// Hash is a 40-character hex-encoded SHA-1 digest, the fixed-width content
// address shared by every object kind in the store.
type Hash string

// HashSize is the width of a raw (non-hex) Hash in bytes.
const HashSize = 20

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
)

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object.
type TreeEntry struct {
	Name        string
	IsDir       bool
	Mode        string
	BlobHash    Hash
	SubtreeHash Hash
}

// TreeObj holds a sorted list of tree entries.
type TreeObj struct {
	Entries []TreeEntry // sorted by Name
}

// CommitObj represents a commit pointing to a tree with metadata.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    string
	Timestamp int64
	Signature string
	Message   string
}

// TagObj is an annotated tag pointing at another object. Peeling an
// annotated tag through a chain of further tags to its ultimate target is
// not performed anywhere in this package; callers that need the fully
// peeled target must walk TargetHash themselves.
type TagObj struct {
	TargetHash Hash
	TargetType ObjectType
	Tagger     string
	Name       string
	Message    string
}
