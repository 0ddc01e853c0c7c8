package object

// Hash is a 40-character lowercase hex-encoded SHA-1 digest.
type Hash string

// DeletionMarker is the reserved index hash that marks a path staged for
// deletion. It can never collide with a valid Hash.
const DeletionMarker Hash = "0"

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

const (
	// Tree mode strings. Directories are written with the leading zero;
	// decoding also accepts "40000".
	TreeModeDir        = "040000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object. Name is a single path segment.
type TreeEntry struct {
	Mode string
	Type ObjectType
	Hash Hash
	Name string
}

// IsDir reports whether the entry points at a subtree.
func (e TreeEntry) IsDir() bool {
	return e.Type == TypeTree
}

// Tree holds a set of tree entries. Serialization sorts them by Name.
type Tree struct {
	Entries []TreeEntry
}

// Signature identifies the author of a commit. When is seconds since the
// epoch and Offset is the author's UTC offset in canonical "+hhmm" or
// "-hhmm" form, such as "+0530". Decoding normalizes looser offsets like
// "Z" or "+05:30"; encoding rejects them.
type Signature struct {
	Name   string
	Email  string
	When   int64
	Offset string
}

// Commit points at a tree and zero or more parents. No parents marks a
// root commit; two or more mark a merge.
type Commit struct {
	TreeHash Hash
	Parents  []Hash
	Author   Signature
	Message  string
}
