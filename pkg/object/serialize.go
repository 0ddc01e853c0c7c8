package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// MarshalTree serializes a Tree. Entries are sorted by Name so the output
// depends only on the entry set. Each entry is encoded as
//
//	mode SP name NUL <20 raw digest bytes>
func MarshalTree(tr *Tree) ([]byte, error) {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	for i, e := range sorted {
		if err := validateEntryName(e.Name); err != nil {
			return nil, fmt.Errorf("marshal tree: %w", err)
		}
		if i > 0 && sorted[i-1].Name == e.Name {
			return nil, fmt.Errorf("marshal tree: duplicate entry %q", e.Name)
		}
		raw, err := e.Hash.raw()
		if err != nil {
			return nil, fmt.Errorf("marshal tree entry %q: %w", e.Name, err)
		}
		buf.WriteString(treeModeOrDefault(e))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// UnmarshalTree parses a Tree from its serialized form. Entry names must
// be single path components in strictly increasing order.
func UnmarshalTree(data []byte) (*Tree, error) {
	tr := &Tree{}
	i := 0
	for i < len(data) {
		nul := bytes.IndexByte(data[i:], 0)
		if nul < 0 {
			return nil, malformed("tree", "entry at offset %d missing NUL", i)
		}
		header := string(data[i : i+nul])
		mode, name, ok := strings.Cut(header, " ")
		if !ok || name == "" {
			return nil, malformed("tree", "invalid entry header %q", header)
		}
		if err := validateEntryName(name); err != nil {
			return nil, malformed("tree", "%v", err)
		}
		if n := len(tr.Entries); n > 0 && tr.Entries[n-1].Name >= name {
			return nil, malformed("tree", "entry %q out of order after %q", name, tr.Entries[n-1].Name)
		}
		typ, mode, err := parseTreeMode(mode)
		if err != nil {
			return nil, malformed("tree", "entry %q: %v", name, err)
		}

		start := i + nul + 1
		end := start + HashSize
		if end > len(data) {
			return nil, malformed("tree", "entry %q truncated digest", name)
		}
		tr.Entries = append(tr.Entries, TreeEntry{
			Mode: mode,
			Type: typ,
			Hash: Hash(hex.EncodeToString(data[start:end])),
			Name: name,
		})
		i = end
	}
	return tr, nil
}

func treeModeOrDefault(e TreeEntry) string {
	if e.Type == TypeTree {
		return TreeModeDir
	}
	if strings.TrimSpace(e.Mode) == "" {
		return TreeModeFile
	}
	return e.Mode
}

// parseTreeMode maps a stored mode to an entry type. Any mode starting
// with "100" is a file.
func parseTreeMode(mode string) (ObjectType, string, error) {
	switch mode {
	case TreeModeDir, "40000":
		return TypeTree, TreeModeDir, nil
	case TreeModeFile, TreeModeExecutable:
		return TypeBlob, mode, nil
	}
	if strings.HasPrefix(mode, "100") {
		return TypeBlob, mode, nil
	}
	return "", "", fmt.Errorf("unknown mode %q", mode)
}

func validateEntryName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty entry name")
	case name == "." || name == "..":
		return fmt.Errorf("invalid entry name %q", name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("entry name %q contains a separator", name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Commit
// ---------------------------------------------------------------------------

// MarshalCommit serializes a Commit:
//
//	tree H
//	parent H     (zero or more)
//	author Name <email> seconds offset
//
//	message
//
// The message is always followed by a single newline. Header fields that
// would not parse back unchanged are rejected.
func MarshalCommit(c *Commit) ([]byte, error) {
	if !c.TreeHash.Valid() {
		return nil, fmt.Errorf("marshal commit: tree %q: %w", c.TreeHash, ErrInvalidHash)
	}
	for _, p := range c.Parents {
		if !p.Valid() {
			return nil, fmt.Errorf("marshal commit: parent %q: %w", p, ErrInvalidHash)
		}
	}
	if err := validateSignature(c.Author); err != nil {
		return nil, fmt.Errorf("marshal commit: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", string(c.TreeHash))
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", string(p))
	}
	fmt.Fprintf(&buf, "author %s\n", FormatSignature(c.Author))
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// validateSignature rejects names and emails that would confuse
// ParseSignature and offsets not already in "+hhmm" form.
func validateSignature(s Signature) error {
	if strings.ContainsAny(s.Name, "<>\n") || s.Name != strings.TrimSpace(s.Name) {
		return fmt.Errorf("author name %q: contains angle brackets, a newline or surrounding space", s.Name)
	}
	if strings.ContainsAny(s.Email, "<>\n") {
		return fmt.Errorf("author email %q: contains angle brackets or a newline", s.Email)
	}
	if !canonicalOffset(s.Offset) {
		return fmt.Errorf("author offset %q: want +hhmm or -hhmm", s.Offset)
	}
	return nil
}

func canonicalOffset(off string) bool {
	if len(off) != 5 || (off[0] != '+' && off[0] != '-') {
		return false
	}
	for i := 1; i < len(off); i++ {
		if off[i] < '0' || off[i] > '9' {
			return false
		}
	}
	return true
}

// UnmarshalCommit parses a Commit from its serialized form. A tree line and
// an author line are required.
func UnmarshalCommit(data []byte) (*Commit, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, malformed("commit", "missing header/message separator")
	}
	header := string(data[:idx])
	message := strings.TrimSuffix(string(data[idx+2:]), "\n")

	c := &Commit{Message: message}
	var sawAuthor bool
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, malformed("commit", "malformed header line %q", line)
		}
		switch key {
		case "tree":
			if c.TreeHash != "" {
				return nil, malformed("commit", "duplicate tree line")
			}
			if !Hash(val).Valid() {
				return nil, malformed("commit", "bad tree hash %q", val)
			}
			c.TreeHash = Hash(val)
		case "parent":
			if !Hash(val).Valid() {
				return nil, malformed("commit", "bad parent hash %q", val)
			}
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			sig, err := ParseSignature(val)
			if err != nil {
				return nil, malformed("commit", "%v", err)
			}
			c.Author = sig
			sawAuthor = true
		default:
			return nil, malformed("commit", "unknown header key %q", key)
		}
	}
	if c.TreeHash == "" {
		return nil, malformed("commit", "missing tree line")
	}
	if !sawAuthor {
		return nil, malformed("commit", "missing author line")
	}
	return c, nil
}

// FormatSignature renders "Name <email> seconds offset". The offset is
// normalized for display; MarshalCommit requires it canonical already.
func FormatSignature(s Signature) string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When, NormalizeOffset(s.Offset))
}

// ParseSignature parses the value of an author line.
func ParseSignature(val string) (Signature, error) {
	lt := strings.IndexByte(val, '<')
	gt := strings.LastIndexByte(val, '>')
	if lt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("author %q: missing <email>", val)
	}
	sig := Signature{
		Name:  strings.TrimSpace(val[:lt]),
		Email: val[lt+1 : gt],
	}
	fields := strings.Fields(val[gt+1:])
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("author %q: want timestamp and offset", val)
	}
	when, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("author %q: bad timestamp: %v", val, err)
	}
	sig.When = when
	sig.Offset = NormalizeOffset(fields[1])
	return sig, nil
}

// NormalizeOffset converts offsets such as "Z", "+05:30" or "" to the
// "+hhmm" form used on disk. Unrecognized input is returned unchanged.
func NormalizeOffset(off string) string {
	switch off {
	case "", "Z", "z":
		return "+0000"
	}
	return strings.Replace(off, ":", "", 1)
}
