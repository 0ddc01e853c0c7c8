package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/imraghavojha/lit/pkg/object"
)

// zeroHash stands in for "no commit" on either side of a reflog line.
const zeroHash = "0000000000000000000000000000000000000000"

// ReflogEntry is one recorded movement of a ref. Reflogs live under
// .lit/logs/<ref>, one line per update:
//
//	<old> <new> <unix-seconds>\t<reason>
type ReflogEntry struct {
	Ref       string
	OldHash   object.Hash
	NewHash   object.Hash
	Timestamp int64
	Reason    string
}

func (e ReflogEntry) line() string {
	return fmt.Sprintf("%s %s %d\t%s\n", orZeroHash(e.OldHash), orZeroHash(e.NewHash), e.Timestamp, e.Reason)
}

func orZeroHash(h object.Hash) object.Hash {
	if strings.TrimSpace(string(h)) == "" {
		return zeroHash
	}
	return h
}

// parseReflogLine decodes one reflog line. ok is false for lines that do
// not have the expected shape.
func parseReflogLine(ref, line string) (ReflogEntry, bool) {
	head, reason, _ := strings.Cut(line, "\t")
	fields := strings.Fields(head)
	if len(fields) != 3 {
		return ReflogEntry{}, false
	}
	ts, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return ReflogEntry{}, false
	}
	return ReflogEntry{
		Ref:       ref,
		OldHash:   object.Hash(fields[0]),
		NewHash:   object.Hash(fields[1]),
		Timestamp: ts,
		Reason:    reason,
	}, true
}

func (r *Repo) reflogPath(ref string) string {
	return r.litPath("logs", filepath.FromSlash(ref))
}

// appendReflog records that ref moved from oldHash to newHash.
func (r *Repo) appendReflog(ref string, oldHash, newHash object.Hash, reason string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	reason = strings.Join(strings.Fields(reason), " ")
	if reason == "" {
		reason = "update"
	}
	entry := ReflogEntry{OldHash: oldHash, NewHash: newHash, Timestamp: time.Now().Unix(), Reason: reason}

	p := r.reflogPath(ref)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("reflog %s: %w", ref, err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog %s: %w", ref, err)
	}
	if _, err := f.WriteString(entry.line()); err != nil {
		f.Close()
		return fmt.Errorf("reflog %s: %w", ref, err)
	}
	return f.Close()
}

// ReadReflog returns up to limit entries of the reflog of ref, newest
// first; limit <= 0 returns all. An empty ref or "HEAD" means the current
// branch, or HEAD's own log when detached. Unparseable lines are skipped.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	name, err := r.reflogRef(ref)
	if err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}
	data, err := os.ReadFile(r.reflogPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reflog: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	var out []ReflogEntry
	for i := len(lines) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if e, ok := parseReflogLine(name, lines[i]); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// reflogRef maps user input to the ref whose log should be read.
func (r *Repo) reflogRef(ref string) (string, error) {
	switch ref = strings.TrimSpace(ref); {
	case ref == "" || ref == "HEAD":
		if branch, err := r.CurrentBranch(); err == nil && branch != "" {
			return headsPrefix + branch, nil
		}
		return "HEAD", nil
	case strings.HasPrefix(ref, "refs/"):
		return ref, nil
	}
	if err := validBranchName(ref); err != nil {
		return "", err
	}
	return headsPrefix + ref, nil
}
