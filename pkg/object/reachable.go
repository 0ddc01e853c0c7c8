package object

import (
	"fmt"
	"sort"
	"strings"
)

// Reachability is the result of walking the object graph from a set of
// commits.
type Reachability struct {
	// Objects holds every reachable hash that was present in the store.
	Objects map[Hash]ObjectType
	// Missing holds referenced hashes the store does not have.
	Missing []Hash
}

// ReachableSet returns all objects reachable from the commit roots by
// following parent, tree and entry references. Missing objects are
// collected rather than treated as errors; decode failures are returned.
func (s *Store) ReachableSet(roots []Hash) (*Reachability, error) {
	type item struct {
		hash Hash
		typ  ObjectType
	}

	roots = uniqueNormalizedHashes(roots)
	out := &Reachability{Objects: make(map[Hash]ObjectType, len(roots))}
	missing := make(map[Hash]struct{})

	stack := make([]item, 0, len(roots))
	for _, r := range roots {
		stack = append(stack, item{hash: r, typ: TypeCommit})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := out.Objects[it.hash]; ok {
			continue
		}
		if !s.Has(it.hash) {
			missing[it.hash] = struct{}{}
			continue
		}
		out.Objects[it.hash] = it.typ

		switch it.typ {
		case TypeCommit:
			c, err := s.ReadCommit(it.hash)
			if err != nil {
				return nil, fmt.Errorf("reachable set: %w", err)
			}
			stack = append(stack, item{hash: c.TreeHash, typ: TypeTree})
			for _, p := range c.Parents {
				stack = append(stack, item{hash: p, typ: TypeCommit})
			}
		case TypeTree:
			tr, err := s.ReadTree(it.hash)
			if err != nil {
				return nil, fmt.Errorf("reachable set: %w", err)
			}
			for _, e := range tr.Entries {
				stack = append(stack, item{hash: e.Hash, typ: e.Type})
			}
		case TypeBlob:
		default:
			return nil, fmt.Errorf("reachable set %s: unsupported object type %q", it.hash, it.typ)
		}
	}

	for h := range missing {
		out.Missing = append(out.Missing, h)
	}
	sort.Slice(out.Missing, func(i, j int) bool { return out.Missing[i] < out.Missing[j] })
	return out, nil
}

func uniqueNormalizedHashes(in []Hash) []Hash {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, h := range in {
		h = Hash(strings.TrimSpace(string(h)))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
