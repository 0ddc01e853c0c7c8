package object

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Corruption describes an object whose stored bytes do not hash to its name.
type Corruption struct {
	Hash   Hash
	Actual Hash
	Err    error
}

func (c Corruption) String() string {
	if c.Err != nil {
		return fmt.Sprintf("%s: %v", c.Hash, c.Err)
	}
	return fmt.Sprintf("%s: content hashes to %s", c.Hash, c.Actual)
}

// Verify rehashes every object in the store and reports the ones whose
// content does not match their hash. Up to workers objects are checked
// concurrently; workers <= 0 uses GOMAXPROCS.
func (s *Store) Verify(ctx context.Context, workers int) ([]Corruption, error) {
	hashes, err := s.List()
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu  sync.Mutex
		bad []Corruption
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, h := range hashes {
		h := h
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := s.Get(h)
			var c *Corruption
			switch {
			case err != nil:
				c = &Corruption{Hash: h, Err: err}
			case HashBytes(data) != h:
				c = &Corruption{Hash: h, Actual: HashBytes(data)}
			}
			if c != nil {
				mu.Lock()
				bad = append(bad, *c)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("verify objects: %w", err)
	}
	sort.Slice(bad, func(i, j int) bool { return bad[i].Hash < bad[j].Hash })
	return bad, nil
}
