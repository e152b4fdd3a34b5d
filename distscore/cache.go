// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package distscore

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// CachedScorer memoizes the distances of another scorer across steps.
type CachedScorer struct {
	orig  DistScorer
	cache *ristretto.Cache[string, DistVal]
}

// NewCachedScorer caches up to maxEntries pairs of orig.
func NewCachedScorer(orig DistScorer, maxEntries int64) (*CachedScorer, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("distance cache: invalid size %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, DistVal]{
		NumCounters:        maxEntries * 10, // ~10x expected items
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("distance cache: %w", err)
	}
	return &CachedScorer{orig: orig, cache: c}, nil
}

func (s *CachedScorer) Distance(from, to Position) (distance int, reachable bool) {
	key := cacheKey(from, to)
	if val, ok := s.cache.Get(key); ok {
		return val.Distance, val.Reachable
	}
	distance, reachable = s.orig.Distance(from, to)
	s.cache.Set(key, DistVal{Distance: distance, Reachable: reachable}, 1)
	return
}

// Wait blocks until pending writes are visible to Distance.
func (s *CachedScorer) Wait() {
	s.cache.Wait()
}

func (s *CachedScorer) Close() {
	s.cache.Close()
}

func cacheKey(from, to Position) string {
	return fmt.Sprintf("%s:%d:%d>%s:%d:%d", from.Room, from.X, from.Y, to.Room, to.X, to.Y)
}
