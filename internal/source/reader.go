// Package source reads analyzed files through a bounded cache so the
// discovery walk, the depth scorer and the fact extractors share one
// read of each file.
package source

import (
	"fmt"
	"os"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of files kept when no size is given.
const DefaultCacheSize = 256

// Stats reports cache effectiveness.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Reader reads files and caches their contents by path. It is safe
// for concurrent use.
type Reader struct {
	cache *lru.Cache[string, []byte]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewReader returns a Reader caching up to size files. A size below 1
// uses DefaultCacheSize.
func NewReader(size int) (*Reader, error) {
	if size < 1 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating source cache: %w", err)
	}
	return &Reader{cache: cache}, nil
}

// Read returns the contents of path. Callers must not modify the
// returned slice.
func (r *Reader) Read(path string) ([]byte, error) {
	if src, ok := r.cache.Get(path); ok {
		r.hits.Add(1)
		return src, nil
	}
	r.misses.Add(1)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r.cache.Add(path, src)
	return src, nil
}

// Stats returns the hit and miss counts so far.
func (r *Reader) Stats() Stats {
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}
