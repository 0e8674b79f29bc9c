// Package facade is a fixture for the depth scorer.
package facade

import (
	"context"
	"fmt"
)

// Limit is the maximum batch size.
const Limit = 3

const retries = 2

// Store is a facade over store.
type Store struct {
	inner *store
}

type store struct {
	data map[string]string
}

func (s *store) load(key string, n int) (string, error) {
	if n > Limit {
		for i := 0; i < n; i++ {
			if i == retries {
				return "", fmt.Errorf("too many attempts for %s", key)
			}
		}
	}
	return s.data[key], nil
}

func (s *store) save(key string) error {
	s.data[key] = key
	return nil
}

func (s *store) results(ctx context.Context) chan int {
	ch := make(chan int, 1)
	ch <- len(s.data)
	return ch
}

func (s *store) sum(a int) int {
	return a + len(s.data)
}

func (s *store) name() string {
	return "store"
}

// Load forwards to the inner store.
func (s *Store) Load(key string, n int) (string, error) {
	return s.inner.load(key, n)
}

// Save decorates the inner error.
func (s *Store) Save(key string) error {
	return fmt.Errorf("save %s: %w", key, s.inner.save(key))
}

// GetName is an accessor.
func (s *Store) GetName() string {
	return s.inner.name()
}

// Results waits for the inner result.
func (s *Store) Results(ctx context.Context) int {
	return <-s.inner.results(ctx)
}

// Partial forwards one of three arguments.
func (s *Store) Partial(a, b, c int) int {
	return s.inner.sum(a)
}

// Values collects map values for keys.
func Values[K comparable, V any](m map[K]V, keys ...K) []V {
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
