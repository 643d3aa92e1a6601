// Package cache memoizes evaluations by model family and configuration.
//
// Hyperparameter search frequently revisits similar configurations across
// runs; caching the immutable Evaluation produced for a configuration
// avoids repeated calls to the model-execution service. Two backends are
// provided: process-local for single instances and Redis for shared
// deployments.
package cache

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// Cache stores evaluations keyed by Key(family, configuration).
type Cache interface {
	// Get returns the cached evaluation and whether it was present.
	Get(ctx context.Context, key string) (*forecastkit.Evaluation, bool, error)

	// Put stores an evaluation.
	Put(ctx context.Context, key string, eval *forecastkit.Evaluation) error
}

// Key derives a stable cache key from a family and configuration.
// Parameters are serialized in sorted name order so logically equal
// configurations share a key.
func Key(family forecastkit.ModelFamily, config forecastkit.Configuration) string {
	names := make([]string, 0, len(config))
	for name := range config {
		names = append(names, name)
	}
	sort.Strings(names)

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|", family)
	for _, name := range names {
		fmt.Fprintf(h, "%s=%v|", name, config[name])
	}
	return fmt.Sprintf("%s:%016x", family, h.Sum64())
}

// InMemory is a process-local cache.
type InMemory struct {
	mu    sync.RWMutex
	evals map[string]*forecastkit.Evaluation
}

// NewInMemory creates an empty in-memory cache.
func NewInMemory() *InMemory {
	return &InMemory{evals: make(map[string]*forecastkit.Evaluation)}
}

// Get returns the cached evaluation for the key.
func (c *InMemory) Get(_ context.Context, key string) (*forecastkit.Evaluation, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	eval, ok := c.evals[key]
	return eval, ok, nil
}

// Put stores an evaluation under the key.
func (c *InMemory) Put(_ context.Context, key string, eval *forecastkit.Evaluation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evals[key] = eval
	return nil
}

// Len returns the number of cached evaluations.
func (c *InMemory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.evals)
}
