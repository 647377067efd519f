// Package cache implements the per-pipeline execution cache.
//
// Entries are keyed by document source and an optional sub-key and remember
// the content fingerprint they were stored for. A lookup with a document whose
// fingerprint differs is a miss, so edits between builds invalidate entries
// without any explicit bookkeeping. The cache lives in memory and survives
// across engine executions within one process.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
)

type entryKey struct {
	source string
	key    string
}

type entry struct {
	fingerprint string
	once        sync.Once
	ready       atomic.Bool
	value       any
	err         error
	used        atomic.Bool
}

// ExecutionCache is safe for concurrent use.
type ExecutionCache struct {
	mu       sync.RWMutex
	entries  map[entryKey]*entry
	pipeline string
	recorder metrics.Recorder
	hits     atomic.Int64
	misses   atomic.Int64
}

// New creates an empty cache. pipeline labels recorded metrics.
func New(pipeline string, recorder metrics.Recorder) *ExecutionCache {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &ExecutionCache{
		entries:  make(map[entryKey]*entry),
		pipeline: pipeline,
		recorder: recorder,
	}
}

func keyFor(doc *document.Document, subKey []string) entryKey {
	return entryKey{source: doc.Source(), key: strings.Join(subKey, "\x00")}
}

// lookup returns the live entry for doc/key, or nil when absent or stale.
func (c *ExecutionCache) lookup(doc *document.Document, subKey []string) *entry {
	c.mu.RLock()
	e := c.entries[keyFor(doc, subKey)]
	c.mu.RUnlock()
	if e == nil || !e.ready.Load() || e.err != nil || e.fingerprint != doc.Fingerprint() {
		return nil
	}
	return e
}

// TryGetValue returns the value stored for doc and subKey when the document's
// fingerprint matches the one recorded by Set. Stale entries are misses.
func (c *ExecutionCache) TryGetValue(doc *document.Document, subKey ...string) (any, bool) {
	e := c.lookup(doc, subKey)
	if e == nil {
		c.record(false)
		return nil, false
	}
	e.used.Store(true)
	c.record(true)
	return e.value, true
}

// ContainsKey mirrors TryGetValue without retrieving the value or counting
// the lookup.
func (c *ExecutionCache) ContainsKey(doc *document.Document, subKey ...string) bool {
	return c.lookup(doc, subKey) != nil
}

// Set stores value for doc and subKey, replacing any previous entry.
func (c *ExecutionCache) Set(doc *document.Document, value any, subKey ...string) {
	e := &entry{fingerprint: doc.Fingerprint(), value: value}
	e.once.Do(func() {})
	e.ready.Store(true)
	e.used.Store(true)

	c.mu.Lock()
	c.entries[keyFor(doc, subKey)] = e
	c.mu.Unlock()
}

// GetOrCompute returns the cached value for doc and key or computes it with
// fn. Concurrent callers for the same document content share one computation.
// Failed computations are not cached. A stored value that is not a T is a
// miss and gets replaced.
func GetOrCompute[T any](c *ExecutionCache, doc *document.Document, key string, fn func() (T, error)) (T, error) {
	fp := doc.Fingerprint()
	k := keyFor(doc, []string{key})

	c.mu.Lock()
	e := c.entries[k]
	hit := e != nil && e.fingerprint == fp && holds[T](e)
	if !hit {
		e = &entry{fingerprint: fp}
		c.entries[k] = e
	}
	c.mu.Unlock()

	e.used.Store(true)
	computed := false
	e.once.Do(func() {
		computed = true
		var v T
		v, e.err = fn()
		e.value = v
		e.ready.Store(true)
	})
	c.record(!computed)

	if e.err != nil {
		c.mu.Lock()
		if c.entries[k] == e {
			delete(c.entries, k)
		}
		c.mu.Unlock()
		var zero T
		return zero, e.err
	}
	v, ok := e.value.(T)
	if !ok && e.value != nil {
		// Replaced concurrently by a value of another type.
		return fn()
	}
	return v, nil
}

// holds reports whether e can serve a T. Entries still being computed count.
func holds[T any](e *entry) bool {
	if !e.ready.Load() || e.value == nil {
		return true
	}
	_, ok := e.value.(T)
	return ok
}

func (c *ExecutionCache) record(hit bool) {
	if hit {
		c.hits.Add(1)
		c.recorder.IncCacheResult(c.pipeline, metrics.CacheHit)
		return
	}
	c.misses.Add(1)
	c.recorder.IncCacheResult(c.pipeline, metrics.CacheMiss)
}

// ResetUnused evicts entries that were neither read nor written since the
// previous call and returns the number removed. The engine calls it after each
// execution.
func (c *ExecutionCache) ResetUnused() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if !e.used.Swap(false) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries.
func (c *ExecutionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset removes every entry and zeroes the counters.
func (c *ExecutionCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[entryKey]*entry)
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats holds lookup counters.
type Stats struct {
	Hits   int64
	Misses int64
}

// Stats returns cumulative lookup counters.
func (c *ExecutionCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
