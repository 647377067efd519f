package metadata

import "sync"

// Func computes a value on read. md is the metadata the read went through, so
// a derived value may consult other keys, including overrides made by clones.
type Func func(key string, md *Metadata) any

// Computed is implemented by values that resolve lazily. A computed value
// that reads its own key recurses without end; a cached one deadlocks.
type Computed interface {
	Compute(key string, md *Metadata) any
}

type deferred struct {
	fn Func
}

func (d deferred) Compute(key string, md *Metadata) any {
	return d.fn(key, md)
}

type cachedDeferred struct {
	fn    Func
	once  sync.Once
	value any
}

func (c *cachedDeferred) Compute(key string, md *Metadata) any {
	c.once.Do(func() {
		c.value = c.fn(key, md)
	})
	return c.value
}

// Deferred returns a value that invokes fn on every read.
func Deferred(fn Func) Computed {
	return deferred{fn: fn}
}

// CachedDeferred returns a value that invokes fn on the first read and returns
// the memoized result afterwards. The memo cell is shared by every clone that
// inherits the value; use Fresh to start a new one. fn must not read key
// itself, since that read deadlocks.
func CachedDeferred(fn Func) Computed {
	return &cachedDeferred{fn: fn}
}

// Fresh returns v with an unused memo cell when v is a CachedDeferred, so the
// copy memoizes independently of v. Other values are returned unchanged.
func Fresh(v any) any {
	if c, ok := v.(*cachedDeferred); ok {
		return &cachedDeferred{fn: c.fn}
	}
	return v
}

// resolve unwraps a computed value. Resolution runs on the caller's goroutine.
func resolve(key string, raw any, md *Metadata) any {
	if c, ok := raw.(Computed); ok {
		return c.Compute(key, md)
	}
	return raw
}
