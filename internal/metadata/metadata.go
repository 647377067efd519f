package metadata

import (
	"iter"
	"sort"
)

// maxDepth bounds the overlay chain; deeper chains are flattened on Clone.
const maxDepth = 32

// KV is a single ordered override.
type KV struct {
	Key   string
	Value any
}

// Metadata is an immutable, layered key/value store. The zero value is not
// usable; use Empty or New.
type Metadata struct {
	parent *Metadata
	values map[string]any
	// added lists the keys this layer introduces (absent from parent), in
	// insertion order.
	added []string
	count int
	depth int
}

var empty = &Metadata{values: map[string]any{}}

// Empty returns the shared empty metadata.
func Empty() *Metadata {
	return empty
}

// New builds root metadata from values. Keys are ordered lexically because map
// iteration order is not stable; use FromPairs to control ordering.
func New(values map[string]any) *Metadata {
	return empty.Clone(values)
}

// FromPairs builds root metadata preserving the order of pairs.
func FromPairs(pairs ...KV) *Metadata {
	return empty.CloneWith(pairs...)
}

// Clone returns a new Metadata where every key in overrides replaces or adds
// to the current mapping. Other keys are shared by reference.
func (m *Metadata) Clone(overrides map[string]any) *Metadata {
	if len(overrides) == 0 {
		return m
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]KV, len(keys))
	for i, k := range keys {
		pairs[i] = KV{Key: k, Value: overrides[k]}
	}
	return m.CloneWith(pairs...)
}

// CloneWith is Clone with ordered overrides. Later pairs win over earlier ones
// with the same key.
func (m *Metadata) CloneWith(pairs ...KV) *Metadata {
	if len(pairs) == 0 {
		return m
	}
	base := m
	if base.depth >= maxDepth {
		base = base.flatten()
	}
	layer := &Metadata{
		parent: base,
		values: make(map[string]any, len(pairs)),
		depth:  base.depth + 1,
	}
	for _, kv := range pairs {
		if _, seen := layer.values[kv.Key]; !seen && !base.ContainsKey(kv.Key) {
			layer.added = append(layer.added, kv.Key)
		}
		layer.values[kv.Key] = kv.Value
	}
	layer.count = base.count + len(layer.added)
	return layer
}

// flatten collapses the chain into a single root layer. Raw values (including
// unresolved computed values) are carried over by reference.
func (m *Metadata) flatten() *Metadata {
	keys := m.Keys()
	root := &Metadata{
		values: make(map[string]any, len(keys)),
		added:  keys,
		count:  len(keys),
	}
	for _, k := range keys {
		raw, _ := m.lookup(k)
		root.values[k] = raw
	}
	return root
}

func (m *Metadata) lookup(key string) (any, bool) {
	for layer := m; layer != nil; layer = layer.parent {
		if v, ok := layer.values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// ContainsKey reports whether key is present in any layer.
func (m *Metadata) ContainsKey(key string) bool {
	_, ok := m.lookup(key)
	return ok
}

// TryGetValue returns the resolved value for key.
func (m *Metadata) TryGetValue(key string) (any, bool) {
	raw, ok := m.lookup(key)
	if !ok {
		return nil, false
	}
	return resolve(key, raw, m), true
}

// Get returns the resolved value for key or def when the key is absent.
func (m *Metadata) Get(key string, def any) any {
	if v, ok := m.TryGetValue(key); ok {
		return v
	}
	return def
}

// GetRaw returns the stored value without resolving computed values.
func (m *Metadata) GetRaw(key string) (any, bool) {
	return m.lookup(key)
}

// Len returns the number of distinct keys.
func (m *Metadata) Len() int {
	return m.count
}

// Keys returns all keys in insertion order. Overridden keys keep the position
// of their first insertion.
func (m *Metadata) Keys() []string {
	var chain []*Metadata
	for layer := m; layer != nil; layer = layer.parent {
		chain = append(chain, layer)
	}
	keys := make([]string, 0, m.count)
	for i := len(chain) - 1; i >= 0; i-- {
		keys = append(keys, chain[i].added...)
	}
	return keys
}

// All yields resolved key/value pairs in insertion order.
func (m *Metadata) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range m.Keys() {
			v, _ := m.TryGetValue(k)
			if !yield(k, v) {
				return
			}
		}
	}
}

// ToMap returns a resolved snapshot of every key.
func (m *Metadata) ToMap() map[string]any {
	out := make(map[string]any, m.count)
	for k, v := range m.All() {
		out[k] = v
	}
	return out
}
