// Package metadata implements the immutable key/value store attached to every
// document.
//
// A Metadata value is a node in a persistent overlay chain: Clone adds a small
// layer holding only the overridden keys and points at its parent, so clones
// share every unmodified value by reference. Engine settings form the root
// layer, pipeline metadata sits above it and each document adds its own layers.
//
// Values may be plain or computed. A computed value (see Deferred and
// CachedDeferred) is resolved on read by calling its function with the key and
// the Metadata through which the read happened. Functions must be free of side
// effects; cached values are resolved at most once.
package metadata
