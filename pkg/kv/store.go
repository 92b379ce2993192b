// Package kv provides the transient key-value store used to hand quiz
// payloads from the game library to the quiz editor. Slots are singular
// and last-writer-wins: a Set fully replaces any previous value.
package kv

import "context"

// Store is a session-scoped transient key-value store.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Prefixed returns a view of s with every key prefixed, scoping the
// singular hand-off slots to one browser session.
func Prefixed(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixedStore{inner: s, prefix: prefix}
}

type prefixedStore struct {
	inner  Store
	prefix string
}

func (p *prefixedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixedStore) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixedStore) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}
