// Package archive implements the content-addressed blob store that
// backs every prolly tree node, as specified in spec.md §4.1. All
// writes are keyed by the Blake3 digest of their content; a Put is
// idempotent and a Get never returns bytes that don't hash to the
// requested digest.
package archive

import (
	"context"
	"sync"

	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
)

// BlobArchive is the storage contract every prolly tree node read or
// write goes through (spec.md §4.1, §6).
type BlobArchive interface {
	// Get returns the bytes stored under digest, or an error for which
	// IsNotFound reports true if absent.
	Get(ctx context.Context, digest hash.Hash) ([]byte, error)
	// Put stores data under its own Blake3 digest and returns it.
	Put(ctx context.Context, data []byte) (hash.Hash, error)
	// Has reports whether digest is already stored, without reading it.
	Has(ctx context.Context, digest hash.Hash) (bool, error)
}

// notFoundError marks a missing digest. Grounded on the teacher's
// cas.MemoryCAS, which reports absence as a plain error string; this
// repo instead makes absence a typed, matchable sentinel.
type notFoundError struct{ digest hash.Hash }

func (e *notFoundError) Error() string { return "archive: not found: " + e.digest.String() }

// IsNotFound reports whether err indicates a missing digest.
func IsNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}

// KeyedArchive is a BlobArchive that also accepts writes under a
// caller-supplied digest. Compressed needs this: it must store bytes
// whose content differs from what they hash to, so it cannot rely on
// the Put contract's self-addressing.
type KeyedArchive interface {
	BlobArchive
	// PutAt stores data under digest without verifying data hashes to
	// it. Callers are responsible for the digest's meaning.
	PutAt(ctx context.Context, digest hash.Hash, data []byte) error
}

// Memory is an in-memory BlobArchive, guarded by a mutex, grounded
// directly on the teacher's cas.MemoryCAS.
type Memory struct {
	mu   sync.RWMutex
	data map[hash.Hash][]byte
}

// NewMemory constructs an empty in-memory archive.
func NewMemory() *Memory {
	return &Memory{data: make(map[hash.Hash][]byte)}
}

func (m *Memory) Get(_ context.Context, digest hash.Hash) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[digest]
	if !ok {
		return nil, &notFoundError{digest: digest}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Put(_ context.Context, data []byte) (hash.Hash, error) {
	digest := hash.Sum(data)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[digest]; !ok {
		stored := make([]byte, len(data))
		copy(stored, data)
		m.data[digest] = stored
	}
	return digest, nil
}

func (m *Memory) Has(_ context.Context, digest hash.Hash) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[digest]
	return ok, nil
}

func (m *Memory) PutAt(_ context.Context, digest hash.Hash, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[digest] = stored
	return nil
}

// verify re-hashes data and fails with dialogerr.DigestMismatch if it
// doesn't match the expected digest. Every decorator that touches raw
// bytes on the way out of a backend calls this before returning them.
func verify(expected hash.Hash, data []byte) error {
	actual := hash.Sum(data)
	if actual != expected {
		return dialogerr.DigestMismatch(expected.String(), actual.String())
	}
	return nil
}
