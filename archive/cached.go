package archive

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dialog-db/dialog/hash"
)

// Cached decorates a BlobArchive with an in-process LRU of recently
// read blobs, grounded on dialog-prolly-tree/tests/tree.rs's
// `StorageCache`, an LRU wrapper over the storage backend that the
// original test suite uses to demonstrate repeated reads being served
// without touching the backend.
type Cached struct {
	backend BlobArchive
	cache   *lru.Cache[hash.Hash, []byte]
}

// NewCached wraps backend with an LRU of the given capacity.
func NewCached(backend BlobArchive, capacity int) (*Cached, error) {
	cache, err := lru.New[hash.Hash, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &Cached{backend: backend, cache: cache}, nil
}

func (c *Cached) Get(ctx context.Context, digest hash.Hash) ([]byte, error) {
	if data, ok := c.cache.Get(digest); ok {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	data, err := c.backend.Get(ctx, digest)
	if err != nil {
		return nil, err
	}
	c.cache.Add(digest, data)
	return data, nil
}

func (c *Cached) Put(ctx context.Context, data []byte) (hash.Hash, error) {
	digest, err := c.backend.Put(ctx, data)
	if err != nil {
		return digest, err
	}
	c.cache.Add(digest, data)
	return digest, nil
}

func (c *Cached) Has(ctx context.Context, digest hash.Hash) (bool, error) {
	if c.cache.Contains(digest) {
		return true, nil
	}
	return c.backend.Has(ctx, digest)
}
