package archive

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/dialog-db/dialog/hash"
)

// SingleFlight decorates a BlobArchive so that concurrent Get calls
// for the same digest share one backend read, grounded on erigon's use
// of golang.org/x/sync for request coalescing over shared chain state.
type SingleFlight struct {
	backend BlobArchive
	group   singleflight.Group
}

// NewSingleFlight wraps backend with request coalescing.
func NewSingleFlight(backend BlobArchive) *SingleFlight {
	return &SingleFlight{backend: backend}
}

func (s *SingleFlight) Get(ctx context.Context, digest hash.Hash) ([]byte, error) {
	v, err, _ := s.group.Do(digest.String(), func() (interface{}, error) {
		return s.backend.Get(ctx, digest)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *SingleFlight) Put(ctx context.Context, data []byte) (hash.Hash, error) {
	return s.backend.Put(ctx, data)
}

func (s *SingleFlight) Has(ctx context.Context, digest hash.Hash) (bool, error) {
	return s.backend.Has(ctx, digest)
}
