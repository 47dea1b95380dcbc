package archive

import (
	"context"

	"go.etcd.io/bbolt"

	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
)

// blobBucket holds digest -> content, mirroring the teacher's
// store.DB convention of one named bbolt bucket per logical mapping.
var blobBucket = []byte("blobs")

// Bolt is a bbolt-backed BlobArchive, grounded on the teacher's
// store.DB (internal/store/kv.go).
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if absent) a bbolt database at path and
// ensures the blob bucket exists.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o666, nil)
	if err != nil {
		return nil, dialogerr.Storage("opening bolt archive", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(blobBucket)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, dialogerr.Storage("creating blob bucket", err)
	}
	return &Bolt{db: db}, nil
}

// Close releases the underlying bbolt database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Get(_ context.Context, digest hash.Hash) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(blobBucket).Get(digest[:])
		if v == nil {
			return &notFoundError{digest: digest}
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		if _, ok := err.(*notFoundError); ok {
			return nil, err
		}
		return nil, dialogerr.Storage("reading blob", err)
	}
	return out, nil
}

func (b *Bolt) Put(_ context.Context, data []byte) (hash.Hash, error) {
	digest := hash.Sum(data)
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(blobBucket)
		if bucket.Get(digest[:]) != nil {
			return nil
		}
		return bucket.Put(digest[:], data)
	})
	if err != nil {
		return hash.Zero, dialogerr.Storage("writing blob", err)
	}
	return digest, nil
}

func (b *Bolt) PutAt(_ context.Context, digest hash.Hash, data []byte) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(blobBucket).Put(digest[:], data)
	})
	if err != nil {
		return dialogerr.Storage("writing blob", err)
	}
	return nil
}

func (b *Bolt) Has(_ context.Context, digest hash.Hash) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(blobBucket).Get(digest[:]) != nil
		return nil
	})
	if err != nil {
		return false, dialogerr.Storage("checking blob", err)
	}
	return found, nil
}
