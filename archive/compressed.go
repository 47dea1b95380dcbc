package archive

import (
	"bytes"
	"context"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
)

// Compressed decorates a BlobArchive, zstd-compressing bytes at rest,
// grounded on the teacher's objects.EncodeZstdGitBlob/DecodeZstdGitBlob.
// Digest verification always runs against the decompressed bytes, so
// the content address is stable no matter which decorator stack sits
// in front of the backend.
type Compressed struct {
	backend KeyedArchive
	encoder *zstd.Encoder
}

// NewCompressed wraps backend with zstd compression. backend must
// support PutAt since compressed bytes do not hash to the digest the
// BlobArchive contract addresses them by.
func NewCompressed(backend KeyedArchive) (*Compressed, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, dialogerr.Storage("creating zstd encoder", err)
	}
	return &Compressed{backend: backend, encoder: enc}, nil
}

func (c *Compressed) Get(ctx context.Context, digest hash.Hash) ([]byte, error) {
	compressed, err := c.backend.Get(ctx, digest)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, dialogerr.Storage("creating zstd decoder", err)
	}
	defer dec.Close()
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, dialogerr.Storage("decompressing blob", err)
	}
	if err := verify(digest, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Compressed) Put(ctx context.Context, data []byte) (hash.Hash, error) {
	digest := hash.Sum(data)
	compressed := c.encoder.EncodeAll(data, nil)
	if err := c.backend.PutAt(ctx, digest, compressed); err != nil {
		return hash.Zero, err
	}
	return digest, nil
}

func (c *Compressed) Has(ctx context.Context, digest hash.Hash) (bool, error) {
	return c.backend.Has(ctx, digest)
}
