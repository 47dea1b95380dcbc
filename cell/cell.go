// Package cell implements the compare-and-swap publication point a
// branch head lives in, as specified in spec.md §4.2. A cell holds one
// named slot of bytes plus an opaque edition token; writers must
// present the edition they last observed, and the write fails if
// another writer has since published a new one.
package cell

import (
	"context"
	"strconv"
	"sync"

	"go.etcd.io/bbolt"
	"lukechampine.com/blake3"

	"github.com/dialog-db/dialog/dialogerr"
)

// Edition is an opaque compare-and-swap token. Callers must not assume
// anything about its structure beyond equality comparison.
type Edition string

// NoEdition is passed to CompareAndSwap when creating a slot that does
// not exist yet.
const NoEdition Edition = ""

// CASCell is the publication-point contract branch heads are stored
// behind (spec.md §4.2, §6).
type CASCell interface {
	// Read returns the current bytes and edition stored under name, or
	// (nil, NoEdition, nil) if the slot has never been written.
	Read(ctx context.Context, name string) ([]byte, Edition, error)
	// CompareAndSwap stores value under name if the slot's current
	// edition equals expected, returning the new edition on success or
	// a dialogerr.EditionMismatchError on failure.
	CompareAndSwap(ctx context.Context, name string, expected Edition, value []byte) (Edition, error)
}

// Memory is an in-memory CASCell, grounded on the teacher's in-memory
// map-guarded state patterns (cas.MemoryCAS, store.SharedDB).
type Memory struct {
	mu   sync.Mutex
	data map[string]slot
}

type slot struct {
	value   []byte
	edition Edition
	counter uint64
}

// NewMemory constructs an empty in-memory cell.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]slot)}
}

func (m *Memory) Read(_ context.Context, name string) ([]byte, Edition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[name]
	if !ok {
		return nil, NoEdition, nil
	}
	out := make([]byte, len(s.value))
	copy(out, s.value)
	return out, s.edition, nil
}

func (m *Memory) CompareAndSwap(_ context.Context, name string, expected Edition, value []byte) (Edition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, exists := m.data[name]
	currentEdition := NoEdition
	if exists {
		currentEdition = current.edition
	}
	if currentEdition != expected {
		return NoEdition, dialogerr.EditionMismatch(string(expected), string(currentEdition))
	}
	next := current.counter + 1
	stored := make([]byte, len(value))
	copy(stored, value)
	edition := Edition(strconv.FormatUint(next, 10))
	m.data[name] = slot{value: stored, edition: edition, counter: next}
	return edition, nil
}

var cellBucket = []byte("cells")

// Bolt is a bbolt-backed CASCell whose edition is the hex Blake3
// digest of the stored bytes (a content-hash edition, one of the
// strategies spec.md §4.2 names), grounded on the teacher's store.DB.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if absent) a bbolt database at path and
// ensures the cell bucket exists.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o666, nil)
	if err != nil {
		return nil, dialogerr.Storage("opening bolt cell", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(cellBucket)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, dialogerr.Storage("creating cell bucket", err)
	}
	return &Bolt{db: db}, nil
}

// Close releases the underlying bbolt database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func editionOf(value []byte) Edition {
	sum := blake3.Sum256(value)
	return Edition(hexEncode(sum[:]))
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}

func (b *Bolt) Read(_ context.Context, name string) ([]byte, Edition, error) {
	var value []byte
	var edition Edition
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(cellBucket).Get([]byte(name))
		if v == nil {
			edition = NoEdition
			return nil
		}
		value = make([]byte, len(v))
		copy(value, v)
		edition = editionOf(value)
		return nil
	})
	if err != nil {
		return nil, NoEdition, dialogerr.Storage("reading cell", err)
	}
	return value, edition, nil
}

func (b *Bolt) CompareAndSwap(_ context.Context, name string, expected Edition, value []byte) (Edition, error) {
	var result Edition
	var mismatch error
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(cellBucket)
		current := bucket.Get([]byte(name))
		currentEdition := NoEdition
		if current != nil {
			currentEdition = editionOf(current)
		}
		if currentEdition != expected {
			mismatch = dialogerr.EditionMismatch(string(expected), string(currentEdition))
			return nil
		}
		result = editionOf(value)
		return bucket.Put([]byte(name), value)
	})
	if err != nil {
		return NoEdition, dialogerr.Storage("writing cell", err)
	}
	if mismatch != nil {
		return NoEdition, mismatch
	}
	return result, nil
}
