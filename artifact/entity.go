package artifact

import (
	"encoding/hex"

	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
)

// EntityLength is the fixed byte width of an Entity identifier.
// Entities carry a 32-byte Blake3 digest padded to 64 bytes so the
// EAV/AEV/VAE key layouts can place entity and attribute slots at the
// same offsets regardless of which one leads (spec.md §3, Key layout).
const EntityLength = 64

// Entity is an opaque subject identifier: a content-derived digest,
// left-padded to EntityLength bytes.
type Entity [EntityLength]byte

// NewEntity derives an Entity from seed bytes, e.g. the canonical bytes
// of the Instruction that first asserted a fact about it.
func NewEntity(seed []byte) Entity {
	digest := hash.Sum(seed)
	var e Entity
	copy(e[EntityLength-hash.Size:], digest[:])
	return e
}

// EntityFromHash lifts a Hash directly into an Entity.
func EntityFromHash(h hash.Hash) Entity {
	var e Entity
	copy(e[EntityLength-hash.Size:], h[:])
	return e
}

// Hash returns the trailing 32 bytes of the entity as a Hash.
func (e Entity) Hash() hash.Hash {
	var h hash.Hash
	copy(h[:], e[EntityLength-hash.Size:])
	return h
}

// String returns the lowercase hex encoding of the entity.
func (e Entity) String() string {
	return hex.EncodeToString(e[:])
}

// IsZero reports whether e is the all-zero entity.
func (e Entity) IsZero() bool {
	return e == Entity{}
}

// ParseEntity decodes a hex string into an Entity.
func ParseEntity(s string) (Entity, error) {
	var e Entity
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return e, dialogerr.InvalidKey("entity is not valid hex")
	}
	if len(decoded) != EntityLength {
		return e, dialogerr.InvalidKey("entity must be 64 bytes")
	}
	copy(e[:], decoded)
	return e, nil
}

// MinEntity and MaxEntity bound the range of all possible entities
// (supplemented from original_source/rust/dialog-artifacts/src/key.rs
// MINIMUM/MAXIMUM). Range-scan bounds are built by key.Prefix from the
// whole-key key.Min/key.Max sentinels, not from these values.
var (
	MinEntity = Entity{}
	MaxEntity = func() Entity {
		var e Entity
		for i := range e {
			e[i] = 0xff
		}
		return e
	}()
)
