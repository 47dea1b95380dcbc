// Package key implements the 162-byte fact key and its three parallel
// orderings (EAV, AEV, VAE) described in spec.md §3. A Key is the unit
// the prolly tree stores; the three views are three different byte
// layouts over the same (entity, attribute, value) fields, letting a
// single tree implementation serve all three indexes by lexicographic
// byte comparison alone.
package key

import (
	"bytes"
	"encoding/hex"

	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
)

// Length is the fixed byte width of a Key: tag(1) + entity(64) +
// attribute(64) + value-type(1) + value-reference(32), permuted
// per Order but always summing to the same total.
const Length = 1 + artifact.EntityLength + artifact.AttributeLength + 1 + hash.Size

// valueWidth is the combined width of the value-type tag and the
// value-reference hash: the two fields that always travel together as
// the "value" component of a key, regardless of Order.
const valueWidth = 1 + hash.Size

// Order names which slot leads a Key's byte layout.
type Order uint8

const (
	// EAV orders by entity, then attribute, then value.
	EAV Order = iota
	// AEV orders by attribute, then entity, then value.
	AEV
	// VAE orders by value, then attribute, then entity.
	VAE
)

func (o Order) String() string {
	switch o {
	case EAV:
		return "EAV"
	case AEV:
		return "AEV"
	case VAE:
		return "VAE"
	default:
		return "unknown"
	}
}

// Key is the raw 162-byte array stored as a prolly tree key. Byte 0 is
// a reserved tag, always zero (spec.md §9 Open Question 3).
type Key [Length]byte

// layout describes where each logical field sits for a given Order.
type layout struct {
	entityOffset, attributeOffset, valueOffset int
}

func layoutFor(order Order) layout {
	const tag = 1
	switch order {
	case EAV:
		return layout{
			entityOffset:    tag,
			attributeOffset: tag + artifact.EntityLength,
			valueOffset:     tag + artifact.EntityLength + artifact.AttributeLength,
		}
	case AEV:
		return layout{
			attributeOffset: tag,
			entityOffset:    tag + artifact.AttributeLength,
			valueOffset:     tag + artifact.AttributeLength + artifact.EntityLength,
		}
	case VAE:
		return layout{
			valueOffset:     tag,
			attributeOffset: tag + valueWidth,
			entityOffset:    tag + valueWidth + artifact.AttributeLength,
		}
	default:
		return layout{}
	}
}

// View is a typed accessor over a Key's fields for one Order.
type View struct {
	order Order
	raw   Key
}

// Order reports which ordering this view interprets the key as.
func (v View) Order() Order { return v.order }

// Bytes returns the raw Key.
func (v View) Bytes() Key { return v.raw }

// Entity returns the key's entity field.
func (v View) Entity() artifact.Entity {
	l := layoutFor(v.order)
	var e artifact.Entity
	copy(e[:], v.raw[l.entityOffset:l.entityOffset+artifact.EntityLength])
	return e
}

// Attribute returns the key's attribute field.
func (v View) Attribute() artifact.Attribute {
	l := layoutFor(v.order)
	var a artifact.Attribute
	copy(a[:], v.raw[l.attributeOffset:l.attributeOffset+artifact.AttributeLength])
	return a
}

// ValueType returns the key's value-type tag.
func (v View) ValueType() artifact.ValueDataType {
	l := layoutFor(v.order)
	return artifact.ValueDataType(v.raw[l.valueOffset])
}

// ValueReference returns the key's value-reference hash.
func (v View) ValueReference() hash.Hash {
	l := layoutFor(v.order)
	var h hash.Hash
	copy(h[:], v.raw[l.valueOffset+1:l.valueOffset+valueWidth])
	return h
}

func build(order Order, e artifact.Entity, a artifact.Attribute, vt artifact.ValueDataType, ref hash.Hash) View {
	l := layoutFor(order)
	var raw Key
	copy(raw[l.entityOffset:], e[:])
	copy(raw[l.attributeOffset:], a[:])
	raw[l.valueOffset] = byte(vt)
	copy(raw[l.valueOffset+1:], ref[:])
	return View{order: order, raw: raw}
}

// NewEAV builds the EAV-ordered Key for (entity, attribute, valueType, ref).
func NewEAV(e artifact.Entity, a artifact.Attribute, vt artifact.ValueDataType, ref hash.Hash) View {
	return build(EAV, e, a, vt, ref)
}

// NewAEV builds the AEV-ordered Key for (attribute, entity, valueType, ref).
func NewAEV(a artifact.Attribute, e artifact.Entity, vt artifact.ValueDataType, ref hash.Hash) View {
	return build(AEV, e, a, vt, ref)
}

// NewVAE builds the VAE-ordered Key for (ref, attribute, entity, valueType).
func NewVAE(ref hash.Hash, a artifact.Attribute, e artifact.Entity, vt artifact.ValueDataType) View {
	return build(VAE, e, a, vt, ref)
}

// FromRaw reinterprets a raw Key under the given Order, without
// knowing which Order it was originally built under. Callers must
// already know the Order a given tree uses; raw bytes alone carry no
// self-describing tag beyond the reserved zero byte.
func FromRaw(raw Key, order Order) View {
	return View{order: order, raw: raw}
}

// Convert re-derives a view for a different order from an existing
// one, the conversion the original Rust `FromKey<K>` blanket
// implementation provides (original_source/rust/dialog-artifacts/src/key.rs).
func Convert(v View, order Order) View {
	if v.order == order {
		return v
	}
	return build(order, v.Entity(), v.Attribute(), v.ValueType(), v.ValueReference())
}

// Compare orders two raw Keys of the same Order lexicographically by
// byte value, the ordering the prolly tree relies on for all three
// indexes.
func Compare(a, b Key) int {
	return bytes.Compare(a[:], b[:])
}

// Hex returns the lowercase hex encoding of the raw key.
func (k Key) Hex() string {
	return hex.EncodeToString(k[:])
}

// Validate reports whether raw's reserved tag byte is zero.
func Validate(raw Key) error {
	if raw[0] != 0 {
		return dialogerr.InvalidKey("reserved tag byte must be zero")
	}
	return nil
}

// Min and Max bound the full range for any Order: since every field
// position is populated by all-zero or all-0xff bytes, one sentinel
// pair serves every layout.
func Min() Key { return Key{} }

func Max() Key {
	var raw Key
	for i := range raw {
		raw[i] = 0xff
	}
	return raw
}

// Prefix builds a partially-bound Key for range scanning: entity/
// attribute/value-type/reference fields left unbound are filled with
// bound's corresponding byte from the given sentinel (Min or Max),
// implementing spec.md §4.7 step 2 ("zero/max-padding the rest"). The
// reserved tag byte is always zero, as in every stored Key.
func Prefix(order Order, e *artifact.Entity, a *artifact.Attribute, vt *artifact.ValueDataType, ref *hash.Hash, sentinel Key) Key {
	l := layoutFor(order)
	raw := sentinel
	raw[0] = 0
	if e != nil {
		copy(raw[l.entityOffset:], e[:])
	}
	if a != nil {
		copy(raw[l.attributeOffset:], a[:])
	}
	if vt != nil {
		raw[l.valueOffset] = byte(*vt)
	}
	if ref != nil {
		copy(raw[l.valueOffset+1:], ref[:])
	}
	return raw
}
