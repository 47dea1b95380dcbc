package artifact

import (
	"encoding/binary"
	"math"

	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
)

// ValueDataType tags the variant carried by a Value. It occupies the
// one-byte value-type slot of a Key (spec.md §3).
type ValueDataType uint8

const (
	// TypeString is a UTF-8 string.
	TypeString ValueDataType = iota + 1
	// TypeBytes is an opaque byte string.
	TypeBytes
	// TypeBoolean is a boolean.
	TypeBoolean
	// TypeEntity is a reference to another Entity.
	TypeEntity
	// TypeUnsignedInt is an unsigned 128-bit integer.
	TypeUnsignedInt
	// TypeSignedInt is a signed 128-bit integer.
	TypeSignedInt
	// TypeFloat is a 64-bit IEEE-754 float.
	TypeFloat
	// TypeRecord is an opaque, application-defined byte blob.
	TypeRecord
	// TypeSymbol is an Attribute used as a value (e.g. to store a predicate name).
	TypeSymbol
)

func (t ValueDataType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeBytes:
		return "Bytes"
	case TypeBoolean:
		return "Boolean"
	case TypeEntity:
		return "Entity"
	case TypeUnsignedInt:
		return "UnsignedInt"
	case TypeSignedInt:
		return "SignedInt"
	case TypeFloat:
		return "Float"
	case TypeRecord:
		return "Record"
	case TypeSymbol:
		return "Symbol"
	default:
		return "Unknown"
	}
}

// Uint128 is an unsigned 128-bit integer represented as two 64-bit halves.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// Int128 is a signed 128-bit integer represented as two's-complement halves.
type Int128 struct {
	Hi int64
	Lo uint64
}

// Value is a tagged union over the nine value kinds spec.md §3 names.
// Exactly one field is meaningful, selected by Kind.
type Value struct {
	Kind    ValueDataType
	Str     string
	Bin     []byte
	Bool    bool
	Ent     Entity
	Uint    Uint128
	Sint    Int128
	Float64 float64
	Sym     Attribute
}

// String constructs a string Value.
func String(s string) Value { return Value{Kind: TypeString, Str: s} }

// Bytes constructs a bytes Value.
func Bytes(b []byte) Value { return Value{Kind: TypeBytes, Bin: b} }

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{Kind: TypeBoolean, Bool: b} }

// OfEntity constructs an entity-reference Value.
func OfEntity(e Entity) Value { return Value{Kind: TypeEntity, Ent: e} }

// UnsignedInt constructs an unsigned 128-bit integer Value from a uint64.
func UnsignedInt(v uint64) Value { return Value{Kind: TypeUnsignedInt, Uint: Uint128{Lo: v}} }

// SignedInt constructs a signed 128-bit integer Value from an int64.
func SignedInt(v int64) Value {
	var hi int64
	if v < 0 {
		hi = -1
	}
	return Value{Kind: TypeSignedInt, Sint: Int128{Hi: hi, Lo: uint64(v)}}
}

// Float constructs a floating point Value.
func Float(f float64) Value { return Value{Kind: TypeFloat, Float64: f} }

// Record constructs an opaque record Value.
func Record(b []byte) Value { return Value{Kind: TypeRecord, Bin: b} }

// Symbol constructs a Value carrying an Attribute.
func Symbol(a Attribute) Value { return Value{Kind: TypeSymbol, Sym: a} }

// DataType returns the tag of the value.
func (v Value) DataType() ValueDataType { return v.Kind }

// CanonicalBytes serializes v into the deterministic byte form whose
// Blake3 digest is the value's ValueReference (spec.md §3, §6).
func (v Value) CanonicalBytes() []byte {
	switch v.Kind {
	case TypeString:
		return lengthPrefixed([]byte(v.Str))
	case TypeBytes:
		return lengthPrefixed(v.Bin)
	case TypeBoolean:
		if v.Bool {
			return []byte{1}
		}
		return []byte{0}
	case TypeEntity:
		return append([]byte{}, v.Ent[:]...)
	case TypeUnsignedInt:
		var buf [16]byte
		binary.BigEndian.PutUint64(buf[0:8], v.Uint.Hi)
		binary.BigEndian.PutUint64(buf[8:16], v.Uint.Lo)
		return buf[:]
	case TypeSignedInt:
		var buf [16]byte
		binary.BigEndian.PutUint64(buf[0:8], uint64(v.Sint.Hi))
		binary.BigEndian.PutUint64(buf[8:16], v.Sint.Lo)
		return buf[:]
	case TypeFloat:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v.Float64))
		return buf[:]
	case TypeRecord:
		return lengthPrefixed(v.Bin)
	case TypeSymbol:
		return append([]byte{}, v.Sym[:]...)
	default:
		return nil
	}
}

func lengthPrefixed(b []byte) []byte {
	header := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(header, uint64(len(b)))
	out := make([]byte, 0, n+len(b))
	out = append(out, header[:n]...)
	out = append(out, b...)
	return out
}

// Reference returns the ValueReferenceKeyPart for v: the Blake3 hash of
// its canonical bytes (spec.md §3, "Value reference").
func (v Value) Reference() hash.Hash {
	return hash.Sum(v.CanonicalBytes())
}

// DecodeValue parses canonical bytes of the given type back into a Value.
// Used when the query evaluator needs to reconstruct a fact's Is field
// from archive-resident value bytes (spec.md §4.7 step 3).
func DecodeValue(kind ValueDataType, data []byte) (Value, error) {
	switch kind {
	case TypeString:
		payload, err := unprefix(data)
		if err != nil {
			return Value{}, err
		}
		return String(string(payload)), nil
	case TypeBytes:
		payload, err := unprefix(data)
		if err != nil {
			return Value{}, err
		}
		return Bytes(payload), nil
	case TypeBoolean:
		if len(data) != 1 {
			return Value{}, dialogerr.InvalidValue("boolean value must be 1 byte")
		}
		return Bool(data[0] != 0), nil
	case TypeEntity:
		if len(data) != EntityLength {
			return Value{}, dialogerr.InvalidValue("entity value must be 64 bytes")
		}
		var e Entity
		copy(e[:], data)
		return OfEntity(e), nil
	case TypeUnsignedInt:
		if len(data) != 16 {
			return Value{}, dialogerr.InvalidValue("unsigned int value must be 16 bytes")
		}
		return Value{Kind: TypeUnsignedInt, Uint: Uint128{
			Hi: binary.BigEndian.Uint64(data[0:8]),
			Lo: binary.BigEndian.Uint64(data[8:16]),
		}}, nil
	case TypeSignedInt:
		if len(data) != 16 {
			return Value{}, dialogerr.InvalidValue("signed int value must be 16 bytes")
		}
		return Value{Kind: TypeSignedInt, Sint: Int128{
			Hi: int64(binary.BigEndian.Uint64(data[0:8])),
			Lo: binary.BigEndian.Uint64(data[8:16]),
		}}, nil
	case TypeFloat:
		if len(data) != 8 {
			return Value{}, dialogerr.InvalidValue("float value must be 8 bytes")
		}
		return Float(math.Float64frombits(binary.BigEndian.Uint64(data))), nil
	case TypeRecord:
		payload, err := unprefix(data)
		if err != nil {
			return Value{}, err
		}
		return Record(payload), nil
	case TypeSymbol:
		if len(data) != AttributeLength {
			return Value{}, dialogerr.InvalidValue("symbol value must be 64 bytes")
		}
		var a Attribute
		copy(a[:], data)
		return Symbol(a), nil
	default:
		return Value{}, dialogerr.InvalidValue("unknown value data type")
	}
}

func unprefix(data []byte) ([]byte, error) {
	n, width := binary.Uvarint(data)
	if width <= 0 {
		return nil, dialogerr.InvalidValue("malformed length prefix")
	}
	rest := data[width:]
	if uint64(len(rest)) < n {
		return nil, dialogerr.InvalidValue("truncated value payload")
	}
	return rest[:n], nil
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case TypeString:
		return v.Str == other.Str
	case TypeBytes, TypeRecord:
		return string(v.Bin) == string(other.Bin)
	case TypeBoolean:
		return v.Bool == other.Bool
	case TypeEntity:
		return v.Ent == other.Ent
	case TypeUnsignedInt:
		return v.Uint == other.Uint
	case TypeSignedInt:
		return v.Sint == other.Sint
	case TypeFloat:
		return v.Float64 == other.Float64
	case TypeSymbol:
		return v.Sym == other.Sym
	default:
		return false
	}
}
