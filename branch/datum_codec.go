package branch

import (
	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
)

// DatumCodec encodes artifact.Datum for storage as prolly tree leaf
// values, grounded on spec.md §3's "State/Datum" and used by every
// tree the branch runtime maintains.
type DatumCodec struct{}

func encodeCause(c artifact.Cause) []byte {
	members := c.Sorted()
	out := []byte{byte(len(members))}
	for _, h := range members {
		out = append(out, h[:]...)
	}
	return out
}

func decodeCause(raw []byte) (artifact.Cause, []byte, error) {
	if len(raw) < 1 {
		return nil, nil, dialogerr.InvalidValue("truncated datum cause count")
	}
	count := int(raw[0])
	raw = raw[1:]
	if len(raw) < count*hash.Size {
		return nil, nil, dialogerr.InvalidValue("truncated datum cause bytes")
	}
	cause := artifact.NewCause()
	for i := 0; i < count; i++ {
		var h hash.Hash
		copy(h[:], raw[i*hash.Size:(i+1)*hash.Size])
		cause.Add(h)
	}
	return cause, raw[count*hash.Size:], nil
}

func (DatumCodec) Encode(d artifact.Datum) []byte {
	if d.IsTombstone() {
		return append([]byte{byte(artifact.Retract)}, encodeCause(d.Cause)...)
	}
	out := []byte{byte(artifact.Assert), byte(d.Value.DataType())}
	out = append(out, encodeCause(d.Cause)...)
	return append(out, d.Value.CanonicalBytes()...)
}

func (DatumCodec) Decode(raw []byte) (artifact.Datum, error) {
	if len(raw) < 1 {
		return artifact.Datum{}, dialogerr.InvalidValue("empty datum bytes")
	}
	kind := artifact.InstructionKind(raw[0])
	if kind == artifact.Retract {
		cause, _, err := decodeCause(raw[1:])
		if err != nil {
			return artifact.Datum{}, err
		}
		return artifact.Datum{Kind: artifact.Retract, Cause: cause}, nil
	}
	if len(raw) < 2 {
		return artifact.Datum{}, dialogerr.InvalidValue("truncated datum bytes")
	}
	vt := artifact.ValueDataType(raw[1])
	cause, rest, err := decodeCause(raw[2:])
	if err != nil {
		return artifact.Datum{}, err
	}
	value, err := artifact.DecodeValue(vt, rest)
	if err != nil {
		return artifact.Datum{}, err
	}
	return artifact.Datum{Kind: artifact.Assert, Value: value, Cause: cause}, nil
}
