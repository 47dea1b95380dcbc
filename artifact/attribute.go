package artifact

import (
	"encoding/hex"
	"strings"

	"github.com/dialog-db/dialog/dialogerr"
)

// AttributeLength is the fixed byte width of an Attribute. Attributes
// are short textual names (e.g. "person/name"); they are stored
// right-padded with zero bytes so the fixed-width key layout applies
// uniformly to both Entity and Attribute slots.
const AttributeLength = 64

// Attribute is a predicate name, encoded as UTF-8 and zero-padded to
// AttributeLength bytes.
type Attribute [AttributeLength]byte

// NewAttribute encodes name as an Attribute. It panics if name's UTF-8
// encoding does not fit in AttributeLength bytes, mirroring the
// teacher's convention of failing fast on a caller-supplied constant
// that should never be this long in practice.
func NewAttribute(name string) Attribute {
	a, err := ParseAttribute(name)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAttribute encodes name as an Attribute, returning an error
// instead of panicking when name does not fit.
func ParseAttribute(name string) (Attribute, error) {
	var a Attribute
	raw := []byte(name)
	if len(raw) > AttributeLength {
		return a, dialogerr.InvalidKey("attribute name exceeds 64 bytes")
	}
	copy(a[:], raw)
	return a, nil
}

// String returns the attribute's name with trailing zero padding
// stripped.
func (a Attribute) String() string {
	end := len(a)
	for end > 0 && a[end-1] == 0 {
		end--
	}
	return string(a[:end])
}

// Hex returns the raw hex encoding of the padded attribute bytes, used
// by the key views for ordering.
func (a Attribute) Hex() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether a carries no name.
func (a Attribute) IsZero() bool {
	return a == Attribute{}
}

// HasPrefix reports whether the attribute's name starts with prefix,
// used by the planner to estimate selectivity of namespaced attributes
// like "person/*".
func (a Attribute) HasPrefix(prefix string) bool {
	return strings.HasPrefix(a.String(), prefix)
}

// MinAttribute and MaxAttribute bound the range of all possible
// attributes.
var (
	MinAttribute = Attribute{}
	MaxAttribute = func() Attribute {
		var a Attribute
		for i := range a {
			a[i] = 0xff
		}
		return a
	}()
)
