package artifact

import "testing"

func TestValueCanonicalRoundTrip(t *testing.T) {
	cases := []Value{
		String("hello"),
		Bytes([]byte{1, 2, 3}),
		Bool(true),
		Bool(false),
		UnsignedInt(42),
		SignedInt(-7),
		Float(3.14159),
		Record([]byte("opaque")),
	}

	for _, v := range cases {
		encoded := v.CanonicalBytes()
		decoded, err := DecodeValue(v.DataType(), encoded)
		if err != nil {
			t.Fatalf("decode %v: %v", v.DataType(), err)
		}
		if !decoded.Equal(v) {
			t.Fatalf("round trip mismatch for %v: got %+v, want %+v", v.DataType(), decoded, v)
		}
	}
}

func TestValueReferenceDeterministic(t *testing.T) {
	a := String("same")
	b := String("same")
	if a.Reference() != b.Reference() {
		t.Fatalf("identical values produced different references")
	}

	c := String("different")
	if a.Reference() == c.Reference() {
		t.Fatalf("distinct values produced the same reference")
	}
}

func TestEntityReferenceValue(t *testing.T) {
	e := NewEntity([]byte("subject"))
	v := OfEntity(e)
	decoded, err := DecodeValue(TypeEntity, v.CanonicalBytes())
	if err != nil {
		t.Fatalf("decode entity value: %v", err)
	}
	if decoded.Ent != e {
		t.Fatalf("entity value round trip mismatch")
	}
}

func TestAttributeRoundTrip(t *testing.T) {
	a, err := ParseAttribute("person/name")
	if err != nil {
		t.Fatalf("parse attribute: %v", err)
	}
	if a.String() != "person/name" {
		t.Fatalf("got %q, want %q", a.String(), "person/name")
	}

	if _, err := ParseAttribute(string(make([]byte, AttributeLength+1))); err == nil {
		t.Fatalf("expected error for oversized attribute name")
	}
}
