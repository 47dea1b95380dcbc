package codec

import (
	"bytes"
	"testing"

	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/hash"
	"github.com/dialog-db/dialog/key"
)

func TestColumnarRoundTrip(t *testing.T) {
	rows := []Row{
		{[]byte("a"), []byte("1")},
		{[]byte("a"), []byte("2")},
		{[]byte("b"), []byte("1")},
	}
	encoded, err := EncodeColumns(rows)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeColumns(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(rows) {
		t.Fatalf("got %d rows, want %d", len(decoded), len(rows))
	}
	for i, row := range rows {
		for c, col := range row {
			if !bytes.Equal(decoded[i][c], col) {
				t.Fatalf("row %d col %d: got %q, want %q", i, c, decoded[i][c], col)
			}
		}
	}
}

func TestColumnarDeduplicates(t *testing.T) {
	shared := []byte("repeated-value")
	rows := []Row{
		{shared, []byte("1")},
		{shared, []byte("2")},
		{shared, []byte("3")},
	}
	encoded, err := EncodeColumns(rows)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	naive := 0
	for _, row := range rows {
		for _, col := range row {
			naive += len(col)
		}
	}
	if len(encoded) >= naive {
		t.Fatalf("expected dedup to beat naive concatenation: got %d bytes, naive was %d", len(encoded), naive)
	}
}

func TestLeafRoundTrip(t *testing.T) {
	e := artifact.NewEntity([]byte("e1"))
	a := artifact.NewAttribute("person/name")
	ref := hash.Sum([]byte("value"))
	k := key.NewEAV(e, a, artifact.TypeString, ref).Bytes()

	entries := []Entry{{Key: k, Value: []byte("encoded-datum")}}
	encoded, err := EncodeLeaf(entries)
	if err != nil {
		t.Fatalf("encode leaf: %v", err)
	}

	kind, err := PeekKind(encoded)
	if err != nil || kind != Leaf {
		t.Fatalf("expected leaf kind, got %v, %v", kind, err)
	}

	decoded, err := DecodeLeaf(encoded)
	if err != nil {
		t.Fatalf("decode leaf: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Key != k || string(decoded[0].Value) != "encoded-datum" {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	e := artifact.NewEntity([]byte("e1"))
	a := artifact.NewAttribute("x")
	ref := hash.Sum([]byte("v"))
	k := key.NewEAV(e, a, artifact.TypeString, ref).Bytes()
	child := hash.Sum([]byte("child"))

	links := []Link{{Boundary: k, Child: child}}
	encoded, err := EncodeIndex(links)
	if err != nil {
		t.Fatalf("encode index: %v", err)
	}
	decoded, err := DecodeIndex(encoded)
	if err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Boundary != k || decoded[0].Child != child {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestEmptyColumns(t *testing.T) {
	encoded, err := EncodeColumns(nil)
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	decoded, err := DecodeColumns(encoded)
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected no rows, got %d", len(decoded))
	}
}
