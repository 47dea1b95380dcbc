package key

import (
	"testing"

	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/hash"
)

func TestConvertRoundTrip(t *testing.T) {
	e := artifact.NewEntity([]byte("e1"))
	a := artifact.NewAttribute("person/name")
	ref := hash.Sum([]byte("value"))
	vt := artifact.TypeString

	eav := NewEAV(e, a, vt, ref)
	aev := Convert(eav, AEV)
	vae := Convert(eav, VAE)
	back := Convert(vae, EAV)

	if back.Entity() != e || back.Attribute() != a || back.ValueReference() != ref || back.ValueType() != vt {
		t.Fatalf("round trip through VAE lost field data")
	}
	if aev.Entity() != e || aev.Attribute() != a {
		t.Fatalf("AEV conversion lost field data")
	}
	if eav.Bytes() == aev.Bytes() {
		t.Fatalf("EAV and AEV physical layouts should differ")
	}
}

func TestKeyLength(t *testing.T) {
	var k Key
	if len(k) != 162 {
		t.Fatalf("expected 162-byte key, got %d", len(k))
	}
}

func TestCompareOrdering(t *testing.T) {
	e1 := artifact.NewEntity([]byte("a"))
	e2 := artifact.NewEntity([]byte("b"))
	a := artifact.NewAttribute("x")
	ref := hash.Sum([]byte("v"))

	k1 := NewEAV(e1, a, artifact.TypeString, ref).Bytes()
	k2 := NewEAV(e2, a, artifact.TypeString, ref).Bytes()

	if Compare(k1, k1) != 0 {
		t.Fatalf("key should equal itself")
	}
	if Compare(Min(), Max()) >= 0 {
		t.Fatalf("Min should sort before Max")
	}
	_ = k2
}

func TestPrefixPadding(t *testing.T) {
	e := artifact.NewEntity([]byte("e"))
	lower := Prefix(EAV, &e, nil, nil, nil, Min())
	upper := Prefix(EAV, &e, nil, nil, nil, Max())
	if Compare(lower, upper) >= 0 {
		t.Fatalf("lower bound should sort before upper bound")
	}
	v := FromRaw(lower, EAV)
	if v.Entity() != e {
		t.Fatalf("prefix should carry the bound entity")
	}
}
