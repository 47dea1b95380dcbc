package query

import (
	"context"
	"testing"

	"github.com/dialog-db/dialog/archive"
	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/branch"
	"github.com/dialog-db/dialog/cell"
)

func setup(t *testing.T) (*Store, *branch.Branch) {
	t.Helper()
	ctx := context.Background()
	backend := archive.NewMemory()
	cells := cell.NewMemory()
	b := branch.Open("main", backend, cells)

	alice := artifact.NewEntity([]byte("alice"))
	bob := artifact.NewEntity([]byte("bob"))
	nameAttr := artifact.NewAttribute("person/name")
	ageAttr := artifact.NewAttribute("person/age")

	instructions := []artifact.Instruction{
		artifact.NewAssertion(artifact.Fact{Of: alice, Is: nameAttr, Value: artifact.String("Alice")}, nil),
		artifact.NewAssertion(artifact.Fact{Of: alice, Is: ageAttr, Value: artifact.UnsignedInt(30)}, nil),
		artifact.NewAssertion(artifact.Fact{Of: bob, Is: nameAttr, Value: artifact.String("Bob")}, nil),
		artifact.NewAssertion(artifact.Fact{Of: bob, Is: ageAttr, Value: artifact.UnsignedInt(25)}, nil),
	}
	rev, err := b.Commit(ctx, "tester", instructions)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	store := &Store{Archive: backend, Indexes: rev.Indexes}
	return store, b
}

func TestFactPremiseBindsVariables(t *testing.T) {
	ctx := context.Background()
	store, _ := setup(t)

	nameAttr := artifact.NewAttribute("person/name")
	q := Query{Premises: []Premise{
		FactPremise{Entity: EntityVar("e"), Attribute: AttributeValue(nameAttr), Value: ValueVar("name")},
	}}

	frames, err := Evaluate(ctx, store, q)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(frames))
	}
	for _, f := range frames {
		if _, ok := f["e"]; !ok {
			t.Fatalf("expected e bound in %v", f)
		}
		v, ok := f["name"].AsValue()
		if !ok || v.Kind != artifact.TypeString {
			t.Fatalf("expected name bound to a string in %v", f)
		}
	}
}

func TestConjunctiveQueryJoinsOnSharedEntity(t *testing.T) {
	ctx := context.Background()
	store, _ := setup(t)

	nameAttr := artifact.NewAttribute("person/name")
	ageAttr := artifact.NewAttribute("person/age")
	q := Query{Premises: []Premise{
		FactPremise{Entity: EntityVar("e"), Attribute: AttributeValue(ageAttr), Value: ValueLiteral(artifact.UnsignedInt(30))},
		FactPremise{Entity: EntityVar("e"), Attribute: AttributeValue(nameAttr), Value: ValueVar("name")},
	}}

	frames, err := Evaluate(ctx, store, q)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 match, got %d", len(frames))
	}
	name, _ := frames[0]["name"].AsValue()
	if name.Str != "Alice" {
		t.Fatalf("expected joined name Alice, got %q", name.Str)
	}
}

func TestUnconstrainedFactPremiseErrors(t *testing.T) {
	ctx := context.Background()
	store, _ := setup(t)

	q := Query{Premises: []Premise{
		FactPremise{Entity: EntityVar("e"), Attribute: AttributeVar("a"), Value: ValueVar("v")},
	}}
	if _, err := Evaluate(ctx, store, q); err == nil {
		t.Fatalf("expected an error for a fully unbound fact premise")
	}
}

func TestNegationExcludesMatches(t *testing.T) {
	ctx := context.Background()
	store, _ := setup(t)

	nameAttr := artifact.NewAttribute("person/name")
	q := Query{Premises: []Premise{
		FactPremise{Entity: EntityVar("e"), Attribute: AttributeValue(nameAttr), Value: ValueVar("name")},
		Negation{Inner: Query{Premises: []Premise{
			FactPremise{Entity: EntityVar("e"), Attribute: AttributeValue(nameAttr), Value: ValueLiteral(artifact.String("Alice"))},
		}}},
	}}

	frames, err := Evaluate(ctx, store, q)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 match excluding Alice, got %d", len(frames))
	}
	name, _ := frames[0]["name"].AsValue()
	if name.Str != "Bob" {
		t.Fatalf("expected the remaining match to be Bob, got %q", name.Str)
	}
}

func TestFormulaPremiseComparesBoundValues(t *testing.T) {
	ctx := context.Background()
	store, _ := setup(t)

	ageAttr := artifact.NewAttribute("person/age")
	q := Query{Premises: []Premise{
		FactPremise{Entity: EntityVar("e"), Attribute: AttributeValue(ageAttr), Value: ValueVar("age")},
		FormulaPremise{Op: GreaterThan, Left: ValueVar("age"), Right: ValueLiteral(artifact.UnsignedInt(26))},
	}}

	frames, err := Evaluate(ctx, store, q)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 match older than 26, got %d", len(frames))
	}
	age, _ := frames[0]["age"].AsValue()
	if age.Uint.Lo != 30 {
		t.Fatalf("expected age 30, got %d", age.Uint.Lo)
	}
}

func TestFactPremiseCauseSlotFindsSupersedingAssertion(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	cells := cell.NewMemory()
	b := branch.Open("main", backend, cells)

	bob := artifact.NewEntity([]byte("bob"))
	ageAttr := artifact.NewAttribute("person/age")

	first := artifact.NewAssertion(artifact.Fact{Of: bob, Is: ageAttr, Value: artifact.UnsignedInt(30)}, nil)
	if _, err := b.Commit(ctx, "tester", []artifact.Instruction{first}); err != nil {
		t.Fatalf("commit 1: %v", err)
	}
	priorRef := first.Fact.Reference()

	second := artifact.NewAssertion(artifact.Fact{Of: bob, Is: ageAttr, Value: artifact.UnsignedInt(31)}, artifact.NewCause(priorRef))
	rev, err := b.Commit(ctx, "tester", []artifact.Instruction{second})
	if err != nil {
		t.Fatalf("commit 2: %v", err)
	}

	store := &Store{Archive: backend, Indexes: rev.Indexes}
	q := Query{Premises: []Premise{
		FactPremise{Entity: EntityVar("e"), Attribute: AttributeValue(ageAttr), Value: ValueVar("age"), Cause: CauseValue(priorRef)},
	}}

	frames, err := Evaluate(ctx, store, q)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 assertion superseding the prior one, got %d", len(frames))
	}
	age, _ := frames[0]["age"].AsValue()
	if age.Uint.Lo != 31 {
		t.Fatalf("expected superseding age 31, got %d", age.Uint.Lo)
	}
}

func TestConceptPremiseExpandsToMultipleFacts(t *testing.T) {
	ctx := context.Background()
	store, _ := setup(t)

	nameAttr := artifact.NewAttribute("person/name")
	ageAttr := artifact.NewAttribute("person/age")
	q := Query{Premises: []Premise{
		ConceptPremise{
			Entity: EntityVar("e"),
			Attributes: []ConceptAttribute{
				{Attribute: AttributeValue(nameAttr), Value: ValueLiteral(artifact.String("Bob"))},
				{Attribute: AttributeValue(ageAttr), Value: ValueVar("age")},
			},
		},
	}}

	frames, err := Evaluate(ctx, store, q)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 match for Bob, got %d", len(frames))
	}
	age, _ := frames[0]["age"].AsValue()
	if age.Uint.Lo != 25 {
		t.Fatalf("expected Bob's age 25, got %d", age.Uint.Lo)
	}
}
