package query

import (
	"context"

	"github.com/dialog-db/dialog/archive"
	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/branch"
	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
	"github.com/dialog-db/dialog/key"
	"github.com/dialog-db/dialog/prolly"
)

// Store is the read-only view of one revision's three indexes a query
// evaluates against.
type Store struct {
	Archive archive.BlobArchive
	Indexes branch.Indexes
}

func (s *Store) tree(order key.Order) prolly.Tree[artifact.Datum] {
	root := s.Indexes.EAV
	switch order {
	case key.AEV:
		root = s.Indexes.AEV
	case key.VAE:
		root = s.Indexes.VAE
	}
	return prolly.New(s.Archive, branch.DatumCodec{}, root)
}

// Premise is one constraint in a conjunctive query: a fact lookup, a
// formula, a negation, or a rule application (spec.md §4.6's premise
// taxonomy).
type Premise interface {
	// Variables lists every variable this premise reads or binds.
	Variables() []Variable
	// Ready reports whether this premise has enough already-bound
	// slots (per bound) to run at all.
	Ready(bound map[Variable]bool) bool
	// Cost estimates the relative expense of running this premise
	// given bound, lower is cheaper. Only meaningful when Ready is true.
	Cost(bound map[Variable]bool) int
	// Stream evaluates the premise against frame, returning every
	// frame produced by extending it with this premise's bindings.
	Stream(ctx context.Context, store *Store, frame MatchFrame) ([]MatchFrame, error)
}

// FactPremise matches stored facts against an (entity, attribute,
// value) pattern, selecting whichever of the EAV/AEV/VAE indexes the
// pattern's bound slot makes cheapest (spec.md §4.6).
type FactPremise struct {
	Entity    EntityTerm
	Attribute AttributeTerm
	Value     ValueTerm
	Cause     CauseTerm
}

func (p FactPremise) Variables() []Variable {
	var vars []Variable
	if p.Entity.IsVar {
		vars = append(vars, p.Entity.Var)
	}
	if p.Attribute.IsVar {
		vars = append(vars, p.Attribute.Var)
	}
	if p.Value.IsVar {
		vars = append(vars, p.Value.Var)
	}
	if p.Cause.Bound && p.Cause.IsVar {
		vars = append(vars, p.Cause.Var)
	}
	return vars
}

func (p FactPremise) slotsBound(bound map[Variable]bool) (entityBound, attributeBound, valueBound bool) {
	entityBound = !p.Entity.IsVar || bound[p.Entity.Var]
	attributeBound = !p.Attribute.IsVar || bound[p.Attribute.Var]
	valueBound = !p.Value.IsVar || bound[p.Value.Var]
	return
}

// causeBound reports whether the premise's cause slot is already
// resolvable: vacuously true when the premise doesn't constrain cause
// at all.
func (p FactPremise) causeBound(bound map[Variable]bool) bool {
	if !p.Cause.Bound {
		return true
	}
	return !p.Cause.IsVar || bound[p.Cause.Var]
}

func (p FactPremise) Ready(bound map[Variable]bool) bool {
	e, a, v := p.slotsBound(bound)
	return e || a || v
}

// Cost weights from spec.md §4.6's cost model: a bound slot contributes
// nothing, an unbound one contributes its selectivity weight. The value
// slot carries the largest weight, so leaving it unbound costs the most.
const (
	baseCost             = 1
	unboundAttributeCost = 100
	unboundEntityCost    = 1000
	unboundValueCost     = 10000
	unboundCauseCost     = 10000
)

func (p FactPremise) Cost(bound map[Variable]bool) int {
	e, a, v := p.slotsBound(bound)
	c := p.causeBound(bound)
	cost := baseCost
	if !e {
		cost += unboundEntityCost
	}
	if !a {
		cost += unboundAttributeCost
	}
	if !v {
		cost += unboundValueCost
	}
	if !c {
		cost += unboundCauseCost
	}
	return cost
}

// chooseOrder selects which index gives the tightest range scan for
// the slots known at plan time: entity-bound prefers EAV, else
// attribute-bound prefers AEV, else value-bound prefers VAE.
func (p FactPremise) chooseOrder(entityBound, attributeBound, valueBound bool) key.Order {
	switch {
	case entityBound:
		return key.EAV
	case attributeBound:
		return key.AEV
	case valueBound:
		return key.VAE
	default:
		return key.EAV
	}
}

func (p FactPremise) Stream(ctx context.Context, store *Store, frame MatchFrame) ([]MatchFrame, error) {
	entity, entityOK := resolveEntity(p.Entity, frame)
	attribute, attributeOK := resolveAttribute(p.Attribute, frame)
	value, valueOK := resolveValue(p.Value, frame)
	cause, causeOK := resolveCause(p.Cause, frame)

	if !entityOK && !attributeOK && !valueOK {
		return nil, dialogerr.UnconstrainedSelector("fact premise has no bound entity, attribute or value")
	}

	order := p.chooseOrder(entityOK, attributeOK, valueOK)
	var ePtr *artifact.Entity
	var aPtr *artifact.Attribute
	var vtPtr *artifact.ValueDataType
	var refPtr *hash.Hash
	if entityOK {
		ePtr = &entity
	}
	if attributeOK {
		aPtr = &attribute
	}
	var vt artifact.ValueDataType
	var ref hash.Hash
	if valueOK {
		vt = value.DataType()
		ref = value.Reference()
		vtPtr = &vt
		refPtr = &ref
	}

	low := key.Prefix(order, ePtr, aPtr, vtPtr, refPtr, key.Min())
	high := key.Prefix(order, ePtr, aPtr, vtPtr, refPtr, key.Max())

	entries, err := store.tree(order).StreamRange(ctx, low, high)
	if err != nil {
		return nil, err
	}

	var results []MatchFrame
	for _, entry := range entries {
		if entry.Value.IsTombstone() {
			continue
		}
		view := key.FromRaw(entry.Key, order)
		candidateEntity := view.Entity()
		candidateAttribute := view.Attribute()
		candidateValue := entry.Value.Value

		if entityOK && candidateEntity != entity {
			continue
		}
		if attributeOK && candidateAttribute != attribute {
			continue
		}
		if valueOK && !candidateValue.Equal(value) {
			continue
		}
		if causeOK && !entry.Value.Cause.Contains(cause) {
			continue
		}

		base := frame.Clone()
		if p.Entity.IsVar && !entityOK {
			base[p.Entity.Var] = entityBinding(candidateEntity)
		}
		if p.Attribute.IsVar && !attributeOK {
			base[p.Attribute.Var] = attributeBinding(candidateAttribute)
		}
		if p.Value.IsVar && !valueOK {
			base[p.Value.Var] = valueBinding(candidateValue)
		}

		if p.Cause.Bound && p.Cause.IsVar && !causeOK {
			for member := range entry.Value.Cause {
				next := base.Clone()
				next[p.Cause.Var] = causeBinding(member)
				results = append(results, next)
			}
			continue
		}
		results = append(results, base)
	}
	return results, nil
}

