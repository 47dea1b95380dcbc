// Package query implements the conjunctive query planner and
// match-frame evaluator described in spec.md §4.6 and §4.7: a query is
// a set of premises (facts, formulas, negations) joined over shared
// variables; the planner orders premises cheapest-next by which slots
// are already bound, and the evaluator streams candidate bindings
// through each premise in turn.
package query

import (
	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/hash"
)

// Variable names an unbound slot shared across premises in a query.
type Variable string

// BindingKind tags which of the three slot kinds a Binding carries.
type BindingKind uint8

const (
	BindEntity BindingKind = iota
	BindAttribute
	BindValue
	BindCause
)

// Binding is the value a Variable resolves to once a premise has
// matched it against a stored fact.
type Binding struct {
	Kind      BindingKind
	Entity    artifact.Entity
	Attribute artifact.Attribute
	Value     artifact.Value
	Cause     hash.Hash
}

func entityBinding(e artifact.Entity) Binding { return Binding{Kind: BindEntity, Entity: e} }
func attributeBinding(a artifact.Attribute) Binding { return Binding{Kind: BindAttribute, Attribute: a} }
func valueBinding(v artifact.Value) Binding { return Binding{Kind: BindValue, Value: v} }
func causeBinding(h hash.Hash) Binding { return Binding{Kind: BindCause, Cause: h} }

// AsEntity coerces a binding to an Entity. Per spec.md §4.7's
// unification matrix (original_source/rust/x-query/src/query/match.rs),
// an entity-typed Value coerces to Entity; an Attribute never does.
func (b Binding) AsEntity() (artifact.Entity, bool) {
	switch b.Kind {
	case BindEntity:
		return b.Entity, true
	case BindValue:
		if b.Value.Kind == artifact.TypeEntity {
			return b.Value.Ent, true
		}
	}
	return artifact.Entity{}, false
}

// AsAttribute coerces a binding to an Attribute. Attributes only
// unify with attributes.
func (b Binding) AsAttribute() (artifact.Attribute, bool) {
	if b.Kind == BindAttribute {
		return b.Attribute, true
	}
	return artifact.Attribute{}, false
}

// AsValue coerces a binding to a Value. An Entity coerces to a
// TypeEntity Value.
func (b Binding) AsValue() (artifact.Value, bool) {
	switch b.Kind {
	case BindValue:
		return b.Value, true
	case BindEntity:
		return artifact.OfEntity(b.Entity), true
	}
	return artifact.Value{}, false
}

// MatchFrame is an immutable set of variable bindings accumulated
// while a query's premises are evaluated in planned order.
type MatchFrame map[Variable]Binding

// Clone returns a shallow copy of the frame, used before a premise
// adds its own bindings so sibling branches in Or don't share state.
func (f MatchFrame) Clone() MatchFrame {
	out := make(MatchFrame, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// EntityTerm is a fact premise's entity slot: either a literal Entity
// or a Variable to be bound from it.
type EntityTerm struct {
	Var     Variable
	Literal artifact.Entity
	IsVar   bool
}

func EntityVar(v Variable) EntityTerm          { return EntityTerm{Var: v, IsVar: true} }
func EntityValue(e artifact.Entity) EntityTerm { return EntityTerm{Literal: e} }

// AttributeTerm is a fact premise's attribute slot.
type AttributeTerm struct {
	Var     Variable
	Literal artifact.Attribute
	IsVar   bool
}

func AttributeVar(v Variable) AttributeTerm             { return AttributeTerm{Var: v, IsVar: true} }
func AttributeValue(a artifact.Attribute) AttributeTerm { return AttributeTerm{Literal: a} }

// ValueTerm is a fact premise's value slot.
type ValueTerm struct {
	Var     Variable
	Literal artifact.Value
	IsVar   bool
}

func ValueVar(v Variable) ValueTerm           { return ValueTerm{Var: v, IsVar: true} }
func ValueLiteral(v artifact.Value) ValueTerm { return ValueTerm{Literal: v} }

// CauseTerm is a fact premise's optional cause slot (spec.md §4.6's
// "(the, of, is, cause?)" pattern): the content address of a prior
// assertion this fact supersedes. Bound is false for a premise that
// doesn't constrain or bind cause at all, the default zero value.
type CauseTerm struct {
	Var     Variable
	Literal hash.Hash
	IsVar   bool
	Bound   bool
}

func CauseVar(v Variable) CauseTerm    { return CauseTerm{Var: v, IsVar: true, Bound: true} }
func CauseValue(h hash.Hash) CauseTerm { return CauseTerm{Literal: h, Bound: true} }

// resolveEntity looks up term's bound value: its literal if not a
// variable, or the frame's binding for its variable. ok is false if
// the term is an unbound variable.
func resolveEntity(term EntityTerm, frame MatchFrame) (artifact.Entity, bool) {
	if !term.IsVar {
		return term.Literal, true
	}
	b, bound := frame[term.Var]
	if !bound {
		return artifact.Entity{}, false
	}
	return b.AsEntity()
}

func resolveAttribute(term AttributeTerm, frame MatchFrame) (artifact.Attribute, bool) {
	if !term.IsVar {
		return term.Literal, true
	}
	b, bound := frame[term.Var]
	if !bound {
		return artifact.Attribute{}, false
	}
	return b.AsAttribute()
}

func resolveValue(term ValueTerm, frame MatchFrame) (artifact.Value, bool) {
	if !term.IsVar {
		return term.Literal, true
	}
	b, bound := frame[term.Var]
	if !bound {
		return artifact.Value{}, false
	}
	return b.AsValue()
}

// AsHash coerces a binding to a cause hash. Only a cause-kind binding
// carries one.
func (b Binding) AsHash() (hash.Hash, bool) {
	if b.Kind == BindCause {
		return b.Cause, true
	}
	return hash.Hash{}, false
}

// resolveCause looks up term's bound cause hash the same way
// resolveEntity/resolveAttribute/resolveValue do. ok is false both for
// an unbound variable and for a term that doesn't constrain cause at
// all (Bound false).
func resolveCause(term CauseTerm, frame MatchFrame) (hash.Hash, bool) {
	if !term.Bound {
		return hash.Hash{}, false
	}
	if !term.IsVar {
		return term.Literal, true
	}
	b, bound := frame[term.Var]
	if !bound {
		return hash.Hash{}, false
	}
	return b.AsHash()
}
