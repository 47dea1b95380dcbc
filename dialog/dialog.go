// Package dialog is the engine surface spec.md §6 describes: open a
// named branch against a blob archive and CAS cell, commit instruction
// streams to it, and run conjunctive queries or simple selectors over
// its current revision.
package dialog

import (
	"context"

	"github.com/dialog-db/dialog/archive"
	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/branch"
	"github.com/dialog-db/dialog/cell"
	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
	"github.com/dialog-db/dialog/key"
	"github.com/dialog-db/dialog/prolly"
	"github.com/dialog-db/dialog/query"
)

// Artifacts is the high-level fact store handle spec.md §6 item 1
// describes: a named branch plus the archive it reads and writes
// against.
type Artifacts struct {
	Name    string
	archive archive.BlobArchive
	branch  *branch.Branch
}

// Open attaches an Artifacts store to the named branch of backend,
// publishing state through cells.
func Open(name string, backend archive.BlobArchive, cells cell.CASCell) *Artifacts {
	return &Artifacts{
		Name:    name,
		archive: backend,
		branch:  branch.Open(name, backend, cells),
	}
}

// Commit applies instructions as one transaction and returns the
// resulting revision's content address.
func (a *Artifacts) Commit(ctx context.Context, issuer string, instructions []artifact.Instruction) (hash.Hash, error) {
	rev, err := a.branch.Commit(ctx, issuer, instructions)
	if err != nil {
		return hash.Hash{}, err
	}
	return rev.Reference(), nil
}

// Revision returns the content address of the store's current
// revision, or hash.Zero if the branch has never been committed to.
func (a *Artifacts) Revision(ctx context.Context) (hash.Hash, error) {
	rev, err := a.branch.Current(ctx)
	if err != nil {
		return hash.Hash{}, err
	}
	return rev.Reference(), nil
}

// Pull merges backend's state for the named upstream branch into a,
// returning whether a's state changed as a result.
func (a *Artifacts) Pull(ctx context.Context, upstream *Artifacts) (bool, error) {
	return a.branch.Pull(ctx, upstream.branch)
}

// ArtifactSelector is a constant pattern over a fact's entity,
// attribute, and value slots (spec.md §6 item 2: "constraints on one
// or more of the, of, is, value_reference"). A nil field is
// unconstrained; selecting on it produces a variable binding instead
// of filtering.
type ArtifactSelector struct {
	Of    *artifact.Entity
	Is    *artifact.Attribute
	Value *artifact.Value
}

// selectorOfVar, selectorIsVar and selectorValueVar are the variables
// a compiled selector binds for its unconstrained slots, so Select can
// read the matched fact back out of each resulting MatchFrame.
const (
	selectorOfVar    query.Variable = "__of"
	selectorIsVar    query.Variable = "__is"
	selectorValueVar query.Variable = "__value"
)

// compile lowers a selector into the single FactPremise it describes.
func (s ArtifactSelector) compile() query.FactPremise {
	entityTerm := query.EntityVar(selectorOfVar)
	if s.Of != nil {
		entityTerm = query.EntityValue(*s.Of)
	}
	attributeTerm := query.AttributeVar(selectorIsVar)
	if s.Is != nil {
		attributeTerm = query.AttributeValue(*s.Is)
	}
	valueTerm := query.ValueVar(selectorValueVar)
	if s.Value != nil {
		valueTerm = query.ValueLiteral(*s.Value)
	}
	return query.FactPremise{Entity: entityTerm, Attribute: attributeTerm, Value: valueTerm}
}

// Select runs selector against the store's current revision and
// returns every matching Fact (spec.md §6 item 1, "select").
func (a *Artifacts) Select(ctx context.Context, selector ArtifactSelector) ([]artifact.Fact, error) {
	rev, err := a.branch.Current(ctx)
	if err != nil {
		return nil, err
	}
	store := &query.Store{Archive: a.archive, Indexes: rev.Indexes}

	premise := selector.compile()
	frames, err := query.Evaluate(ctx, store, query.Query{Premises: []query.Premise{premise}})
	if err != nil {
		return nil, err
	}

	facts := make([]artifact.Fact, 0, len(frames))
	for _, frame := range frames {
		facts = append(facts, resolveFact(frame, selector))
	}
	return facts, nil
}

func resolveFact(frame query.MatchFrame, selector ArtifactSelector) artifact.Fact {
	fact := artifact.Fact{}
	if selector.Of != nil {
		fact.Of = *selector.Of
	} else if b, ok := frame[selectorOfVar]; ok {
		if e, ok := b.AsEntity(); ok {
			fact.Of = e
		}
	}
	if selector.Is != nil {
		fact.Is = *selector.Is
	} else if b, ok := frame[selectorIsVar]; ok {
		if at, ok := b.AsAttribute(); ok {
			fact.Is = at
		}
	}
	if selector.Value != nil {
		fact.Value = *selector.Value
	} else if b, ok := frame[selectorValueVar]; ok {
		if v, ok := b.AsValue(); ok {
			fact.Value = v
		}
	}
	return fact
}

// treeFor exposes the tree backing one of the current revision's three
// key orderings.
func (a *Artifacts) treeFor(ctx context.Context, order key.Order) (prolly.Tree[artifact.Datum], error) {
	rev, err := a.branch.Current(ctx)
	if err != nil {
		return prolly.Tree[artifact.Datum]{}, err
	}
	root := rev.Indexes.EAV
	switch order {
	case key.AEV:
		root = rev.Indexes.AEV
	case key.VAE:
		root = rev.Indexes.VAE
	}
	return prolly.New(a.archive, branch.DatumCodec{}, root), nil
}

// All returns every live (non-tombstone) fact in the store's current
// EAV index, for small-scale inspection and debugging.
func (a *Artifacts) All(ctx context.Context) ([]artifact.Fact, error) {
	tree, err := a.treeFor(ctx, key.EAV)
	if err != nil {
		return nil, err
	}
	entries, err := tree.All(ctx)
	if err != nil {
		return nil, dialogerr.Storage("reading all entries", err)
	}
	facts := make([]artifact.Fact, 0, len(entries))
	for _, e := range entries {
		if e.Value.IsTombstone() {
			continue
		}
		view := key.FromRaw(e.Key, key.EAV)
		facts = append(facts, artifact.Fact{Of: view.Entity(), Is: view.Attribute(), Value: e.Value.Value})
	}
	return facts, nil
}
