// Package artifact defines the data model shared by every other
// package: entities, attributes, values, facts, the causal metadata
// that links one assertion to the ones it supersedes, and the
// instructions a commit applies to a branch (spec.md §3).
package artifact

import (
	"sort"

	"github.com/dialog-db/dialog/hash"
)

// Fact is a single (entity, attribute, value) triple: "this entity's
// attribute is this value" (spec.md §3, "Fact").
type Fact struct {
	Of Entity
	Is Attribute
	// Value is the fact's value, or the zero Value if this is a
	// retraction with no replacement (the attribute is unset for Of).
	Value Value
}

// Reference computes the Hash that identifies this fact's value slot
// in the fact's own Key (the value-reference key part).
func (f Fact) Reference() hash.Hash {
	return f.Value.Reference()
}

// Cause is the set of prior assertion references an Instruction
// supersedes. A commit deletes every EAV entry whose value reference
// appears in Cause before inserting its own entry (spec.md §4.5).
type Cause map[hash.Hash]struct{}

// NewCause builds a Cause set from a list of references.
func NewCause(refs ...hash.Hash) Cause {
	c := make(Cause, len(refs))
	for _, r := range refs {
		c[r] = struct{}{}
	}
	return c
}

// Contains reports whether r is in the cause set.
func (c Cause) Contains(r hash.Hash) bool {
	_, ok := c[r]
	return ok
}

// Add inserts r into the cause set.
func (c Cause) Add(r hash.Hash) {
	c[r] = struct{}{}
}

// Sorted returns the cause set's members in ascending byte order, the
// canonical order used when a Datum's cause set is encoded for storage.
func (c Cause) Sorted() []hash.Hash {
	out := make([]hash.Hash, 0, len(c))
	for r := range c {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessHash(out[i], out[j])
	})
	return out
}

func lessHash(a, b hash.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// InstructionKind distinguishes an assertion from a retraction.
type InstructionKind uint8

const (
	// Assert records that a Fact now holds.
	Assert InstructionKind = iota
	// Retract records that a previously-asserted Fact no longer holds.
	Retract
)

func (k InstructionKind) String() string {
	if k == Retract {
		return "Retract"
	}
	return "Assert"
}

// Instruction is one unit of change a commit applies: assert or
// retract a Fact, optionally superseding prior assertions named in
// Cause (spec.md §3, "Instruction").
type Instruction struct {
	Kind  InstructionKind
	Fact  Fact
	Cause Cause
}

// NewAssertion builds an Assert instruction.
func NewAssertion(fact Fact, cause Cause) Instruction {
	if cause == nil {
		cause = Cause{}
	}
	return Instruction{Kind: Assert, Fact: fact, Cause: cause}
}

// NewRetraction builds a Retract instruction. Its Fact carries the
// attribute/entity being cleared; Value is typically the zero Value.
func NewRetraction(of Entity, attr Attribute, cause Cause) Instruction {
	if cause == nil {
		cause = Cause{}
	}
	return Instruction{Kind: Retract, Fact: Fact{Of: of, Is: attr}, Cause: cause}
}

// Datum is the canonical, hashable encoding of an Instruction as it is
// written into the EAV/AEV/VAE trees: the fact's value plus the
// instruction kind (entity and attribute live in the key),
// addressed by the Blake3 digest of its value bytes (spec.md §3,
// "State/Datum"). Tombstones (retractions) carry no value bytes. Cause
// records which prior assertions, if any, this datum supersedes,
// letting a query ask "what superseded X" (spec.md §4.6's fact premise
// cause slot).
type Datum struct {
	Kind  InstructionKind
	Value Value
	Cause Cause
}

// DatumOf projects an Instruction down to the Datum stored under its
// fact's key.
func DatumOf(instr Instruction) Datum {
	return Datum{Kind: instr.Kind, Value: instr.Fact.Value, Cause: instr.Cause}
}

// IsTombstone reports whether this datum represents a retraction.
func (d Datum) IsTombstone() bool {
	return d.Kind == Retract
}
