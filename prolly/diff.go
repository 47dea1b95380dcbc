package prolly

import (
	"context"

	"github.com/dialog-db/dialog/key"
)

// Change is one entry present in one tree but not matching the other,
// produced by Differentiate.
type Change[A any] struct {
	Key   key.Key
	Value A
	// Removed is true when Key/Value came from the base tree and Key is
	// absent from the compared tree; false when it is new or changed in
	// the compared tree relative to the base.
	Removed bool
}

// Differentiate reports the entries that differ between base and
// other: entries present in other but not in base (or with a changed
// value) as additions, and entries present in base but absent from
// other as removals. Used by the branch runtime's three-way merge
// (spec.md §4.5; original_source/rust/dialog-artifacts/src/repository/branch/pull.rs).
func Differentiate[A any](ctx context.Context, base, other Tree[A], equal func(a, b A) bool) ([]Change[A], error) {
	baseEntries, err := base.All(ctx)
	if err != nil {
		return nil, err
	}
	otherEntries, err := other.All(ctx)
	if err != nil {
		return nil, err
	}

	baseByKey := make(map[key.Key]A, len(baseEntries))
	for _, e := range baseEntries {
		baseByKey[e.Key] = e.Value
	}
	otherByKey := make(map[key.Key]A, len(otherEntries))
	for _, e := range otherEntries {
		otherByKey[e.Key] = e.Value
	}

	var changes []Change[A]
	for _, e := range otherEntries {
		prior, existed := baseByKey[e.Key]
		if !existed || !equal(prior, e.Value) {
			changes = append(changes, Change[A]{Key: e.Key, Value: e.Value, Removed: false})
		}
	}
	for _, e := range baseEntries {
		if _, stillPresent := otherByKey[e.Key]; !stillPresent {
			changes = append(changes, Change[A]{Key: e.Key, Value: e.Value, Removed: true})
		}
	}
	return changes, nil
}

// Integrate applies a list of changes atop target, returning a new
// tree. Additions overwrite any existing value at the same key;
// removals delete the key if present.
func Integrate[A any](ctx context.Context, target Tree[A], changes []Change[A]) (Tree[A], error) {
	entries, err := target.All(ctx)
	if err != nil {
		return Tree[A]{}, err
	}
	byKey := make(map[key.Key]A, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e.Value
	}
	for _, c := range changes {
		if c.Removed {
			delete(byKey, c.Key)
		} else {
			byKey[c.Key] = c.Value
		}
	}
	out := make([]Entry[A], 0, len(byKey))
	for k, v := range byKey {
		out = append(out, Entry[A]{Key: k, Value: v})
	}
	return FromEntries(ctx, target.archive, target.codec, out)
}
