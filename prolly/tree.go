// Package prolly implements the content-addressed, history-independent
// search tree described in spec.md §4.3. Node boundaries are derived
// deterministically from the hash of each entry's key, so two trees
// built from the same set of entries — regardless of insertion order —
// always converge on the same root hash and the same set of node
// blobs.
package prolly

import (
	"context"
	"sort"

	"github.com/dialog-db/dialog/archive"
	"github.com/dialog-db/dialog/codec"
	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
	"github.com/dialog-db/dialog/key"
)

// Codec converts a tree's stored value type to and from bytes for
// persistence inside leaf nodes.
type Codec[A any] interface {
	Encode(A) []byte
	Decode([]byte) (A, error)
}

// Entry is one key/value pair held by a Tree.
type Entry[A any] struct {
	Key   key.Key
	Value A
}

// Tree is an immutable, content-addressed prolly tree over values of
// type A. The zero-value Root (hash.Zero) denotes an empty tree.
type Tree[A any] struct {
	Root    hash.Hash
	archive archive.BlobArchive
	codec   Codec[A]
}

// maxGroupSize bounds the worst case where a long run of keys never
// hits a rank boundary; it keeps any single node's byte size finite
// without affecting the expected-case fan-out the rank function
// produces.
const maxGroupSize = 1024

// New wraps an existing root hash as a Tree handle. Pass hash.Zero for
// an empty tree.
func New[A any](backend archive.BlobArchive, c Codec[A], root hash.Hash) Tree[A] {
	return Tree[A]{Root: root, archive: backend, codec: c}
}

// Empty constructs an empty tree over backend.
func Empty[A any](backend archive.BlobArchive, c Codec[A]) Tree[A] {
	return Tree[A]{Root: hash.Zero, archive: backend, codec: c}
}

// IsEmpty reports whether the tree holds no entries.
func (t Tree[A]) IsEmpty() bool {
	return t.Root.IsZero()
}

// Get looks up the value stored under k.
func (t Tree[A]) Get(ctx context.Context, k key.Key) (A, bool, error) {
	var zero A
	if t.IsEmpty() {
		return zero, false, nil
	}
	entries, _, err := t.rangeFrom(ctx, t.Root, k, k)
	if err != nil {
		return zero, false, err
	}
	for _, e := range entries {
		if e.Key == k {
			return e.Value, true, nil
		}
	}
	return zero, false, nil
}

// StreamRange returns every entry whose key falls within [start, end],
// pruning subtrees the index links rule out entirely (spec.md §4.3,
// "stream_range").
func (t Tree[A]) StreamRange(ctx context.Context, start, end key.Key) ([]Entry[A], error) {
	if t.IsEmpty() || key.Compare(start, end) > 0 {
		return nil, nil
	}
	entries, _, err := t.rangeFrom(ctx, t.Root, start, end)
	return entries, err
}

// All returns every entry in the tree in key order.
func (t Tree[A]) All(ctx context.Context) ([]Entry[A], error) {
	return t.StreamRange(ctx, key.Min(), key.Max())
}

// rangeFrom walks the node at nodeHash, returning entries overlapping
// [start, end] and the node's own maximum key. The current callers
// ignore the maximum key; index traversal decides which children to
// visit from the link boundaries alone.
func (t Tree[A]) rangeFrom(ctx context.Context, nodeHash hash.Hash, start, end key.Key) ([]Entry[A], key.Key, error) {
	raw, err := t.archive.Get(ctx, nodeHash)
	if err != nil {
		return nil, key.Key{}, dialogerr.Storage("reading tree node", err)
	}
	kind, err := codec.PeekKind(raw)
	if err != nil {
		return nil, key.Key{}, err
	}

	switch kind {
	case codec.Leaf:
		rows, err := codec.DecodeLeaf(raw)
		if err != nil {
			return nil, key.Key{}, err
		}
		var out []Entry[A]
		var max key.Key
		for _, row := range rows {
			max = row.Key
			if key.Compare(row.Key, start) < 0 || key.Compare(row.Key, end) > 0 {
				continue
			}
			value, err := t.codec.Decode(row.Value)
			if err != nil {
				return nil, key.Key{}, err
			}
			out = append(out, Entry[A]{Key: row.Key, Value: value})
		}
		return out, max, nil

	case codec.Index:
		links, err := codec.DecodeIndex(raw)
		if err != nil {
			return nil, key.Key{}, err
		}
		var out []Entry[A]
		prev := key.Min()
		for _, link := range links {
			if key.Compare(link.Boundary, start) >= 0 && key.Compare(prev, end) <= 0 {
				childEntries, _, err := t.rangeFrom(ctx, link.Child, start, end)
				if err != nil {
					return nil, key.Key{}, err
				}
				out = append(out, childEntries...)
			}
			prev = link.Boundary
			if key.Compare(prev, end) > 0 {
				break
			}
		}
		var max key.Key
		if len(links) > 0 {
			max = links[len(links)-1].Boundary
		}
		return out, max, nil

	default:
		return nil, key.Key{}, dialogerr.InvalidValue("unknown node kind")
	}
}

// Set returns a new Tree with k bound to v, leaving t untouched.
func (t Tree[A]) Set(ctx context.Context, k key.Key, v A) (Tree[A], error) {
	entries, err := t.All(ctx)
	if err != nil {
		return Tree[A]{}, err
	}
	replaced := false
	for i := range entries {
		if entries[i].Key == k {
			entries[i].Value = v
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, Entry[A]{Key: k, Value: v})
	}
	return FromEntries(ctx, t.archive, t.codec, entries)
}

// Delete returns a new Tree with k unbound, leaving t untouched. It is
// a no-op if k is absent.
func (t Tree[A]) Delete(ctx context.Context, k key.Key) (Tree[A], error) {
	entries, err := t.All(ctx)
	if err != nil {
		return Tree[A]{}, err
	}
	out := entries[:0:0]
	for _, e := range entries {
		if e.Key != k {
			out = append(out, e)
		}
	}
	return FromEntries(ctx, t.archive, t.codec, out)
}

// FromEntries builds a Tree from an arbitrary (possibly unsorted,
// possibly duplicate-keyed) list of entries. Later entries in the
// slice win over earlier ones with the same key, matching the
// spec's "from_collection parity" property: building from a set always
// produces the same root as repeated Set calls, regardless of order.
func FromEntries[A any](ctx context.Context, backend archive.BlobArchive, c Codec[A], entries []Entry[A]) (Tree[A], error) {
	dedup := make(map[key.Key]A, len(entries))
	order := make([]key.Key, 0, len(entries))
	for _, e := range entries {
		if _, seen := dedup[e.Key]; !seen {
			order = append(order, e.Key)
		}
		dedup[e.Key] = e.Value
	}
	sort.Slice(order, func(i, j int) bool {
		return key.Compare(order[i], order[j]) < 0
	})

	sorted := make([]Entry[A], len(order))
	for i, k := range order {
		sorted[i] = Entry[A]{Key: k, Value: dedup[k]}
	}

	if len(sorted) == 0 {
		return Empty(backend, c), nil
	}

	leafLinks := make([]codec.Link, 0)
	group := make([]codec.Entry, 0, 64)
	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		raw, err := codec.EncodeLeaf(group)
		if err != nil {
			return err
		}
		nodeHash, err := backend.Put(ctx, raw)
		if err != nil {
			return dialogerr.Storage("writing leaf node", err)
		}
		leafLinks = append(leafLinks, codec.Link{Boundary: group[len(group)-1].Key, Child: nodeHash})
		group = group[:0]
		return nil
	}

	for _, e := range sorted {
		group = append(group, codec.Entry{Key: e.Key, Value: c.Encode(e.Value)})
		if len(group) >= maxGroupSize || rank(e.Key) >= 1 {
			if err := flush(); err != nil {
				return Tree[A]{}, err
			}
		}
	}
	if err := flush(); err != nil {
		return Tree[A]{}, err
	}

	root, err := buildIndexLevels(ctx, backend, leafLinks, 1)
	if err != nil {
		return Tree[A]{}, err
	}
	return Tree[A]{Root: root, archive: backend, codec: c}, nil
}

// buildIndexLevels folds a list of links into successive index levels
// until a single root hash remains, closing each level's groups on the
// same rank-threshold rule as leaves, scaled by height.
func buildIndexLevels(ctx context.Context, backend archive.BlobArchive, links []codec.Link, height int) (hash.Hash, error) {
	if len(links) == 1 {
		return links[0].Child, nil
	}

	next := make([]codec.Link, 0, len(links)/4+1)
	group := make([]codec.Link, 0, 64)
	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		raw, err := codec.EncodeIndex(group)
		if err != nil {
			return err
		}
		nodeHash, err := backend.Put(ctx, raw)
		if err != nil {
			return dialogerr.Storage("writing index node", err)
		}
		next = append(next, codec.Link{Boundary: group[len(group)-1].Boundary, Child: nodeHash})
		group = group[:0]
		return nil
	}

	threshold := height + 1
	for _, link := range links {
		group = append(group, link)
		if len(group) >= maxGroupSize || rank(link.Boundary) >= threshold {
			if err := flush(); err != nil {
				return hash.Zero, err
			}
		}
	}
	if err := flush(); err != nil {
		return hash.Zero, err
	}

	return buildIndexLevels(ctx, backend, next, height+1)
}
