package prolly

import (
	"context"
	"math/rand"
	"testing"

	"github.com/dialog-db/dialog/archive"
	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/hash"
	"github.com/dialog-db/dialog/key"
)

func testKey(t *testing.T, seed string) key.Key {
	t.Helper()
	e := artifact.NewEntity([]byte(seed))
	a := artifact.NewAttribute("x")
	ref := hash.Sum([]byte(seed))
	return key.NewEAV(e, a, artifact.TypeString, ref).Bytes()
}

func TestBasicSetAndGet(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	tree := Empty[[]byte](backend, BytesCodec{})

	k1 := testKey(t, "one")
	k2 := testKey(t, "two")

	tree, err := tree.Set(ctx, k1, []byte("v1"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	tree, err = tree.Set(ctx, k2, []byte("v2"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	v, ok, err := tree.Get(ctx, k1)
	if err != nil || !ok || string(v) != "v1" {
		t.Fatalf("got %q, %v, %v", v, ok, err)
	}

	// Order independence: building the same set in the other order
	// must produce the same root.
	reversed := Empty[[]byte](backend, BytesCodec{})
	reversed, err = reversed.Set(ctx, k2, []byte("v2"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	reversed, err = reversed.Set(ctx, k1, []byte("v1"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if tree.Root != reversed.Root {
		t.Fatalf("expected order-independent root, got %s vs %s", tree.Root, reversed.Root)
	}
}

func TestBasicDelete(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	tree := Empty[[]byte](backend, BytesCodec{})

	k := testKey(t, "solo")
	tree, err := tree.Set(ctx, k, []byte("v"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if tree.IsEmpty() {
		t.Fatalf("expected non-empty tree after set")
	}

	tree, err = tree.Delete(ctx, k)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !tree.IsEmpty() {
		t.Fatalf("expected empty tree after deleting only entry")
	}

	_, ok, err := tree.Get(ctx, k)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Fatalf("expected key to be gone after delete")
	}
}

func TestFromCollectionParity(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()

	entries := make([]Entry[[]byte], 0, 50)
	incremental := Empty[[]byte](backend, BytesCodec{})
	for i := 0; i < 50; i++ {
		k := testKey(t, string(rune('a'+i%26))+string(rune(i)))
		v := []byte{byte(i)}
		entries = append(entries, Entry[[]byte]{Key: k, Value: v})
		var err error
		incremental, err = incremental.Set(ctx, k, v)
		if err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	bulk, err := FromEntries(ctx, backend, BytesCodec{}, entries)
	if err != nil {
		t.Fatalf("from entries: %v", err)
	}

	if incremental.Root != bulk.Root {
		t.Fatalf("expected from_collection parity: incremental %s, bulk %s", incremental.Root, bulk.Root)
	}
}

func TestLargerRandomTree(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	rng := rand.New(rand.NewSource(7))

	entries := make([]Entry[[]byte], 0, 500)
	seen := make(map[key.Key]bool)
	for len(entries) < 500 {
		seed := make([]byte, 8)
		rng.Read(seed)
		k := testKey(t, string(seed))
		if seen[k] {
			continue
		}
		seen[k] = true
		entries = append(entries, Entry[[]byte]{Key: k, Value: seed})
	}

	tree, err := FromEntries(ctx, backend, BytesCodec{}, entries)
	if err != nil {
		t.Fatalf("from entries: %v", err)
	}

	all, err := tree.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(all), len(entries))
	}
}

func TestRestoresTreeFromHash(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	tree := Empty[[]byte](backend, BytesCodec{})

	k := testKey(t, "persisted")
	tree, err := tree.Set(ctx, k, []byte("value"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	reloaded := New[[]byte](backend, BytesCodec{}, tree.Root)
	v, ok, err := reloaded.Get(ctx, k)
	if err != nil || !ok || string(v) != "value" {
		t.Fatalf("got %q, %v, %v", v, ok, err)
	}
}

func TestDifferentiateAndIntegrate(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	base := Empty[[]byte](backend, BytesCodec{})

	kA := testKey(t, "a")
	kB := testKey(t, "b")
	base, err := base.Set(ctx, kA, []byte("1"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	updated, err := base.Set(ctx, kB, []byte("2"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	updated, err = updated.Delete(ctx, kA)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	equal := func(a, b []byte) bool { return string(a) == string(b) }
	changes, err := Differentiate(ctx, base, updated, equal)
	if err != nil {
		t.Fatalf("differentiate: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}

	merged, err := Integrate(ctx, base, changes)
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	if merged.Root != updated.Root {
		t.Fatalf("expected integrate to reproduce updated root")
	}
}
