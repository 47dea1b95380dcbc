package archive

import (
	"context"
	"testing"
)

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	digest, err := m.Put(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := m.Get(ctx, digest)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	has, err := m.Has(ctx, digest)
	if err != nil || !has {
		t.Fatalf("expected Has to report true, got %v, %v", has, err)
	}
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	digest, _ := m.Put(ctx, []byte("x"))
	digest[0] ^= 0xff

	_, err := m.Get(ctx, digest)
	if !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCachedServesFromCache(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory()
	cached, err := NewCached(backend, 16)
	if err != nil {
		t.Fatalf("new cached: %v", err)
	}

	digest, err := cached.Put(ctx, []byte("cached value"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := cached.Get(ctx, digest)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "cached value" {
		t.Fatalf("got %q", got)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory()
	compressed, err := NewCompressed(backend)
	if err != nil {
		t.Fatalf("new compressed: %v", err)
	}

	payload := []byte("some fairly compressible payload payload payload payload")
	digest, err := compressed.Put(ctx, payload)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := compressed.Get(ctx, digest)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("round trip mismatch")
	}
}

func TestSingleFlightDelegates(t *testing.T) {
	ctx := context.Background()
	backend := NewMemory()
	sf := NewSingleFlight(backend)

	digest, err := sf.Put(ctx, []byte("coalesced"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := sf.Get(ctx, digest)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "coalesced" {
		t.Fatalf("got %q", got)
	}
}
