package dialog

import (
	"context"
	"testing"

	"github.com/dialog-db/dialog/archive"
	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/cell"
)

func TestCommitAndSelect(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	store := Open("main", backend, cell.NewMemory())

	alice := artifact.NewEntity([]byte("alice"))
	nameAttr := artifact.NewAttribute("person/name")

	if _, err := store.Commit(ctx, "tester", []artifact.Instruction{
		artifact.NewAssertion(artifact.Fact{Of: alice, Is: nameAttr, Value: artifact.String("Alice")}, nil),
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	facts, err := store.Select(ctx, ArtifactSelector{Of: &alice})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	if facts[0].Value.Str != "Alice" {
		t.Fatalf("expected value Alice, got %q", facts[0].Value.Str)
	}
}

func TestRevisionAdvancesAfterCommit(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	store := Open("main", backend, cell.NewMemory())

	before, err := store.Revision(ctx)
	if err != nil {
		t.Fatalf("revision: %v", err)
	}

	e := artifact.NewEntity([]byte("bob"))
	a := artifact.NewAttribute("person/age")
	if _, err := store.Commit(ctx, "tester", []artifact.Instruction{
		artifact.NewAssertion(artifact.Fact{Of: e, Is: a, Value: artifact.UnsignedInt(40)}, nil),
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	after, err := store.Revision(ctx)
	if err != nil {
		t.Fatalf("revision: %v", err)
	}
	if before == after {
		t.Fatalf("expected revision to change after commit")
	}
}

func TestAllListsLiveFacts(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	store := Open("main", backend, cell.NewMemory())

	e := artifact.NewEntity([]byte("carol"))
	a := artifact.NewAttribute("person/name")
	if _, err := store.Commit(ctx, "tester", []artifact.Instruction{
		artifact.NewAssertion(artifact.Fact{Of: e, Is: a, Value: artifact.String("Carol")}, nil),
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	facts, err := store.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 live fact, got %d", len(facts))
	}
}

func TestPullMergesArtifactsStores(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	upstream := Open("main", backend, cell.NewMemory())
	local := Open("local", backend, cell.NewMemory())

	e := artifact.NewEntity([]byte("dave"))
	a := artifact.NewAttribute("person/name")
	if _, err := upstream.Commit(ctx, "tester", []artifact.Instruction{
		artifact.NewAssertion(artifact.Fact{Of: e, Is: a, Value: artifact.String("Dave")}, nil),
	}); err != nil {
		t.Fatalf("upstream commit: %v", err)
	}

	changed, err := local.Pull(ctx, upstream)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if !changed {
		t.Fatalf("expected pull to adopt upstream state")
	}

	facts, err := local.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact after pull, got %d", len(facts))
	}
}
