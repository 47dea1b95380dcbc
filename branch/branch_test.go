package branch

import (
	"context"
	"testing"

	"github.com/dialog-db/dialog/archive"
	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/cell"
	"github.com/dialog-db/dialog/prolly"
)

func fact(entitySeed, attr, value string) artifact.Instruction {
	e := artifact.NewEntity([]byte(entitySeed))
	a := artifact.NewAttribute(attr)
	return artifact.NewAssertion(artifact.Fact{Of: e, Is: a, Value: artifact.String(value)}, nil)
}

func TestCommitAppliesInstructions(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	cells := cell.NewMemory()
	b := Open("main", backend, cells)

	instr := fact("alice", "person/name", "Alice")
	rev, err := b.Commit(ctx, "tester", []artifact.Instruction{instr})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if rev.Indexes.EAV.IsZero() {
		t.Fatalf("expected non-empty EAV root after commit")
	}
	if rev.Moment != 1 {
		t.Fatalf("expected first commit to have moment 1, got %d", rev.Moment)
	}

	current, err := b.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.Indexes != rev.Indexes {
		t.Fatalf("expected published revision to match commit result")
	}
}

func TestCommitSupersedesViaCause(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	cells := cell.NewMemory()
	b := Open("main", backend, cells)

	e := artifact.NewEntity([]byte("bob"))
	a := artifact.NewAttribute("person/age")

	first := artifact.NewAssertion(artifact.Fact{Of: e, Is: a, Value: artifact.UnsignedInt(30)}, nil)
	rev1, err := b.Commit(ctx, "tester", []artifact.Instruction{first})
	if err != nil {
		t.Fatalf("commit 1: %v", err)
	}

	priorRef := first.Fact.Reference()
	second := artifact.NewAssertion(artifact.Fact{Of: e, Is: a, Value: artifact.UnsignedInt(31)}, artifact.NewCause(priorRef))
	rev2, err := b.Commit(ctx, "tester", []artifact.Instruction{second})
	if err != nil {
		t.Fatalf("commit 2: %v", err)
	}
	if rev1.Indexes.EAV == rev2.Indexes.EAV {
		t.Fatalf("expected tree to change after superseding commit")
	}
}

func TestCommitBumpsPeriodOnIssuerChange(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	cells := cell.NewMemory()
	b := Open("main", backend, cells)

	rev1, err := b.Commit(ctx, "alice", []artifact.Instruction{fact("alice", "person/name", "Alice")})
	if err != nil {
		t.Fatalf("commit 1: %v", err)
	}
	if rev1.Period != 0 || rev1.Moment != 1 {
		t.Fatalf("expected first commit to be period 0 moment 1, got period %d moment %d", rev1.Period, rev1.Moment)
	}

	rev2, err := b.Commit(ctx, "alice", []artifact.Instruction{fact("bob", "person/name", "Bob")})
	if err != nil {
		t.Fatalf("commit 2: %v", err)
	}
	if rev2.Period != 0 || rev2.Moment != 2 {
		t.Fatalf("expected same-issuer commit to advance moment within period, got period %d moment %d", rev2.Period, rev2.Moment)
	}

	rev3, err := b.Commit(ctx, "carol", []artifact.Instruction{fact("carol", "person/name", "Carol")})
	if err != nil {
		t.Fatalf("commit 3: %v", err)
	}
	if rev3.Period != 1 || rev3.Moment != 0 {
		t.Fatalf("expected issuer change to bump period and reset moment, got period %d moment %d", rev3.Period, rev3.Moment)
	}
}

func TestPullNoOpWhenUpToDate(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	cells := cell.NewMemory()
	upstream := Open("main", backend, cells)
	local := Open("local", backend, cell.NewMemory())

	if _, err := upstream.Commit(ctx, "tester", []artifact.Instruction{fact("carol", "person/name", "Carol")}); err != nil {
		t.Fatalf("upstream commit: %v", err)
	}

	changed, err := local.Pull(ctx, upstream)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if !changed {
		t.Fatalf("expected first pull to adopt upstream")
	}

	changedAgain, err := local.Pull(ctx, upstream)
	if err != nil {
		t.Fatalf("second pull: %v", err)
	}
	if changedAgain {
		t.Fatalf("expected second pull to be a no-op")
	}
}

func TestPullMergesLocalAndUpstreamChanges(t *testing.T) {
	ctx := context.Background()
	backend := archive.NewMemory()
	upstreamCell := cell.NewMemory()
	localCell := cell.NewMemory()
	upstream := Open("main", backend, upstreamCell)
	local := Open("local", backend, localCell)

	if _, err := upstream.Commit(ctx, "tester", []artifact.Instruction{fact("dave", "person/name", "Dave")}); err != nil {
		t.Fatalf("upstream commit: %v", err)
	}
	if _, err := local.Pull(ctx, upstream); err != nil {
		t.Fatalf("initial pull: %v", err)
	}

	if _, err := local.Commit(ctx, "tester", []artifact.Instruction{fact("erin", "person/name", "Erin")}); err != nil {
		t.Fatalf("local commit: %v", err)
	}
	if _, err := upstream.Commit(ctx, "tester", []artifact.Instruction{fact("frank", "person/name", "Frank")}); err != nil {
		t.Fatalf("upstream commit 2: %v", err)
	}

	changed, err := local.Pull(ctx, upstream)
	if err != nil {
		t.Fatalf("merge pull: %v", err)
	}
	if !changed {
		t.Fatalf("expected merge pull to change local state")
	}

	rev, err := local.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}

	tree := prolly.New(backend, DatumCodec{}, rev.Indexes.EAV)
	entries, err := tree.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 merged facts (dave, erin, frank), got %d", len(entries))
	}

	if rev.Moment != 0 {
		t.Fatalf("expected merge revision to reset moment to 0, got %d", rev.Moment)
	}
	if rev.Period != 1 {
		t.Fatalf("expected merge revision to bump period to 1, got %d", rev.Period)
	}
	upstreamRev, err := upstream.Current(ctx)
	if err != nil {
		t.Fatalf("upstream current: %v", err)
	}
	if _, ok := rev.Cause[upstreamRev.Reference()]; !ok || len(rev.Cause) != 1 {
		t.Fatalf("expected merge cause to be exactly {upstream edition}, got %v", rev.Cause)
	}
}
