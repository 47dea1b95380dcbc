package branch

import (
	"context"

	"github.com/dialog-db/dialog/archive"
	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/cell"
	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
	"github.com/dialog-db/dialog/key"
	"github.com/dialog-db/dialog/prolly"
)

// Branch is one named CAS cell slot plus the blob archive its trees
// live in. It is the concrete collaborator behind the "Branch Runtime"
// component of spec.md §4.5.
type Branch struct {
	Name    string
	archive archive.BlobArchive
	cell    cell.CASCell
}

// Open attaches a Branch runtime to the named cell slot.
func Open(name string, backend archive.BlobArchive, c cell.CASCell) *Branch {
	return &Branch{Name: name, archive: backend, cell: c}
}

func datumEqual(a, b artifact.Datum) bool {
	if a.Kind != b.Kind {
		return false
	}
	return a.Value.Equal(b.Value)
}

// readState loads this branch's current BranchState and cell edition.
// A never-written slot reads back as a zero-value BranchState with
// NoEdition, the state a brand-new branch starts from.
func (b *Branch) readState(ctx context.Context) (BranchState, cell.Edition, error) {
	raw, edition, err := b.cell.Read(ctx, b.Name)
	if err != nil {
		return BranchState{}, cell.NoEdition, err
	}
	if raw == nil {
		return BranchState{Name: b.Name}, cell.NoEdition, nil
	}
	state, err := DecodeBranchState(raw)
	if err != nil {
		return BranchState{}, cell.NoEdition, err
	}
	return state, edition, nil
}

func (b *Branch) revisionByReference(ctx context.Context, ref hash.Hash) (Revision, error) {
	if ref.IsZero() {
		return Revision{Cause: map[hash.Hash]struct{}{}}, nil
	}
	raw, err := b.archive.Get(ctx, ref)
	if err != nil {
		return Revision{}, dialogerr.Storage("reading revision by reference", err)
	}
	return DecodeRevision(raw)
}

func (b *Branch) publishRevision(ctx context.Context, r Revision) (hash.Hash, error) {
	encoded := EncodeRevision(r)
	ref, err := b.archive.Put(ctx, encoded)
	if err != nil {
		return hash.Zero, dialogerr.Storage("storing revision", err)
	}
	return ref, nil
}

func (b *Branch) trees(indexes Indexes) (prolly.Tree[artifact.Datum], prolly.Tree[artifact.Datum], prolly.Tree[artifact.Datum]) {
	return prolly.New(b.archive, DatumCodec{}, indexes.EAV),
		prolly.New(b.archive, DatumCodec{}, indexes.AEV),
		prolly.New(b.archive, DatumCodec{}, indexes.VAE)
}

// existingEntries returns every datum currently stored under (of, is)
// in eav, used by Commit to find prior assertions a new instruction's
// Cause might supersede.
func existingEntries(ctx context.Context, eav prolly.Tree[artifact.Datum], of artifact.Entity, is artifact.Attribute) ([]prolly.Entry[artifact.Datum], error) {
	low := key.Prefix(key.EAV, &of, &is, nil, nil, key.Min())
	high := key.Prefix(key.EAV, &of, &is, nil, nil, key.Max())
	return eav.StreamRange(ctx, low, high)
}

// Commit applies instructions atop the branch's current revision,
// publishing a new one (spec.md §4.5, "Commit"; grounded on
// original_source/rust/dialog-artifacts/src/repository/branch/commit.rs).
func (b *Branch) Commit(ctx context.Context, issuer string, instructions []artifact.Instruction) (Revision, error) {
	for {
		state, edition, err := b.readState(ctx)
		if err != nil {
			return Revision{}, err
		}

		eav, aev, vae := b.trees(state.Revision.Indexes)

		for _, instr := range instructions {
			ref := instr.Fact.Reference()
			vt := instr.Fact.Value.DataType()
			if instr.Kind == artifact.Retract {
				ref = hash.Zero
				vt = 0
			}

			existing, err := existingEntries(ctx, eav, instr.Fact.Of, instr.Fact.Is)
			if err != nil {
				return Revision{}, err
			}
			for _, e := range existing {
				view := key.FromRaw(e.Key, key.EAV)
				if instr.Kind != artifact.Retract && !instr.Cause.Contains(view.ValueReference()) {
					continue
				}
				aevKey := key.Convert(view, key.AEV).Bytes()
				vaeKey := key.Convert(view, key.VAE).Bytes()
				if eav, err = eav.Delete(ctx, e.Key); err != nil {
					return Revision{}, err
				}
				if aev, err = aev.Delete(ctx, aevKey); err != nil {
					return Revision{}, err
				}
				if vae, err = vae.Delete(ctx, vaeKey); err != nil {
					return Revision{}, err
				}
			}

			datum := artifact.DatumOf(instr)
			eavKey := key.NewEAV(instr.Fact.Of, instr.Fact.Is, vt, ref).Bytes()
			aevKey := key.NewAEV(instr.Fact.Is, instr.Fact.Of, vt, ref).Bytes()
			vaeKey := key.NewVAE(ref, instr.Fact.Is, instr.Fact.Of, vt).Bytes()

			if eav, err = eav.Set(ctx, eavKey, datum); err != nil {
				return Revision{}, err
			}
			if aev, err = aev.Set(ctx, aevKey, datum); err != nil {
				return Revision{}, err
			}
			if vae, err = vae.Set(ctx, vaeKey, datum); err != nil {
				return Revision{}, err
			}
		}

		previousRef := state.Revision.Reference()
		cause := map[hash.Hash]struct{}{}
		if state.Revision.Indexes != (Indexes{}) || len(state.Revision.Cause) > 0 || state.Revision.Moment > 0 {
			cause[previousRef] = struct{}{}
		}

		period, moment := state.Revision.Period, state.Revision.Moment+1
		if !state.Revision.isEmpty() && state.Revision.Issuer != issuer {
			period, moment = state.Revision.Period+1, 0
		}

		newRevision := Revision{
			Issuer: issuer,
			Indexes: Indexes{
				EAV: eav.Root,
				AEV: aev.Root,
				VAE: vae.Root,
			},
			Period: period,
			Moment: moment,
			Cause:  cause,
		}
		if _, err := b.publishRevision(ctx, newRevision); err != nil {
			return Revision{}, err
		}

		newState := BranchState{
			Name:     b.Name,
			Issuer:   issuer,
			Revision: newRevision,
			Base:     state.Base,
		}
		_, err = b.cell.CompareAndSwap(ctx, b.Name, edition, EncodeBranchState(newState))
		if err != nil {
			if _, mismatch := err.(*dialogerr.EditionMismatchError); mismatch {
				continue
			}
			return Revision{}, err
		}
		return newRevision, nil
	}
}

func convertChanges(changes []prolly.Change[artifact.Datum], from, to key.Order) []prolly.Change[artifact.Datum] {
	out := make([]prolly.Change[artifact.Datum], len(changes))
	for i, c := range changes {
		view := key.FromRaw(c.Key, from)
		out[i] = prolly.Change[artifact.Datum]{
			Key:     key.Convert(view, to).Bytes(),
			Value:   c.Value,
			Removed: c.Removed,
		}
	}
	return out
}

// Pull performs a local three-way merge of this branch's unpublished
// local changes atop upstream's current revision (spec.md §4.5,
// "Pull"; grounded on
// original_source/rust/dialog-artifacts/src/repository/branch/pull.rs).
// It reports whether the branch's published state changed.
func (b *Branch) Pull(ctx context.Context, upstream *Branch) (bool, error) {
	local, edition, err := b.readState(ctx)
	if err != nil {
		return false, err
	}
	remote, _, err := upstream.readState(ctx)
	if err != nil {
		return false, err
	}

	upstreamRef := remote.Revision.Reference()
	if local.Base == upstreamRef {
		return false, nil
	}

	localRef := local.Revision.Reference()
	if localRef == local.Base {
		newState := BranchState{Name: b.Name, Issuer: local.Issuer, Revision: remote.Revision, Base: upstreamRef}
		if _, err := b.cell.CompareAndSwap(ctx, b.Name, edition, EncodeBranchState(newState)); err != nil {
			return false, err
		}
		return true, nil
	}

	baseRevision, err := b.revisionByReference(ctx, local.Base)
	if err != nil {
		return false, err
	}

	baseEAV, baseAEV, baseVAE := b.trees(baseRevision.Indexes)
	localEAV, localAEV, localVAE := b.trees(local.Revision.Indexes)
	upstreamEAV, upstreamAEV, upstreamVAE := b.trees(remote.Revision.Indexes)
	_ = baseAEV
	_ = baseVAE
	_ = localAEV
	_ = localVAE

	changes, err := prolly.Differentiate(ctx, baseEAV, localEAV, datumEqual)
	if err != nil {
		return false, err
	}

	mergedEAV, err := prolly.Integrate(ctx, upstreamEAV, changes)
	if err != nil {
		return false, err
	}
	mergedAEV, err := prolly.Integrate(ctx, upstreamAEV, convertChanges(changes, key.EAV, key.AEV))
	if err != nil {
		return false, err
	}
	mergedVAE, err := prolly.Integrate(ctx, upstreamVAE, convertChanges(changes, key.EAV, key.VAE))
	if err != nil {
		return false, err
	}

	var newRevision Revision
	if mergedEAV.Root == upstreamEAV.Root && mergedAEV.Root == upstreamAEV.Root && mergedVAE.Root == upstreamVAE.Root {
		newRevision = remote.Revision
	} else {
		period := remote.Revision.Period
		if local.Revision.Period > period {
			period = local.Revision.Period
		}
		newRevision = Revision{
			Issuer: local.Issuer,
			Indexes: Indexes{
				EAV: mergedEAV.Root,
				AEV: mergedAEV.Root,
				VAE: mergedVAE.Root,
			},
			Period: period + 1,
			Moment: 0,
			Cause:  map[hash.Hash]struct{}{upstreamRef: {}},
		}
		if _, err := b.publishRevision(ctx, newRevision); err != nil {
			return false, err
		}
	}

	newState := BranchState{Name: b.Name, Issuer: local.Issuer, Revision: newRevision, Base: upstreamRef}
	if _, err := b.cell.CompareAndSwap(ctx, b.Name, edition, EncodeBranchState(newState)); err != nil {
		return false, err
	}
	return true, nil
}

// Reset force-overwrites this branch's published state to revision,
// bypassing the merge logic Pull applies. Used for administrative
// rollback (spec.md §4.5, "Reset").
func (b *Branch) Reset(ctx context.Context, issuer string, revision Revision) error {
	for {
		_, edition, err := b.readState(ctx)
		if err != nil {
			return err
		}
		ref, err := b.publishRevision(ctx, revision)
		if err != nil {
			return err
		}
		newState := BranchState{Name: b.Name, Issuer: issuer, Revision: revision, Base: ref}
		_, err = b.cell.CompareAndSwap(ctx, b.Name, edition, EncodeBranchState(newState))
		if err != nil {
			if _, mismatch := err.(*dialogerr.EditionMismatchError); mismatch {
				continue
			}
			return err
		}
		return nil
	}
}

// Current returns the branch's currently published Revision.
func (b *Branch) Current(ctx context.Context) (Revision, error) {
	state, _, err := b.readState(ctx)
	if err != nil {
		return Revision{}, err
	}
	return state.Revision, nil
}
