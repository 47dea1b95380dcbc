// Package branch implements the commit/pull/reset runtime spec.md
// §4.5 describes: a branch is a named CAS cell slot holding a Revision
// — the triple of EAV/AEV/VAE tree roots plus the causal lineage
// metadata needed to merge concurrent writers.
package branch

import (
	"encoding/binary"
	"sort"

	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
)

// Indexes holds the three parallel tree roots a revision commits to:
// one per key ordering (spec.md §3).
type Indexes struct {
	EAV hash.Hash
	AEV hash.Hash
	VAE hash.Hash
}

// Revision is one published state of a branch: the indexes it
// contains, the lineage counters that order it relative to siblings,
// and the set of prior revision references it supersedes.
type Revision struct {
	Issuer  string
	Indexes Indexes
	Period  uint64
	Moment  uint64
	// Cause names the revisions (by their own Reference) this revision
	// supersedes — original: HashSet<Edition> in
	// original_source/rust/dialog-artifacts/src/repository/branch/commit.rs.
	Cause map[hash.Hash]struct{}
}

// Reference is the content address of this revision's canonical
// encoding, used as the cause entry a later revision records when it
// supersedes this one. The never-committed zero Revision is defined to
// reference hash.Zero, so a fresh branch's Base sentinel and its
// current Revision's own Reference agree without requiring a round
// trip through the archive.
func (r Revision) Reference() hash.Hash {
	if r.isEmpty() {
		return hash.Zero
	}
	return hash.Sum(EncodeRevision(r))
}

func (r Revision) isEmpty() bool {
	return r.Issuer == "" && r.Indexes == (Indexes{}) && r.Period == 0 && r.Moment == 0 && len(r.Cause) == 0
}

// EncodeRevision serializes a Revision in the field order fixed by
// SPEC_FULL.md §9 Open Question 1: issuer, the three index hashes,
// period, moment, then the cause set as a count followed by its
// members in ascending byte order.
func EncodeRevision(r Revision) []byte {
	out := appendString(nil, r.Issuer)
	out = append(out, r.Indexes.EAV[:]...)
	out = append(out, r.Indexes.AEV[:]...)
	out = append(out, r.Indexes.VAE[:]...)
	out = appendUvarint(out, r.Period)
	out = appendUvarint(out, r.Moment)

	causes := make([]hash.Hash, 0, len(r.Cause))
	for c := range r.Cause {
		causes = append(causes, c)
	}
	sort.Slice(causes, func(i, j int) bool { return lessHash(causes[i], causes[j]) })

	out = appendUvarint(out, uint64(len(causes)))
	for _, c := range causes {
		out = append(out, c[:]...)
	}
	return out
}

// DecodeRevision parses bytes produced by EncodeRevision.
func DecodeRevision(buf []byte) (Revision, error) {
	var r Revision
	issuer, rest, err := readString(buf)
	if err != nil {
		return r, err
	}
	r.Issuer = issuer

	if len(rest) < hash.Size*3 {
		return r, dialogerr.InvalidValue("truncated revision indexes")
	}
	copy(r.Indexes.EAV[:], rest[:hash.Size])
	rest = rest[hash.Size:]
	copy(r.Indexes.AEV[:], rest[:hash.Size])
	rest = rest[hash.Size:]
	copy(r.Indexes.VAE[:], rest[:hash.Size])
	rest = rest[hash.Size:]

	period, n, err := readUvarint(rest)
	if err != nil {
		return r, err
	}
	rest = rest[n:]
	r.Period = period

	moment, n, err := readUvarint(rest)
	if err != nil {
		return r, err
	}
	rest = rest[n:]
	r.Moment = moment

	count, n, err := readUvarint(rest)
	if err != nil {
		return r, err
	}
	rest = rest[n:]

	r.Cause = make(map[hash.Hash]struct{}, count)
	for i := uint64(0); i < count; i++ {
		if len(rest) < hash.Size {
			return r, dialogerr.InvalidValue("truncated revision cause set")
		}
		var h hash.Hash
		copy(h[:], rest[:hash.Size])
		rest = rest[hash.Size:]
		r.Cause[h] = struct{}{}
	}
	return r, nil
}

// BranchState is the bytes a CAS cell slot holds for one branch: its
// name, the issuer that created it, its current Revision, and the
// revision it was last known to be based on (used by Pull's no-op
// short circuit).
type BranchState struct {
	Name     string
	Issuer   string
	Revision Revision
	Base     hash.Hash
}

// EncodeBranchState serializes a BranchState.
func EncodeBranchState(s BranchState) []byte {
	out := appendString(nil, s.Name)
	out = appendString(out, s.Issuer)
	out = append(out, s.Base[:]...)
	revisionBytes := EncodeRevision(s.Revision)
	out = appendUvarint(out, uint64(len(revisionBytes)))
	out = append(out, revisionBytes...)
	return out
}

// DecodeBranchState parses bytes produced by EncodeBranchState.
func DecodeBranchState(buf []byte) (BranchState, error) {
	var s BranchState
	name, rest, err := readString(buf)
	if err != nil {
		return s, err
	}
	s.Name = name

	issuer, rest2, err := readString(rest)
	if err != nil {
		return s, err
	}
	s.Issuer = issuer
	rest = rest2

	if len(rest) < hash.Size {
		return s, dialogerr.InvalidValue("truncated branch state base")
	}
	copy(s.Base[:], rest[:hash.Size])
	rest = rest[hash.Size:]

	length, n, err := readUvarint(rest)
	if err != nil {
		return s, err
	}
	rest = rest[n:]
	if uint64(len(rest)) < length {
		return s, dialogerr.InvalidValue("truncated branch state revision")
	}
	revision, err := DecodeRevision(rest[:length])
	if err != nil {
		return s, err
	}
	s.Revision = revision
	return s, nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(buf []byte) (uint64, int, error) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, 0, dialogerr.InvalidValue("malformed varint in branch state")
	}
	return v, n, nil
}

func appendString(buf []byte, s string) []byte {
	buf = appendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte, error) {
	n, width, err := readUvarint(buf)
	if err != nil {
		return "", nil, err
	}
	buf = buf[width:]
	if uint64(len(buf)) < n {
		return "", nil, dialogerr.InvalidValue("truncated string field")
	}
	return string(buf[:n]), buf[n:], nil
}

func lessHash(a, b hash.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
