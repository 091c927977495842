package roundsync

import (
	bf "github.com/ndn-tools/roundsync/util/bloomfilter"
)

// excludeFilterHashes and excludeFilterBits size the bloom filter backing
// DiffState.exclude_filter: a round rarely accumulates more than a
// handful of re-fetch responses, so a small, fixed-size filter keeps the
// per-round memory bounded even while gap-fishing many rounds at once
// (spec.md S3).
const (
	excludeFilterHashes = 4
	excludeFilterBits   = 512
)

// DiffState is one round's delta over a State: the leaves produced or
// touched in that round, plus the round's digest, the cumulative digest
// chained up to and including it, an optional CumulativeInfo naming an
// older round's cumulative digest that the round re-announces (attached
// both to cumulative-only rounds and to own data rounds), and the set
// of response names already seen for the round (so re-fetches don't pull
// back something already applied).
//
// The original C++ source threads these together with a shared_ptr
// "next" link so diff() can walk forward to the log's tail. Here that
// link is dropped in favor of looking the round up in the DiffLog it
// belongs to and iterating from there — an index plus iteration, per
// spec.md's design notes, instead of a linked ownership chain.
type DiffState struct {
	*State
	round             uint64
	roundDigest       [32]byte
	roundDigestSet    bool
	cumulativeDigest  [32]byte
	cumulativeSet     bool
	cumulativeInfo    *CumulativeInfo
	excludeFilter     *bf.Filter
	reexpressSyncID   EventID
}

// NewDiffState returns an empty DiffState for round.
func NewDiffState(round uint64) *DiffState {
	return &DiffState{
		State:         newState(),
		round:         round,
		excludeFilter: bf.NewFilter(excludeFilterHashes, excludeFilterBits),
	}
}

// Round is the round number this diff belongs to.
func (d *DiffState) Round() uint64 { return d.round }

// UpdateRoundDigest freezes round_digest as the digest of this round's
// own leaves. Once set it never changes for this DiffState.
func (d *DiffState) UpdateRoundDigest() {
	d.roundDigest = d.State.Digest()
	d.roundDigestSet = true
}

// RoundDigest returns the frozen round digest, or the digest of the
// round's current leaves if UpdateRoundDigest was never called (the
// empty-state digest for a diff with no leaves).
func (d *DiffState) RoundDigest() [32]byte {
	if !d.roundDigestSet {
		return d.State.Digest()
	}
	return d.roundDigest
}

// UpdateCumulativeDigest sets cumulative_digest = SHA-256(previous ||
// round_digest), chaining this round onto the group's history.
func (d *DiffState) UpdateCumulativeDigest(previous [32]byte) {
	d.cumulativeDigest = chainDigest(previous, d.RoundDigest())
	d.cumulativeSet = true
}

// CumulativeDigest returns the chained cumulative digest for this round.
func (d *DiffState) CumulativeDigest() [32]byte { return d.cumulativeDigest }

// HasCumulativeDigest reports whether UpdateCumulativeDigest has run for
// this round.
func (d *DiffState) HasCumulativeDigest() bool { return d.cumulativeSet }

// CumulativeInfo returns the optional (source round, source cumulative
// digest) pair this diff is "about", if any.
func (d *DiffState) CumulativeInfo() *CumulativeInfo { return d.cumulativeInfo }

// SetCumulativeInfo attaches a CumulativeInfo to this diff.
func (d *DiffState) SetCumulativeInfo(info *CumulativeInfo) { d.cumulativeInfo = info }

// SeenResponse reports whether respName has already been recorded via
// MarkSeen for this round.
func (d *DiffState) SeenResponse(respName string) bool {
	return d.excludeFilter.Check([]byte(respName))
}

// MarkSeen records respName into the round's exclude filter so a
// re-issued DataInterest excludes it.
func (d *DiffState) MarkSeen(respName string) {
	d.excludeFilter.Add([]byte(respName))
}

// excludeFilterBytes serializes the round's exclude filter for
// attachment to a re-issued DataInterest.
func (d *DiffState) excludeFilterBytes() ([]byte, error) {
	return d.excludeFilter.Bytes()
}

// ReexpressSyncID is the outstanding scheduled send of a SyncInterest for
// this round, if any (zero EventID means none scheduled).
func (d *DiffState) ReexpressSyncID() EventID { return d.reexpressSyncID }

// SetReexpressSyncID records the current outstanding sync re-expression.
func (d *DiffState) SetReexpressSyncID(id EventID) { d.reexpressSyncID = id }

// GetStateFrom returns a single-leaf DiffState carrying only prefix's
// entry in this round, for replying to a DataInterest from that
// producer, plus this round's CumulativeInfo if one was attached. The
// second return value is true when the entry's seq_no is the
// CUMULATIVE_ONLY_DATA sentinel (0), meaning this round's production by
// prefix was a cumulative-only announcement rather than application
// data — the caller uses it to omit the (otherwise-empty) State-sub on
// the wire.
func (d *DiffState) GetStateFrom(prefix string) (*DiffState, bool) {
	leaf, ok := d.leafAt(prefix)
	if !ok {
		return nil, false
	}
	out := NewDiffState(d.round)
	out.State.Update(leaf.Name(), leaf.SeqNo())
	out.cumulativeInfo = d.cumulativeInfo
	return out, leaf.SeqNo() == CumulativeOnlySeqNo
}

func chainDigest(previous, roundDigest [32]byte) [32]byte {
	return sha256Concat(previous[:], roundDigest[:])
}
