package roundsync

import "time"

// Constants collects every tunable named in spec.md §6. Logic takes a
// *Constants at construction and never reads package-level defaults
// directly, the same shape as the teacher's Constants/GetDefaultConstants.
type Constants struct {
	// DataInterestLifeTime bounds how long an outstanding DataInterest
	// waits before MaxDataInterestTimeouts counts it as a miss.
	DataInterestLifeTime time.Duration
	// SyncInterestLifeTime bounds outstanding SyncInterests.
	SyncInterestLifeTime time.Duration
	// DataFreshness is the freshness period stamped on produced Data.
	DataFreshness time.Duration

	// RoundDigestDelay is the delay before a round's SyncInterest is
	// re-expressed after the round received data or a peer announced a
	// different round_digest for it.
	RoundDigestDelay time.Duration
	// StabilizeCumulativeDigestDelay is the period of the stabilization
	// sweep that chains cumulative digests and advances stable_round.
	StabilizeCumulativeDigestDelay time.Duration

	// MaxRoundsWithoutRecovery is the largest round jump that is still
	// backfilled with DataInterests; a larger jump skips the backfill and
	// sets recovery_desired instead.
	MaxRoundsWithoutRecovery uint64
	// BackUnstableRounds is how many rounds, ending at the peer's round,
	// are re-fished after a recovery snapshot is applied.
	BackUnstableRounds uint64
	// RetryCheckRecoveryDelay is the wait, after a peer's RecoInterests
	// have all timed out, before recovery_desired is set again.
	RetryCheckRecoveryDelay time.Duration

	// DelaySendingCumulativeOnlyMin/Max bound the jittered delay before
	// producing an unsolicited CumulativeOnly announcement.
	DelaySendingCumulativeOnlyMin time.Duration
	DelaySendingCumulativeOnlyMax time.Duration

	// MaxDataInterestToCumulativeOnly is how many DataInterest timeouts
	// for the same round trigger scheduling this node's own CumulativeOnly
	// announcement for it, when it holds a cumulative digest for it.
	MaxDataInterestToCumulativeOnly uint
	// MaxDataInterestTimeouts bounds total retries of a DataInterest
	// before it is abandoned.
	MaxDataInterestTimeouts uint
	// MaxRecoInterestTimeouts bounds total retries of a RecoInterest
	// before it is abandoned.
	MaxRecoInterestTimeouts uint
}

// GetDefaultConstants returns the tunable values spec.md §6 lists.
func GetDefaultConstants() *Constants {
	return &Constants{
		DataInterestLifeTime: 1000 * time.Millisecond,
		SyncInterestLifeTime: 1000 * time.Millisecond,
		DataFreshness:        1000 * time.Millisecond,

		RoundDigestDelay:               1000 * time.Millisecond,
		StabilizeCumulativeDigestDelay: 5000 * time.Millisecond,

		MaxRoundsWithoutRecovery: 10,
		BackUnstableRounds:       5,
		RetryCheckRecoveryDelay:  2000 * time.Millisecond,

		DelaySendingCumulativeOnlyMin: 0,
		DelaySendingCumulativeOnlyMax: 1000 * time.Millisecond,

		MaxDataInterestToCumulativeOnly: 5,
		MaxDataInterestTimeouts:         5,
		MaxRecoInterestTimeouts:         5,
	}
}

// CumulativeOnlyDataValue is the reserved data payload seq_no (0) the
// producer stamps on a CumulativeOnly leaf; it mirrors CumulativeOnlySeqNo
// in digest.go and exists here only so callers can find it alongside the
// rest of the tunables table.
const CumulativeOnlyDataValue = CumulativeOnlySeqNo
