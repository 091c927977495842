package roundsync

// CumulativeInfo names the round and cumulative digest a DiffState is
// "about" rather than a producer's own data — attached to a
// CumulativeOnly record so a peer can tell which older round is being
// re-announced.
type CumulativeInfo struct {
	SourceRound  uint64
	SourceDigest [32]byte
}
