package roundsync

import (
	"fmt"

	omap "github.com/ndn-tools/roundsync/util/orderedmap"
)

func roundLess(a, b uint64) bool { return a < b }

// DiffLog is an ordered map round-no -> *DiffState, unique by round,
// iterating in ascending round order. Built on the same generic ordered
// map the teacher uses for canonical State iteration, specialized here
// to keep rounds sorted rather than insertion- or recency-ordered, since
// fishing and stabilization both need ascending round walks and rounds
// can be filled in out of order (gap fishing fetches old rounds after
// newer ones have already arrived).
type DiffLog struct {
	rounds *omap.OrderedMap[uint64, *DiffState]
}

// NewDiffLog returns an empty DiffLog.
func NewDiffLog() *DiffLog {
	return &DiffLog{rounds: omap.New[uint64, *DiffState]()}
}

// Find returns the DiffState for round, if present.
func (l *DiffLog) Find(round uint64) (*DiffState, bool) {
	return l.rounds.Get(round)
}

// Insert adds diff at its own Round(), rejecting a duplicate round.
func (l *DiffLog) Insert(diff *DiffState) error {
	if _, ok := l.rounds.Get(diff.Round()); ok {
		return fmt.Errorf("roundsync: duplicate round %d in DiffLog", diff.Round())
	}
	l.rounds.SetSorted(diff.Round(), diff, roundLess)
	return nil
}

// Len is the number of rounds held.
func (l *DiffLog) Len() int { return l.rounds.Len() }

// Range walks the log in ascending round order, stopping early if fn
// returns false.
func (l *DiffLog) Range(fn func(round uint64, diff *DiffState) bool) {
	for e := l.rounds.Front(); e != nil; e = e.Next() {
		if !fn(e.Key, e.Value) {
			return
		}
	}
}
