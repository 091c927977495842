package roundsync

import (
	"testing"

	assert "github.com/stretchr/testify/assert"
	rs "github.com/ndn-tools/roundsync/pkg/roundsync"
)

func TestDiffLogInsertFindRange(t *testing.T) {
	log := rs.NewDiffLog()
	d3 := rs.NewDiffState(3)
	d1 := rs.NewDiffState(1)
	d2 := rs.NewDiffState(2)

	assert.NoError(t, log.Insert(d3))
	assert.NoError(t, log.Insert(d1))
	assert.NoError(t, log.Insert(d2))
	assert.Equal(t, 3, log.Len())

	found, ok := log.Find(2)
	assert.True(t, ok)
	assert.Same(t, d2, found)

	var order []uint64
	log.Range(func(round uint64, diff *rs.DiffState) bool {
		order = append(order, round)
		return true
	})
	assert.Equal(t, []uint64{1, 2, 3}, order)
}

func TestDiffLogRejectsDuplicateRound(t *testing.T) {
	log := rs.NewDiffLog()
	assert.NoError(t, log.Insert(rs.NewDiffState(1)))
	assert.Error(t, log.Insert(rs.NewDiffState(1)))
}

func TestDiffStateRoundDigestFreezes(t *testing.T) {
	d := rs.NewDiffState(1)
	d.State.Update(mustName(t, "/alice"), 1)
	before := d.RoundDigest()

	d.UpdateRoundDigest()
	frozen := d.RoundDigest()
	assert.Equal(t, before, frozen) // same content, so same digest either way

	d.State.Update(mustName(t, "/bob"), 1)
	assert.Equal(t, frozen, d.RoundDigest()) // frozen, unaffected by later mutation
}

func TestDiffStateCumulativeDigestChains(t *testing.T) {
	d1 := rs.NewDiffState(1)
	d1.State.Update(mustName(t, "/alice"), 1)
	d1.UpdateRoundDigest()
	d1.UpdateCumulativeDigest(rs.EmptyDigest)

	d2 := rs.NewDiffState(2)
	d2.State.Update(mustName(t, "/bob"), 1)
	d2.UpdateRoundDigest()
	d2.UpdateCumulativeDigest(d1.CumulativeDigest())

	assert.True(t, d1.HasCumulativeDigest())
	assert.True(t, d2.HasCumulativeDigest())
	assert.NotEqual(t, d1.CumulativeDigest(), d2.CumulativeDigest())
}

func TestDiffStateMarkSeenExcludesRefetch(t *testing.T) {
	d := rs.NewDiffState(1)
	assert.False(t, d.SeenResponse("/alice"))
	d.MarkSeen("/alice")
	assert.True(t, d.SeenResponse("/alice"))
	assert.False(t, d.SeenResponse("/bob"))
}

func TestDiffStateGetStateFromOwnLeaf(t *testing.T) {
	d := rs.NewDiffState(5)
	d.State.Update(mustName(t, "/alice"), 3)
	d.State.Update(mustName(t, "/bob"), 9)

	sub, cumulativeOnly := d.GetStateFrom("/alice")
	assert.NotNil(t, sub)
	assert.False(t, cumulativeOnly)
	assert.Equal(t, uint64(3), sub.State.SeqNo(mustName(t, "/alice")))
	assert.Equal(t, 1, sub.State.Len())
}

func TestDiffStateGetStateFromAbsentLeaf(t *testing.T) {
	d := rs.NewDiffState(5)
	sub, _ := d.GetStateFrom("/nobody")
	assert.Nil(t, sub)
}

func TestDiffStateGetStateFromCumulativeOnlySentinel(t *testing.T) {
	d := rs.NewDiffState(5)
	d.State.Update(mustName(t, "/alice"), rs.CumulativeOnlySeqNo)
	_, cumulativeOnly := d.GetStateFrom("/alice")
	assert.True(t, cumulativeOnly)
}
