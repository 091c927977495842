package roundsync

import (
	"testing"

	assert "github.com/stretchr/testify/assert"
	rs "github.com/ndn-tools/roundsync/pkg/roundsync"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

func mustName(t *testing.T, s string) enc.Name {
	t.Helper()
	n, err := enc.NameFromStr(s)
	assert.NoError(t, err)
	return n
}

func TestStateUpdateMonotonic(t *testing.T) {
	st := rs.NewState()
	alice := mustName(t, "/alice")

	inserted, updated, old := st.Update(alice, 3)
	assert.True(t, inserted)
	assert.False(t, updated)
	assert.Equal(t, uint64(0), old)
	assert.Equal(t, uint64(3), st.SeqNo(alice))

	inserted, updated, old = st.Update(alice, 5)
	assert.False(t, inserted)
	assert.True(t, updated)
	assert.Equal(t, uint64(3), old)
	assert.Equal(t, uint64(5), st.SeqNo(alice))

	// A non-advancing seq_no is a no-op.
	inserted, updated, _ = st.Update(alice, 2)
	assert.False(t, inserted)
	assert.False(t, updated)
	assert.Equal(t, uint64(5), st.SeqNo(alice))
}

func TestStateDigestStableUnderEqualContent(t *testing.T) {
	a := rs.NewState()
	b := rs.NewState()
	a.Update(mustName(t, "/alice"), 1)
	a.Update(mustName(t, "/bob"), 2)
	// insert in the opposite order; canonical iteration should still agree
	b.Update(mustName(t, "/bob"), 2)
	b.Update(mustName(t, "/alice"), 1)
	assert.Equal(t, a.Digest(), b.Digest())
}

func TestStateDigestChangesOnUpdate(t *testing.T) {
	st := rs.NewState()
	before := st.Digest()
	st.Update(mustName(t, "/alice"), 1)
	after := st.Digest()
	assert.NotEqual(t, before, after)
}

func TestEmptyStateDigestMatchesEmptyDigest(t *testing.T) {
	assert.Equal(t, rs.EmptyDigest, rs.NewState().Digest())
}

func TestStateAddMerges(t *testing.T) {
	a := rs.NewState()
	a.Update(mustName(t, "/alice"), 1)
	b := rs.NewState()
	b.Update(mustName(t, "/alice"), 4)
	b.Update(mustName(t, "/bob"), 2)

	a.Add(b)
	assert.Equal(t, uint64(4), a.SeqNo(mustName(t, "/alice")))
	assert.Equal(t, uint64(2), a.SeqNo(mustName(t, "/bob")))
	assert.Equal(t, 2, a.Len())
}

func TestStateCopyIsIndependent(t *testing.T) {
	a := rs.NewState()
	a.Update(mustName(t, "/alice"), 1)
	cp := a.Copy()
	a.Update(mustName(t, "/alice"), 9)
	assert.Equal(t, uint64(1), cp.SeqNo(mustName(t, "/alice")))
	assert.Equal(t, uint64(9), a.SeqNo(mustName(t, "/alice")))
}

func TestStateLeavesCanonicalOrder(t *testing.T) {
	st := rs.NewState()
	st.Update(mustName(t, "/carol"), 1)
	st.Update(mustName(t, "/alice"), 1)
	st.Update(mustName(t, "/bob"), 1)

	var order []string
	st.Leaves(func(l *rs.Leaf) bool {
		order = append(order, l.Name().String())
		return true
	})
	assert.Equal(t, []string{"/alice", "/bob", "/carol"}, order)
}
