package roundsync

import (
	"testing"

	assert "github.com/stretchr/testify/assert"
	rs "github.com/ndn-tools/roundsync/pkg/roundsync"
)

func TestDataNameRoundTrip(t *testing.T) {
	syncPrefix := mustName(t, "/roundsync")
	name := rs.DataName(syncPrefix, 17)
	round, err := rs.ParseDataName(syncPrefix, name)
	assert.NoError(t, err)
	assert.Equal(t, uint64(17), round)
}

func TestParseDataNameRejectsWrongPrefix(t *testing.T) {
	syncPrefix := mustName(t, "/roundsync")
	other := mustName(t, "/other")
	name := rs.DataName(other, 1)
	_, err := rs.ParseDataName(syncPrefix, name)
	assert.Error(t, err)
}

func TestSyncNameRoundTrip(t *testing.T) {
	syncPrefix := mustName(t, "/roundsync")
	digest := [32]byte{5, 6, 7}
	name := rs.SyncName(syncPrefix, 3, digest)
	round, decoded, err := rs.ParseSyncName(syncPrefix, name)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), round)
	assert.Equal(t, digest, decoded)
}

func TestRecoName(t *testing.T) {
	userPrefix := mustName(t, "/alice")
	name := rs.RecoName(userPrefix)
	assert.Equal(t, "/alice/RECO", name.String())
}
