package roundsync

import (
	"testing"

	assert "github.com/stretchr/testify/assert"
	rs "github.com/ndn-tools/roundsync/pkg/roundsync"
)

func TestDataContentWellFormed(t *testing.T) {
	digest := [32]byte{1, 2, 3}
	st := rs.NewState()
	st.Update(mustName(t, "/alice"), 1)

	dataOnly := &rs.DataContent{State: st}
	assert.True(t, dataOnly.WellFormed())
	assert.Equal(t, rs.KindDataOnly, dataOnly.Kind())

	cumulativeOnly := &rs.DataContent{UserPrefix: mustName(t, "/alice"), CumulativeRound: 4, CumulativeDigest: &digest}
	assert.True(t, cumulativeOnly.WellFormed())
	assert.Equal(t, rs.KindCumulativeOnly, cumulativeOnly.Kind())

	dataAndCumulative := &rs.DataContent{UserPrefix: mustName(t, "/alice"), CumulativeRound: 4, CumulativeDigest: &digest, State: st}
	assert.True(t, dataAndCumulative.WellFormed())
	assert.Equal(t, rs.KindDataAndCumulative, dataAndCumulative.Kind())

	illFormed := &rs.DataContent{CumulativeDigest: &digest} // no UserPrefix
	assert.False(t, illFormed.WellFormed())
}

func TestEncodeDataContentPanicsOnIllFormed(t *testing.T) {
	digest := [32]byte{1}
	illFormed := &rs.DataContent{CumulativeDigest: &digest}
	assert.Panics(t, func() { rs.EncodeDataContent(illFormed) })
}

func TestDataContentRoundTripDataOnly(t *testing.T) {
	st := rs.NewState()
	st.Update(mustName(t, "/alice"), 7)
	st.Update(mustName(t, "/bob"), 2)
	original := &rs.DataContent{State: st}

	wire := rs.EncodeDataContent(original)
	decoded, err := rs.DecodeDataContent(wire)
	assert.NoError(t, err)
	assert.Equal(t, rs.KindDataOnly, decoded.Kind())
	assert.Equal(t, uint64(7), decoded.State.SeqNo(mustName(t, "/alice")))
	assert.Equal(t, uint64(2), decoded.State.SeqNo(mustName(t, "/bob")))
}

func TestDataContentRoundTripDataAndCumulative(t *testing.T) {
	digest := [32]byte{9, 9, 9}
	st := rs.NewState()
	st.Update(mustName(t, "/alice"), 3)
	original := &rs.DataContent{
		UserPrefix:       mustName(t, "/alice"),
		CumulativeRound:  12,
		CumulativeDigest: &digest,
		State:            st,
	}

	wire := rs.EncodeDataContent(original)
	decoded, err := rs.DecodeDataContent(wire)
	assert.NoError(t, err)
	assert.Equal(t, rs.KindDataAndCumulative, decoded.Kind())
	assert.Equal(t, uint64(12), decoded.CumulativeRound)
	assert.Equal(t, digest, *decoded.CumulativeDigest)
	assert.Equal(t, uint64(3), decoded.State.SeqNo(mustName(t, "/alice")))
}

func TestDecodeDataContentRejectsUnknownTag(t *testing.T) {
	_, err := rs.DecodeDataContent([]byte{0x01, 0x00})
	assert.Error(t, err)
}

func TestRecoDataRoundTrip(t *testing.T) {
	st := rs.NewState()
	st.Update(mustName(t, "/alice"), 5)
	st.Update(mustName(t, "/bob"), 6)
	original := &rs.RecoData{Round: 42, State: st}

	wire := rs.EncodeRecoData(original)
	decoded, err := rs.DecodeRecoData(wire)
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), decoded.Round)
	assert.Equal(t, uint64(5), decoded.State.SeqNo(mustName(t, "/alice")))
	assert.Equal(t, uint64(6), decoded.State.SeqNo(mustName(t, "/bob")))
}

func TestSignedPayloadRoundTrip(t *testing.T) {
	signer := rs.NewSha256Signer()
	verifier := rs.NewSha256Verifier()

	signed, err := signer.Sign([]byte("hello round-sync"))
	assert.NoError(t, err)

	wire := rs.EncodeSignedPayload(signed)
	decoded, err := rs.DecodeSignedPayload(wire)
	assert.NoError(t, err)

	content, ok := verifier.Verify(decoded)
	assert.True(t, ok)
	assert.Equal(t, "hello round-sync", string(content))
}

func TestVerifierRejectsTamperedContent(t *testing.T) {
	signer := rs.NewSha256Signer()
	verifier := rs.NewSha256Verifier()

	signed, err := signer.Sign([]byte("original"))
	assert.NoError(t, err)
	signed.Content = []byte("tampered")

	_, ok := verifier.Verify(signed)
	assert.False(t, ok)
}
