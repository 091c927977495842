package roundsync

import (
	"testing"

	assert "github.com/stretchr/testify/assert"
	rs "github.com/ndn-tools/roundsync/pkg/roundsync"
)

func newTestLogic(t *testing.T, userPrefix string) *rs.Logic {
	t.Helper()
	net := rs.NewMemNetwork()
	sched := rs.NewScheduler()
	transport := rs.NewMemTransport(net, userPrefix, sched)
	return rs.NewLogic(&rs.Config{
		SyncPrefix: mustName(t, "/roundsync"),
		UserPrefix: mustName(t, userPrefix),
		Transport:  transport,
		Scheduler:  sched,
		Constants:  rs.GetDefaultConstants(),
	})
}

func TestLogicUpdateSeqNoAdvancesOwnState(t *testing.T) {
	logic := newTestLogic(t, "/alice")
	defer logic.Shutdown()

	logic.UpdateSeqNo(1)
	assert.Equal(t, uint64(1), logic.SeqNo())
	assert.Equal(t, uint64(1), logic.State().SeqNo(logic.SessionName()))
	assert.Equal(t, uint64(2), logic.CurrentRound())
}

func TestLogicUpdateSeqNoIgnoresNonAdvancing(t *testing.T) {
	logic := newTestLogic(t, "/alice")
	defer logic.Shutdown()

	logic.UpdateSeqNo(5)
	round := logic.CurrentRound()
	logic.UpdateSeqNo(5)
	logic.UpdateSeqNo(3)
	assert.Equal(t, uint64(5), logic.SeqNo())
	assert.Equal(t, round, logic.CurrentRound())
}

func TestLogicUpdateSeqNoZeroIsNoop(t *testing.T) {
	logic := newTestLogic(t, "/alice")
	defer logic.Shutdown()

	logic.UpdateSeqNo(0)
	assert.Equal(t, uint64(0), logic.SeqNo())
	assert.Equal(t, uint64(1), logic.CurrentRound())
}

func TestLogicSessionNameUnderUserPrefix(t *testing.T) {
	logic := newTestLogic(t, "/alice")
	defer logic.Shutdown()

	session := logic.SessionName().String()
	assert.Contains(t, session, "/alice/")
}

func TestLogicShutdownIsIdempotent(t *testing.T) {
	logic := newTestLogic(t, "/alice")
	logic.Shutdown()
	assert.NotPanics(t, func() { logic.Shutdown() })
}
