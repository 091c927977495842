package roundsync

import (
	"testing"
	"time"

	assert "github.com/stretchr/testify/assert"
	rs "github.com/ndn-tools/roundsync/pkg/roundsync"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

func TestMemTransportDeliversReply(t *testing.T) {
	net := rs.NewMemNetwork()
	sched := rs.NewScheduler()
	producer := rs.NewMemTransport(net, "producer", sched)
	consumer := rs.NewMemTransport(net, "consumer", sched)

	prefix := mustName(t, "/roundsync/DATA")
	_, err := producer.RegisterInterestHandler(prefix, func(name enc.Name, reply rs.ReplyFunc) {
		assert.NoError(t, reply([]byte("hello")))
	})
	assert.NoError(t, err)

	var got []byte
	done := make(chan struct{})
	_, err = consumer.ExpressInterest(mustName(t, "/roundsync/DATA/1"), 200*time.Millisecond, nil,
		func(name enc.Name, payload []byte) {
			got = payload
			close(done)
		},
		func(name enc.Name) {
			close(done)
		},
	)
	assert.NoError(t, err)

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for reply")
	}
	assert.Equal(t, "hello", string(got))
}

func TestMemTransportTimesOutWithNoHandler(t *testing.T) {
	net := rs.NewMemNetwork()
	sched := rs.NewScheduler()
	consumer := rs.NewMemTransport(net, "consumer", sched)

	timedOut := make(chan struct{})
	_, err := consumer.ExpressInterest(mustName(t, "/nobody/DATA/1"), 30*time.Millisecond, nil,
		func(name enc.Name, payload []byte) { t.Fatal("unexpected reply") },
		func(name enc.Name) { close(timedOut) },
	)
	assert.NoError(t, err)

	select {
	case <-timedOut:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected timeout")
	}
}

func TestMemTransportPartitionForcesTimeout(t *testing.T) {
	net := rs.NewMemNetwork()
	sched := rs.NewScheduler()
	producer := rs.NewMemTransport(net, "producer", sched)
	consumer := rs.NewMemTransport(net, "consumer", sched)

	_, err := producer.RegisterInterestHandler(mustName(t, "/roundsync/DATA"), func(name enc.Name, reply rs.ReplyFunc) {
		_ = reply([]byte("should not reach consumer"))
	})
	assert.NoError(t, err)

	net.SetPartitioned("consumer", true)

	timedOut := make(chan struct{})
	_, err = consumer.ExpressInterest(mustName(t, "/roundsync/DATA/1"), 30*time.Millisecond, nil,
		func(name enc.Name, payload []byte) { t.Fatal("unexpected reply across partition") },
		func(name enc.Name) { close(timedOut) },
	)
	assert.NoError(t, err)

	select {
	case <-timedOut:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected timeout while partitioned")
	}
}
