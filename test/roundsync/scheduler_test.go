package roundsync

import (
	"sync/atomic"
	"testing"
	"time"

	assert "github.com/stretchr/testify/assert"
	rs "github.com/ndn-tools/roundsync/pkg/roundsync"
)

func TestSchedulerFires(t *testing.T) {
	sched := rs.NewScheduler()
	var fired int32
	sched.Schedule(10*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestSchedulerCancelPreventsFire(t *testing.T) {
	sched := rs.NewScheduler()
	var fired int32
	id := sched.Schedule(20*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	sched.Cancel(id)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestSchedulerCancelAll(t *testing.T) {
	sched := rs.NewScheduler()
	var fired int32
	sched.Schedule(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	sched.Schedule(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	sched.CancelAll()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestAddJitterWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 20; i++ {
		d := rs.AddJitter(base, 0.5)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/2+time.Millisecond)
	}
}

func TestAddJitterZeroRandomnessIsIdentity(t *testing.T) {
	base := 50 * time.Millisecond
	assert.Equal(t, base, rs.AddJitter(base, 0))
}
