/*
 MemTransport is an in-process Transport used by tests and the
 scenario walkthroughs in spec.md §8 (S1-S6): a shared registry of
 named handlers plus an optional partition hook, modeled on the
 teacher's in-memory test doubles under test/svs but built fresh here
 since round-sync's Transport shape (register/express/put_data) has no
 direct teacher analog to adapt.
*/

package roundsync

import (
	"fmt"
	"sync"
	"time"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// handlerEntry is one registrant at a given prefix, labeled by the
// MemTransport that registered it so tryHandlers can skip a node's own
// handler and so multiple peers sharing one sync_prefix (as every
// producer in a round-sync group does) coexist instead of the later
// registration silently replacing the earlier one. sched is the
// registering transport's own Scheduler: every call into handler is
// run on it rather than on whichever transport is currently expressing
// an interest, so a Logic's handlers only ever run on its own
// dispatcher goroutine, the same single-execution-context guarantee
// transport_ndn.go gets for free from owning one engine per node.
type handlerEntry struct {
	label   string
	sched   Scheduler
	handler ReplyHandler
}

// MemNetwork is a shared in-memory medium multiple MemTransports attach
// to, simulating one NDN forwarder's worth of prefix registration and
// interest/data exchange. Every registrant at a matching prefix is a
// candidate producer for an expressed Interest, tried in registration
// order, mirroring how an NDN FIB can forward one Interest toward more
// than one face registered under the same prefix.
type MemNetwork struct {
	mtx         sync.Mutex
	handlers    map[string][]handlerEntry
	partitioned map[string]bool
}

// NewMemNetwork returns an empty shared medium.
func NewMemNetwork() *MemNetwork {
	return &MemNetwork{
		handlers:    make(map[string][]handlerEntry),
		partitioned: make(map[string]bool),
	}
}

// SetPartitioned isolates or rejoins transport with the given label
// from the rest of the network, letting tests model S5/S6-style network
// partitions without tearing down a transport's state.
func (n *MemNetwork) SetPartitioned(label string, partitioned bool) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.partitioned[label] = partitioned
}

func (n *MemNetwork) isPartitioned(label string) bool {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.partitioned[label]
}

// MemTransport is a Transport backed by a MemNetwork. Every expressed
// interest is matched, after a zero-delay hop onto this transport's own
// Scheduler, against registered handlers whose prefix is a prefix of the
// requested name; an interest no handler answers times out once its
// lifetime elapses.
type MemTransport struct {
	net      *MemNetwork
	label    string
	sched    Scheduler
	mtx      sync.Mutex
	nextReg  RegistrationID
	nextPend PendingID
	prefixes map[RegistrationID]enc.Name
	pending  map[PendingID]struct{}
}

// NewMemTransport attaches a new transport to net, identified by label
// for partition simulation.
func NewMemTransport(net *MemNetwork, label string, sched Scheduler) *MemTransport {
	return &MemTransport{
		net:      net,
		label:    label,
		sched:    sched,
		prefixes: make(map[RegistrationID]enc.Name),
		pending:  make(map[PendingID]struct{}),
	}
}

func (t *MemTransport) RegisterInterestHandler(prefix enc.Name, handler ReplyHandler) (RegistrationID, error) {
	key := prefix.String()
	t.net.mtx.Lock()
	t.net.handlers[key] = append(t.net.handlers[key], handlerEntry{label: t.label, sched: t.sched, handler: handler})
	t.net.mtx.Unlock()

	t.mtx.Lock()
	t.nextReg++
	id := t.nextReg
	t.prefixes[id] = prefix
	t.mtx.Unlock()
	return id, nil
}

func (t *MemTransport) ExpressInterest(name enc.Name, lifetime time.Duration, excludeFilter []byte, onReply OnReply, onTimeout OnTimeout) (PendingID, error) {
	t.mtx.Lock()
	t.nextPend++
	id := t.nextPend
	t.pending[id] = struct{}{}
	t.mtx.Unlock()

	t.sched.Schedule(0, func() {
		t.mtx.Lock()
		_, live := t.pending[id]
		t.mtx.Unlock()
		if !live {
			return
		}
		if t.net.isPartitioned(t.label) {
			t.scheduleTimeout(id, lifetime, name, onTimeout)
			return
		}
		payload := t.tryHandlers(name)
		if payload == nil {
			t.scheduleTimeout(id, lifetime, name, onTimeout)
			return
		}
		t.mtx.Lock()
		_, live = t.pending[id]
		delete(t.pending, id)
		t.mtx.Unlock()
		if !live {
			return
		}
		if onReply != nil {
			onReply(name, payload)
		}
	})
	return id, nil
}

func (t *MemTransport) scheduleTimeout(id PendingID, lifetime time.Duration, name enc.Name, onTimeout OnTimeout) {
	t.sched.Schedule(lifetime, func() {
		t.mtx.Lock()
		_, live := t.pending[id]
		delete(t.pending, id)
		t.mtx.Unlock()
		if live && onTimeout != nil {
			onTimeout(name)
		}
	})
}

// tryHandlers calls every registered handler whose prefix matches name,
// skipping this transport's own registrations, until one synchronously
// produces a reply payload. This is what lets several peers sharing one
// sync_prefix (every producer in a round-sync group does) each answer
// Interests independently instead of one registrant's handler
// shadowing the rest, the way a single map entry keyed by bare prefix
// used to. Each candidate's handler runs on its own registering
// transport's Scheduler, not on t's, so two peers' Logic instances
// never touch each other's state from the wrong goroutine.
func (t *MemTransport) tryHandlers(name enc.Name) []byte {
	t.net.mtx.Lock()
	var candidates []handlerEntry
	for key, entries := range t.net.handlers {
		prefix, err := enc.NameFromStr(key)
		if err != nil || len(prefix) > len(name) || !prefix.Equal(name[:len(prefix)]) {
			continue
		}
		for _, e := range entries {
			if e.label == t.label {
				continue
			}
			candidates = append(candidates, e)
		}
	}
	t.net.mtx.Unlock()

	for _, e := range candidates {
		var payload []byte
		if e.sched == t.sched {
			// Already running on e's own dispatcher goroutine (both
			// transports share one Scheduler, as tests that only care
			// about transport plumbing do) — calling straight through
			// is both safe and avoids the cross-scheduler rendezvous
			// deadlocking against itself.
			e.handler(name, func(p []byte) error {
				payload = p
				return nil
			})
		} else {
			payload = e.invoke(name)
		}
		if payload != nil {
			return payload
		}
	}
	return nil
}

// invoke runs e's handler on e's own scheduler and blocks until it
// returns, so the caller's goroutine never executes foreign Logic code
// directly.
func (e handlerEntry) invoke(name enc.Name) []byte {
	result := make(chan []byte, 1)
	e.sched.Schedule(0, func() {
		var payload []byte
		e.handler(name, func(p []byte) error {
			payload = p
			return nil
		})
		result <- payload
	})
	return <-result
}

func (t *MemTransport) RemovePending(id PendingID) {
	t.mtx.Lock()
	delete(t.pending, id)
	t.mtx.Unlock()
}

func (t *MemTransport) PutData(name enc.Name, payload []byte) error {
	// Serving is pull-based in this medium: handlers answer interests
	// directly from Logic's own registered ReplyHandler, so PutData here
	// only validates the call shape for parity with transport_ndn.go.
	if payload == nil {
		return fmt.Errorf("roundsync: PutData called with nil payload for %s", name.String())
	}
	return nil
}
