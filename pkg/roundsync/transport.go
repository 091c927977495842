/*
 Transport is the external glue spec.md §6 specifies: named-object
 fetch/register/pending-cancel over signed opaque byte blobs. Grounded
 on the teacher's sharedSync, which plays the same role gluing Core to
 a go-ndn engine (AttachHandler/RegisterRoute for serving, Express for
 fetching, a reply func for responding) but hardcoded to one concrete
 engine; here it is pulled out as an interface so transport_mem.go can
 stand in for tests and transport_ndn.go can wrap a real engine.
*/

package roundsync

import (
	"time"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// RegistrationID names a registered interest-prefix handler.
type RegistrationID uint64

// PendingID names an outstanding expressed interest.
type PendingID uint64

// ReplyFunc sends payload back as the Data for the interest a
// ReplyHandler was invoked for.
type ReplyFunc func(payload []byte) error

// ReplyHandler is invoked when an interest under a registered prefix
// arrives. reply is only valid for the duration of the call.
type ReplyHandler func(name enc.Name, reply ReplyFunc)

// OnReply is invoked with the Data payload satisfying an expressed
// interest.
type OnReply func(name enc.Name, payload []byte)

// OnTimeout is invoked when an expressed interest's lifetime elapses
// with no reply.
type OnTimeout func(name enc.Name)

// Transport is the named-object fetch/register/cancel surface Logic
// runs on. All calls and callbacks happen on the same logical I/O
// execution context; Logic performs no locking around its own state.
type Transport interface {
	// RegisterInterestHandler arranges for handler to be called whenever
	// an interest under prefix arrives.
	RegisterInterestHandler(prefix enc.Name, handler ReplyHandler) (RegistrationID, error)
	// ExpressInterest sends an interest for name, invoking onReply or
	// onTimeout exactly once. excludeFilter, if non-nil, is carried as
	// an exclusion hint so previously-seen responses aren't resent.
	ExpressInterest(name enc.Name, lifetime time.Duration, excludeFilter []byte, onReply OnReply, onTimeout OnTimeout) (PendingID, error)
	// RemovePending cancels an outstanding expressed interest; its
	// callbacks will not fire afterward. A no-op if id already resolved.
	RemovePending(id PendingID)
	// PutData serves name with payload to any pending peers and caches
	// it for late-arriving interests.
	PutData(name enc.Name, payload []byte) error
}
