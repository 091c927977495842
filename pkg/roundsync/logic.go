/*
 Logic is the synchronization state machine (4.E): current/stabilizing/
 stable/last-recovery round tracking plus the handlers that react to
 data-interests, sync-interests, reco-interests and their replies. It
 is grounded on the teacher's twoStateCore/sharedSync pairing in
 pkg/svs/twostate_core.go and pkg/svs/shared_sync.go — both glue a
 Constants-driven policy onto a Transport and a Scheduler — but the
 policy itself (rounds, digests, recovery) has no direct analog in
 State Vector Sync and is built fresh from spec.md §4.E here.
*/

package roundsync

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	log "github.com/apex/log"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

type pendingDataInterest struct {
	round uint64
	reply ReplyFunc
}

// Logic runs the round-based sync protocol for one local session over
// one sync_prefix. Every method is meant to be called from a single
// logical I/O execution context; Logic performs no internal locking.
type Logic struct {
	constants  *Constants
	transport  Transport
	sched      Scheduler
	signer     Signer
	verifier   Verifier
	onUpdate   UpdateCallback
	logger     *log.Entry

	syncPrefix  enc.Name
	userPrefix  enc.Name
	sessionName enc.Name
	sessionStr  string

	state    *State
	oldState *State
	diffLog  *DiffLog

	currentRound      uint64
	stabilizingRound  uint64
	stableRound       uint64
	lastRecoveryRound uint64
	recoveryDesired   bool

	seqNo uint64

	pendingInterest *pendingDataInterest

	outstandingDataName enc.Name
	outstandingDataID   PendingID

	currentRoundFishID EventID

	currentRoundTimeouts uint
	dataTimeoutCounts    map[uint64]uint

	pendingRecoveryPrefixes map[string]struct{}
	recoTimeoutCounts       map[string]uint

	cumulativeDigestToEventID map[[32]byte]EventID

	stabilizeTimerID EventID

	dataRegID RegistrationID
	syncRegID RegistrationID
	recoRegID RegistrationID
}

// Config collects everything Logic needs beyond its Constants.
type Config struct {
	SyncPrefix enc.Name
	UserPrefix enc.Name
	Transport  Transport
	Scheduler  Scheduler
	Signer     Signer
	Verifier   Verifier
	OnUpdate   UpdateCallback
	Constants  *Constants
}

// NewLogic builds a Logic at round 1 with empty State, derives a fresh
// session_name from UserPrefix plus a startup timestamp, and registers
// its interest handlers with the Transport.
func NewLogic(cfg *Config) *Logic {
	constants := cfg.Constants
	if constants == nil {
		constants = GetDefaultConstants()
	}
	signer := cfg.Signer
	if signer == nil {
		signer = NewSha256Signer()
	}
	verifier := cfg.Verifier
	if verifier == nil {
		verifier = NewSha256Verifier()
	}
	l := &Logic{
		constants:                 constants,
		transport:                 cfg.Transport,
		sched:                     cfg.Scheduler,
		signer:                    signer,
		verifier:                  verifier,
		onUpdate:                  cfg.OnUpdate,
		logger:                    log.WithField("module", "roundsync-logic"),
		syncPrefix:                cfg.SyncPrefix,
		userPrefix:                cfg.UserPrefix,
		sessionName:               sessionName(cfg.UserPrefix),
		state:                     newState(),
		oldState:                  newState(),
		diffLog:                   NewDiffLog(),
		currentRound:              1,
		dataTimeoutCounts:         make(map[uint64]uint),
		pendingRecoveryPrefixes:   make(map[string]struct{}),
		recoTimeoutCounts:         make(map[string]uint),
		cumulativeDigestToEventID: make(map[[32]byte]EventID),
	}
	l.sessionStr = l.sessionName.String()

	var err error
	l.dataRegID, err = l.transport.RegisterInterestHandler(DataName(l.syncPrefix, 0)[:len(l.syncPrefix)+1], l.handleDataInterest)
	if err != nil {
		l.logger.Errorf("unable to register DATA handler: %+v", err)
	}
	l.syncRegID, err = l.transport.RegisterInterestHandler(SyncName(l.syncPrefix, 0, EmptyDigest)[:len(l.syncPrefix)+1], l.handleSyncInterest)
	if err != nil {
		l.logger.Errorf("unable to register SYNC handler: %+v", err)
	}
	l.recoRegID, err = l.transport.RegisterInterestHandler(RecoName(l.sessionName), l.handleRecoInterest)
	if err != nil {
		l.logger.Errorf("unable to register RECO handler: %+v", err)
	}

	l.scheduleFish(l.currentRound)
	l.armStabilizeTimer(constants.StabilizeCumulativeDigestDelay)
	return l
}

func sessionName(userPrefix enc.Name) enc.Name {
	ts := time.Now().UnixNano()
	comp := enc.Component{Typ: enc.TypeGenericNameComponent, Val: appendVarint(nil, uint64(ts))}
	name := make(enc.Name, 0, len(userPrefix)+1)
	name = append(name, userPrefix...)
	name = append(name, comp)
	return name
}

// SessionName is this Logic's own producer session name.
func (l *Logic) SessionName() enc.Name { return l.sessionName }

// SeqNo is the local session's latest sequence number.
func (l *Logic) SeqNo() uint64 { return l.seqNo }

// State returns the current aggregate State (read-only use expected).
func (l *Logic) State() *State { return l.state }

// CurrentRound is the greatest round the node is actively fishing in.
func (l *Logic) CurrentRound() uint64 { return l.currentRound }

// StableRound is the highest round whose cumulative digest is committed.
func (l *Logic) StableRound() uint64 { return l.stableRound }

// RoundDigest returns the round_digest this node has committed for
// round, if its DiffLog holds an entry for it yet.
func (l *Logic) RoundDigest(round uint64) ([32]byte, bool) {
	diff, ok := l.diffLog.Find(round)
	if !ok {
		return [32]byte{}, false
	}
	return diff.RoundDigest(), true
}

// OutstandingDataInterestID is the node's own last DataInterest id,
// zero once self-satisfied (Testable Property 8).
func (l *Logic) OutstandingDataInterestID() PendingID { return l.outstandingDataID }

// Shutdown cancels every scheduled event. The Transport itself is owned
// by the caller and is not shut down here.
func (l *Logic) Shutdown() {
	l.sched.CancelAll()
}

// digestHex renders the first 4 bytes of a digest as hex, matching
// Leaf.String()'s short form — enough to tell digests apart in logs
// and dumps without printing the full 32 bytes.
func digestHex(d [32]byte) string {
	return hex.EncodeToString(d[:4])
}

// DumpState writes this node's current aggregate State, one leaf per
// line, for debugging and tests.
func (l *Logic) DumpState(w io.Writer) {
	fmt.Fprintf(w, "state digest=%s len=%d\n", digestHex(l.state.Digest()), l.state.Len())
	l.state.Leaves(func(leaf *Leaf) bool {
		fmt.Fprintf(w, "  %s -> %d\n", leaf.NameStr(), leaf.SeqNo())
		return true
	})
}

// DumpRoundLog writes every round held in the DiffLog, its digests and
// leaf count, for debugging and tests.
func (l *Logic) DumpRoundLog(w io.Writer) {
	fmt.Fprintf(w, "current=%d stabilizing=%d stable=%d lastRecovery=%d\n",
		l.currentRound, l.stabilizingRound, l.stableRound, l.lastRecoveryRound)
	l.diffLog.Range(func(round uint64, diff *DiffState) bool {
		fmt.Fprintf(w, "  round %d: leaves=%d round_digest=%s cumulative_digest=%s\n",
			round, diff.Len(), digestHex(diff.RoundDigest()), digestHex(diff.CumulativeDigest()))
		return true
	})
}

// UpdateSeqNo is the local production entrypoint (spec.md §4.E "On
// local updateSeqNo").
func (l *Logic) UpdateSeqNo(seq uint64) {
	if seq <= l.seqNo || seq == 0 {
		return
	}
	l.seqNo = seq
	l.state.Update(l.sessionName, seq)

	diff := l.ensureDiffState(l.currentRound)
	diff.State.Update(l.sessionName, seq)
	if l.stableRound > 0 {
		if stableDiff, ok := l.diffLog.Find(l.stableRound); ok {
			d := stableDiff.CumulativeDigest()
			diff.SetCumulativeInfo(&CumulativeInfo{SourceRound: l.stableRound, SourceDigest: d})
		}
	}

	if l.pendingInterest != nil && l.pendingInterest.round == l.currentRound {
		if l.replyWithDiff(l.pendingInterest.reply, diff) {
			l.pendingInterest = nil
		}
	}

	round := l.currentRound
	l.scheduleSyncReexpress(diff, round, 0)
	l.moveToNewCurrentRound(l.currentRound + 1)
}

// ensureDiffState returns the DiffLog entry for round, creating and
// inserting an empty one if absent.
func (l *Logic) ensureDiffState(round uint64) *DiffState {
	if d, ok := l.diffLog.Find(round); ok {
		return d
	}
	d := NewDiffState(round)
	_ = l.diffLog.Insert(d)
	return d
}

// replyWithDiff sends this round's own-session content as a DataContent,
// choosing the variant its shape implies. It reports whether a reply was
// actually sent: a round this session has not yet produced anything for
// sends nothing, leaving the caller free to queue the interest instead.
func (l *Logic) replyWithDiff(reply ReplyFunc, diff *DiffState) bool {
	sub, isCumulativeOnly := diff.GetStateFrom(l.sessionStr)
	if sub == nil {
		return false
	}
	content := l.dataContentFor(sub, isCumulativeOnly)
	l.sendReply(reply, EncodeDataContent(content), diff, l.sessionStr)
	return true
}

func (l *Logic) dataContentFor(sub *DiffState, isCumulativeOnly bool) *DataContent {
	content := &DataContent{}
	if info := sub.CumulativeInfo(); info != nil {
		digest := info.SourceDigest
		content.CumulativeDigest = &digest
		content.CumulativeRound = info.SourceRound
		content.UserPrefix = l.sessionName
	}
	if !isCumulativeOnly && sub.Len() > 0 {
		content.State = sub.State
	}
	return content
}

// sendReply signs and delivers payload via reply, records the response
// name into diff's exclude-filter, and cancels the node's own
// outstanding DataInterest if this reply self-satisfies it.
func (l *Logic) sendReply(reply ReplyFunc, payload []byte, diff *DiffState, respSuffix string) {
	signed, err := l.signer.Sign(payload)
	if err != nil {
		l.logger.Errorf("unable to sign reply: %+v", err)
		return
	}
	if err := reply(EncodeSignedPayload(signed)); err != nil {
		l.logger.Errorf("unable to send reply: %+v", err)
		return
	}
	diff.MarkSeen(respSuffix)
	if l.outstandingDataName != nil {
		if name := DataName(l.syncPrefix, diff.Round()); name.Equal(l.outstandingDataName) {
			l.transport.RemovePending(l.outstandingDataID)
			l.outstandingDataName = nil
			l.outstandingDataID = 0
		}
	}
}

// verifyPayload strips the Signer/Verifier envelope off an incoming
// reply, dropping it silently (per spec's "Signature verification
// failure: drop payload silently" handling) if framing or verification
// fails.
func (l *Logic) verifyPayload(payload []byte) ([]byte, bool) {
	signed, err := DecodeSignedPayload(payload)
	if err != nil {
		l.logger.Warnf("dropping malformed signed payload: %+v", err)
		return nil, false
	}
	content, ok := l.verifier.Verify(signed)
	if !ok {
		l.logger.Warn("dropping payload that failed verification")
		return nil, false
	}
	return content, true
}

func (l *Logic) scheduleSyncReexpress(diff *DiffState, round uint64, delay time.Duration) {
	l.sched.Cancel(diff.ReexpressSyncID())
	id := l.sched.Schedule(delay, func() {
		l.sendSyncInterest(round, diff.RoundDigest())
	})
	diff.SetReexpressSyncID(id)
}

func (l *Logic) sendSyncInterest(round uint64, digest [32]byte) {
	name := SyncName(l.syncPrefix, round, digest)
	_, err := l.transport.ExpressInterest(name, l.constants.SyncInterestLifeTime, nil, nil, nil)
	if err != nil {
		l.logger.Errorf("unable to express SyncInterest: %+v", err)
	}
}

func (l *Logic) scheduleFish(round uint64) {
	l.currentRoundFishID = l.sched.Schedule(0, func() {
		l.sendDataInterest(round, 0)
	})
}

func (l *Logic) sendDataInterest(round uint64, retries uint) {
	name := DataName(l.syncPrefix, round)
	var exclude []byte
	if diff, ok := l.diffLog.Find(round); ok {
		if b, err := diff.excludeFilterBytes(); err == nil {
			exclude = b
		}
	}
	id, err := l.transport.ExpressInterest(name, l.constants.DataInterestLifeTime, exclude,
		func(respName enc.Name, payload []byte) { l.onDataReply(round, payload) },
		func(respName enc.Name) { l.onDataTimeout(round, retries) },
	)
	if err != nil {
		l.logger.Errorf("unable to express DataInterest: %+v", err)
		return
	}
	if round == l.currentRound {
		l.outstandingDataName = name
		l.outstandingDataID = id
	}
}

// moveToNewCurrentRound advances current_round to Rnew, backfilling
// DataInterests for any rounds skipped unless the jump is too large to
// trust without a recovery.
func (l *Logic) moveToNewCurrentRound(Rnew uint64) {
	if Rnew-l.currentRound <= l.constants.MaxRoundsWithoutRecovery {
		for r := l.currentRound; r < Rnew; r++ {
			round := r
			l.sched.Schedule(0, func() { l.sendDataInterest(round, 0) })
		}
	} else {
		l.recoveryDesired = true
	}
	l.currentRound = Rnew
	l.currentRoundTimeouts = 0
	l.sched.Cancel(l.currentRoundFishID)
	l.scheduleFish(l.currentRound)
}

// moveToNewCurrentRoundAfterRecovery is the same transition without the
// backfill loop or recovery_desired side effect.
func (l *Logic) moveToNewCurrentRoundAfterRecovery(Rnew uint64) {
	l.currentRound = Rnew
	l.currentRoundTimeouts = 0
	l.sched.Cancel(l.currentRoundFishID)
	l.scheduleFish(l.currentRound)
}
