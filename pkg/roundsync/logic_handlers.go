/*
 The reactive half of Logic (4.E): handlers for incoming DataInterest,
 SyncInterest and RecoInterest, the replies and timeouts those produce
 on the fetching side, recovery detection, and the periodic cumulative-
 digest stabilization sweep. Grounded the same way logic.go is: the
 shape of "register handlers, react to replies/timeouts, run a periodic
 maintenance pass" follows the teacher's sharedSync/twoStateCore
 pairing, while the round/digest/recovery policy itself is built fresh
 from spec.md §4.E.
*/

package roundsync

import (
	"math/rand"
	"time"

	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
)

// handleDataInterest answers a DataInterest for round's own-session
// content, replying immediately if it is already on hand and otherwise
// deferring the reply until UpdateSeqNo or produceCumulativeOnly
// produces it.
func (l *Logic) handleDataInterest(name enc.Name, reply ReplyFunc) {
	round, err := ParseDataName(l.syncPrefix, name)
	if err != nil {
		return
	}

	if round < l.currentRound {
		if diff, ok := l.diffLog.Find(round); ok {
			l.replyWithDiff(reply, diff)
		}
		return
	}

	if round > l.currentRound {
		l.moveToNewCurrentRound(round)
	}

	diff := l.ensureDiffState(round)
	if l.replyWithDiff(reply, diff) {
		return
	}
	l.pendingInterest = &pendingDataInterest{round: round, reply: reply}
}

// handleSyncInterest reacts to a peer announcing (round, round_digest):
// a round at or beyond ours means we are behind and should catch up; an
// already-recovered-past round is stale and ignored; otherwise the
// announced digest is checked against our own record of that round.
func (l *Logic) handleSyncInterest(name enc.Name, reply ReplyFunc) {
	round, digest, err := ParseSyncName(l.syncPrefix, name)
	if err != nil {
		return
	}
	if round >= l.currentRound {
		l.moveToNewCurrentRound(round + 1)
		return
	}
	if round <= l.lastRecoveryRound {
		return
	}
	l.checkRoundDigests(round, digest)
}

// checkRoundDigests compares a peer's announced round_digest for round
// against this node's own record of it. A round this node has no log
// entry for at all only gets fished for; one it already holds gets
// fished on any digest mismatch, plus its own SyncInterest
// reexpression re-armed.
func (l *Logic) checkRoundDigests(round uint64, digest [32]byte) {
	diff, ok := l.diffLog.Find(round)
	if !ok {
		l.sched.Schedule(0, func() { l.sendDataInterest(round, 0) })
		return
	}
	if diff.RoundDigest() != digest {
		l.sched.Schedule(0, func() { l.sendDataInterest(round, 0) })
		l.scheduleSyncReexpress(diff, round, l.constants.RoundDigestDelay)
	}
}

// handleRecoInterest answers a RecoInterest with a full snapshot of this
// node's current State, stamped with the highest round it already
// closed (current_round - 1).
func (l *Logic) handleRecoInterest(name enc.Name, reply ReplyFunc) {
	var round uint64
	if l.currentRound > 0 {
		round = l.currentRound - 1
	}
	payload := EncodeRecoData(&RecoData{Round: round, State: l.state.Copy()})
	signed, err := l.signer.Sign(payload)
	if err != nil {
		l.logger.Errorf("unable to sign recovery reply: %+v", err)
		return
	}
	if err := reply(EncodeSignedPayload(signed)); err != nil {
		l.logger.Errorf("unable to send recovery reply: %+v", err)
	}
}

// onDataReply merges one round's reply into this node's state, per the
// three DataContent variants (4.D): DataOnly and DataAndCumulative
// leaves advance l.state (and oldState too, for a round at or below
// last_recovery_round while stable_round is still 0 after a recovery);
// any CumulativeDigest present triggers a recovery check; a
// CumulativeOnly reply's sole content is the sender's own sentinel
// leaf, recorded but never surfaced to the application.
func (l *Logic) onDataReply(round uint64, payload []byte) {
	content, ok := l.verifyPayload(payload)
	if !ok {
		return
	}
	data, err := DecodeDataContent(content)
	if err != nil {
		l.logger.Warnf("dropping malformed DataContent for round %d: %+v", round, err)
		return
	}
	if round <= l.stableRound {
		return
	}

	commit := l.ensureDiffState(round)

	if data.CumulativeDigest != nil {
		l.checkRecovery(data.UserPrefix, data.CumulativeRound, *data.CumulativeDigest)
	}

	switch data.Kind() {
	case KindCumulativeOnly:
		commit.MarkSeen(data.UserPrefix.String())
		commit.State.Update(data.UserPrefix, CumulativeOnlySeqNo)

	case KindDataOnly, KindDataAndCumulative:
		var updates []MissingData
		data.State.Leaves(func(leaf *Leaf) bool {
			commit.MarkSeen(leaf.NameStr())
			commit.State.Update(leaf.Name(), leaf.SeqNo())

			inserted, updated, old := l.state.Update(leaf.Name(), leaf.SeqNo())
			if round <= l.lastRecoveryRound && l.stableRound == 0 {
				l.oldState.Update(leaf.Name(), leaf.SeqNo())
			}
			if inserted || updated {
				updates = append(updates, newMissingData(leaf.NameStr(), old+1, leaf.SeqNo()))
			}
			return true
		})
		if len(updates) > 0 && l.onUpdate != nil {
			l.onUpdate(updates)
		}
	}

	if round == l.currentRound {
		l.moveToNewCurrentRound(l.currentRound + 1)
	}

	if round <= l.stabilizingRound {
		l.sched.Cancel(l.stabilizeTimerID)
		l.armStabilizeTimer(l.constants.StabilizeCumulativeDigestDelay)
	}

	l.scheduleSyncReexpress(commit, round, l.constants.RoundDigestDelay)
}

// checkRecovery reacts to a peer's (cumulative_round, cumulative_digest)
// announcement: any scheduled CumulativeOnly emission for the same
// digest is superseded and canceled; a digest ahead of what this node
// has already recovered past triggers a RecoInterest, one outstanding
// per peer; if this node's own record of cumulative_round already
// carries a different cumulative digest, it schedules a
// jittered CumulativeOnly reply of its own so later DataInterests for
// that round don't need the full per-round State.
func (l *Logic) checkRecovery(peer enc.Name, cumulativeRound uint64, cumulativeDigest [32]byte) {
	if id, ok := l.cumulativeDigestToEventID[cumulativeDigest]; ok {
		l.sched.Cancel(id)
		delete(l.cumulativeDigestToEventID, cumulativeDigest)
	}

	if cumulativeRound > l.lastRecoveryRound && cumulativeRound >= l.stableRound {
		peerStr := peer.String()
		if _, pending := l.pendingRecoveryPrefixes[peerStr]; !pending {
			l.pendingRecoveryPrefixes[peerStr] = struct{}{}
			l.sendRecoInterest(peer)
		}
		l.recoveryDesired = false
	}

	if diff, ok := l.diffLog.Find(cumulativeRound); ok && diff.HasCumulativeDigest() && diff.CumulativeDigest() != cumulativeDigest {
		l.scheduleCumulativeOnly(cumulativeRound, diff.CumulativeDigest())
	}
}

// scheduleCumulativeOnly arms a single jittered CumulativeOnly emission
// for (round, digest), replacing any earlier one scheduled for the same
// digest.
func (l *Logic) scheduleCumulativeOnly(round uint64, digest [32]byte) {
	if id, ok := l.cumulativeDigestToEventID[digest]; ok {
		l.sched.Cancel(id)
	}
	delay := l.cumulativeOnlyDelay()
	id := l.sched.Schedule(delay, func() { l.produceCumulativeOnly(round, digest) })
	l.cumulativeDigestToEventID[digest] = id
}

func (l *Logic) cumulativeOnlyDelay() time.Duration {
	min := l.constants.DelaySendingCumulativeOnlyMin
	max := l.constants.DelaySendingCumulativeOnlyMax
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// sendRecoInterest expresses a RecoInterest at peer's own RECO prefix.
func (l *Logic) sendRecoInterest(peer enc.Name) {
	name := RecoName(peer)
	_, err := l.transport.ExpressInterest(name, l.constants.DataInterestLifeTime, nil,
		func(respName enc.Name, payload []byte) { l.onRecoReply(peer, payload) },
		func(respName enc.Name) { l.onRecoTimeout(peer) },
	)
	if err != nil {
		l.logger.Errorf("unable to express RecoInterest: %+v", err)
	}
}

// onRecoReply folds a recovery snapshot into this node's state. The
// peer's own round only moves current_round forward when it is at or
// beyond this node's; otherwise this node is already ahead of the
// peer and last_recovery_round instead trails one behind current_round.
// Either way stabilizing_round resets to last_recovery_round so the
// next stabilization sweep starts folding from the recovery point
// rather than from wherever it last stopped, and the most recent
// BackUnstableRounds rounds up to and including the peer's round (never
// below round 1) are re-fished so any content produced alongside the
// recovery point is not silently skipped.
func (l *Logic) onRecoReply(peer enc.Name, payload []byte) {
	peerStr := peer.String()
	delete(l.pendingRecoveryPrefixes, peerStr)
	delete(l.recoTimeoutCounts, peerStr)

	content, ok := l.verifyPayload(payload)
	if !ok {
		return
	}
	reco, err := DecodeRecoData(content)
	if err != nil {
		l.logger.Warnf("dropping malformed RecoveryData from %s: %+v", peerStr, err)
		return
	}

	var updates []MissingData
	reco.State.Leaves(func(leaf *Leaf) bool {
		inserted, updated, old := l.state.Update(leaf.Name(), leaf.SeqNo())
		if inserted || updated {
			updates = append(updates, newMissingData(leaf.NameStr(), old+1, leaf.SeqNo()))
		}
		return true
	})
	if len(updates) > 0 && l.onUpdate != nil {
		l.onUpdate(updates)
	}

	if reco.Round >= l.currentRound {
		l.lastRecoveryRound = reco.Round
		l.moveToNewCurrentRoundAfterRecovery(reco.Round + 1)
	} else {
		l.lastRecoveryRound = l.currentRound - 1
	}
	l.stabilizingRound = l.lastRecoveryRound
	l.stableRound = 0
	l.oldState = l.state.Copy()

	back := l.constants.BackUnstableRounds
	start := uint64(1)
	if reco.Round >= back {
		start = reco.Round - back + 1
	}
	for r := start; r <= reco.Round; r++ {
		round := r
		l.sched.Schedule(0, func() { l.sendDataInterest(round, 0) })
	}

	l.sched.Cancel(l.stabilizeTimerID)
	l.armStabilizeTimer(l.constants.StabilizeCumulativeDigestDelay)
}

// onDataTimeout re-expresses a DataInterest until round has timed out
// MaxDataInterestTimeouts times in total. From the
// MaxDataInterestToCumulativeOnly-th timeout of round on, if this node
// already holds a cumulative digest for round, each timeout also
// schedules this node's own jittered CumulativeOnly announcement of it.
func (l *Logic) onDataTimeout(round uint64, retries uint) {
	if round == l.currentRound {
		l.currentRoundTimeouts++
	}
	l.dataTimeoutCounts[round]++
	count := l.dataTimeoutCounts[round]

	if count >= l.constants.MaxDataInterestToCumulativeOnly {
		if diff, ok := l.diffLog.Find(round); ok && diff.HasCumulativeDigest() {
			l.scheduleCumulativeOnly(round, diff.CumulativeDigest())
		}
	}

	if count >= l.constants.MaxDataInterestTimeouts {
		delete(l.dataTimeoutCounts, round)
		return
	}
	l.sched.Schedule(0, func() { l.sendDataInterest(round, retries+1) })
}

// onRecoTimeout re-expresses a RecoInterest until it has timed out
// MaxRecoInterestTimeouts times, then gives up on this peer, dropping it
// from the pending set, and sets recovery_desired after
// RetryCheckRecoveryDelay. checkRecovery does not read that flag; the
// peer is asked again only when a later cumulative announcement reaches
// checkRecovery.
func (l *Logic) onRecoTimeout(peer enc.Name) {
	peerStr := peer.String()
	l.recoTimeoutCounts[peerStr]++
	if l.recoTimeoutCounts[peerStr] >= l.constants.MaxRecoInterestTimeouts {
		delete(l.pendingRecoveryPrefixes, peerStr)
		delete(l.recoTimeoutCounts, peerStr)
		l.sched.Schedule(l.constants.RetryCheckRecoveryDelay, func() { l.recoveryDesired = true })
		return
	}
	l.sched.Schedule(0, func() { l.sendRecoInterest(peer) })
}

// armStabilizeTimer (re-)schedules the periodic stabilization sweep.
func (l *Logic) armStabilizeTimer(delay time.Duration) {
	l.stabilizeTimerID = l.sched.Schedule(delay, l.setStableState)
}

// setStableState is the periodic stabilization sweep: every round from
// stable_round+1 through the previous sweep's stabilizing_round is
// folded into oldState and chained into a cumulative digest, advancing
// stable_round to that point; stabilizing_round is then moved halfway
// from the new stable_round to current_round, so a round only becomes
// stable once it has survived at least one full sweep untouched.
func (l *Logic) setStableState() {
	if l.stabilizingRound > l.stableRound {
		prevDigest := EmptyDigest
		if prevDiff, ok := l.diffLog.Find(l.stableRound); ok {
			prevDigest = prevDiff.CumulativeDigest()
		}
		for r := l.stableRound + 1; r <= l.stabilizingRound; r++ {
			diff := l.ensureDiffState(r)
			if !diff.roundDigestSet {
				diff.UpdateRoundDigest()
			}
			diff.UpdateCumulativeDigest(prevDigest)
			prevDigest = diff.CumulativeDigest()
			l.oldState.Add(diff.State)
		}
		l.stableRound = l.stabilizingRound
	}

	if l.currentRound > l.stableRound {
		l.stabilizingRound = l.stableRound + (l.currentRound-l.stableRound)/2
	} else {
		l.stabilizingRound = l.stableRound
	}

	l.armStabilizeTimer(l.constants.StabilizeCumulativeDigestDelay)
}

// produceCumulativeOnly appends a sentinel (CumulativeOnlySeqNo) leaf
// for this node's own session to round, carrying a CumulativeInfo that
// re-announces (source round, source digest) instead of fresh
// application data, then advances current_round as an ordinary own
// production would.
func (l *Logic) produceCumulativeOnly(sourceRound uint64, sourceDigest [32]byte) {
	diff := l.ensureDiffState(l.currentRound)
	diff.State.Update(l.sessionName, CumulativeOnlySeqNo)
	diff.SetCumulativeInfo(&CumulativeInfo{SourceRound: sourceRound, SourceDigest: sourceDigest})

	if l.pendingInterest != nil && l.pendingInterest.round == l.currentRound {
		if l.replyWithDiff(l.pendingInterest.reply, diff) {
			l.pendingInterest = nil
		}
	}

	round := l.currentRound
	l.scheduleSyncReexpress(diff, round, 0)
	l.moveToNewCurrentRound(l.currentRound + 1)
}
