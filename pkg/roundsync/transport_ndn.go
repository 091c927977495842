/*
 NdnTransport wires Transport to a real go-ndn engine, adapted from the
 teacher's sharedSync.Listen/onInterest/PublishData/sendInterest in
 pkg/svs/shared_sync.go: AttachHandler+RegisterRoute to serve, Express
 to fetch, a bbolt-backed store.ContentStore standing in for
 the teacher's own BoltDB cache of already-produced payloads. Payloads
 crossing this boundary are already signed opaque blobs (Logic owns the
 Signer/Verifier); this file never looks inside them.
*/

package roundsync

import (
	"sync/atomic"
	"time"

	log "github.com/apex/log"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	eng "github.com/zjkmxy/go-ndn/pkg/engine/basic"
	ndn "github.com/zjkmxy/go-ndn/pkg/ndn"
	sec "github.com/zjkmxy/go-ndn/pkg/security"
	utl "github.com/zjkmxy/go-ndn/pkg/utils"

	"github.com/ndn-tools/roundsync/store"
)

// NdnTransport is a Transport backed by a go-ndn basic engine. The
// engine-level Data signature (sec.NewSha256Signer, as in the teacher's
// PublishData) is a separate, lower layer from the application-level
// Signer/Verifier Logic applies to its own content.
type NdnTransport struct {
	app       *eng.Engine
	cache     store.ContentStore
	ndnSigner ndn.Signer
	logger    *log.Entry
	intCfg    *ndn.InterestConfig
	datCfg    *ndn.DataConfig
	nextReg   uint64
}

// NewNdnTransport wraps app, using cache to re-serve already-produced
// Data wire encodings to late interests.
func NewNdnTransport(app *eng.Engine, cache store.ContentStore, constants *Constants) *NdnTransport {
	return &NdnTransport{
		app:       app,
		cache:     cache,
		ndnSigner: sec.NewSha256Signer(),
		logger:    log.WithField("module", "roundsync-transport"),
		intCfg: &ndn.InterestConfig{
			MustBeFresh: true,
			CanBePrefix: true,
			Lifetime:    utl.IdPtr(constants.DataInterestLifeTime),
		},
		datCfg: &ndn.DataConfig{
			ContentType: utl.IdPtr(ndn.ContentTypeBlob),
			Freshness:   utl.IdPtr(constants.DataFreshness),
		},
	}
}

func (t *NdnTransport) RegisterInterestHandler(prefix enc.Name, handler ReplyHandler) (RegistrationID, error) {
	err := t.app.AttachHandler(prefix, func(interest ndn.Interest, rawInterest enc.Wire, sigCovered enc.Wire, reply ndn.ReplyFunc, deadline time.Time) {
		if cached := t.cache.Get(interest.Name().Bytes()); cached != nil {
			if err := reply(enc.Wire{cached}); err != nil {
				t.logger.Errorf("unable to reply from cache: %+v", err)
			}
			return
		}
		handler(interest.Name(), func(payload []byte) error {
			wire, _, err := t.app.Spec().MakeData(interest.Name(), t.datCfg, enc.Wire{payload}, t.ndnSigner)
			if err != nil {
				return err
			}
			bytes := wire.Join()
			t.cache.Set(interest.Name().Bytes(), bytes)
			return reply(enc.Wire{bytes})
		})
	})
	if err != nil {
		return 0, err
	}
	if err := t.app.RegisterRoute(prefix); err != nil {
		return 0, err
	}
	id := atomic.AddUint64(&t.nextReg, 1)
	return RegistrationID(id), nil
}

func (t *NdnTransport) ExpressInterest(name enc.Name, lifetime time.Duration, excludeFilter []byte, onReply OnReply, onTimeout OnTimeout) (PendingID, error) {
	cfg := &ndn.InterestConfig{
		MustBeFresh: t.intCfg.MustBeFresh,
		CanBePrefix: t.intCfg.CanBePrefix,
		Lifetime:    utl.IdPtr(lifetime),
	}
	wire, _, finalName, err := t.app.Spec().MakeInterest(name, cfg, nil, nil)
	if err != nil {
		return 0, err
	}
	err = t.app.Express(finalName, cfg, wire,
		func(result ndn.InterestResult, data ndn.Data, rawData, sigCovered enc.Wire, nackReason uint64) {
			if result != ndn.InterestResultData {
				if onTimeout != nil {
					onTimeout(name)
				}
				return
			}
			if onReply != nil {
				onReply(name, data.Content().Join())
			}
		})
	if err != nil {
		return 0, err
	}
	return PendingID(atomic.AddUint64(&t.nextReg, 1)), nil
}

func (t *NdnTransport) RemovePending(id PendingID) {
	// go-ndn's basic engine has no pending-interest cancellation hook,
	// so this is a no-op: the interest's reply or timeout callback still
	// fires later.
}

func (t *NdnTransport) PutData(name enc.Name, payload []byte) error {
	wire, _, err := t.app.Spec().MakeData(name, t.datCfg, enc.Wire{payload}, t.ndnSigner)
	if err != nil {
		return err
	}
	t.cache.Set(name.Bytes(), wire.Join())
	return nil
}
