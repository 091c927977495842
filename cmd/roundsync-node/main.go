/*
 roundsync-node is the low-level example, generalizing the teacher's
 examples/svs/low-level/only_core: a single Logic instance wired
 straight to a go-ndn engine over a Unix-socket NFD face, periodically
 advancing its own seq_no and reporting whatever MissingData the
 callback reports.
*/

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/apex/log"
	enc "github.com/zjkmxy/go-ndn/pkg/encoding"
	eng "github.com/zjkmxy/go-ndn/pkg/engine/basic"
	ndn "github.com/zjkmxy/go-ndn/pkg/ndn"
	sec "github.com/zjkmxy/go-ndn/pkg/security"

	rs "github.com/ndn-tools/roundsync/pkg/roundsync"
	"github.com/ndn-tools/roundsync/store"
)

func passAll(enc.Name, enc.Wire, ndn.Signature) bool {
	return true
}

func main() {
	log.SetLevel(log.WarnLevel) // roundsync logs drops at Warn and failures at Error
	logger := log.WithField("module", "main")

	source := flag.String("source", "", "this node's user prefix, e.g. /alice")
	prefix := flag.String("prefix", "/roundsync", "the sync group's shared prefix")
	interval := flag.Uint("interval", 5000, "update frequency in milliseconds")
	dbPath := flag.String("db", "./roundsync_node_bolt.db", "path to the transport's content-cache database")
	flag.Parse()
	if *source == "" {
		logger.Errorf("a -source is required to participate")
		return
	}

	timer := eng.NewTimer()
	face := eng.NewStreamFace("unix", "/var/run/nfd/nfd.sock", true)
	app := eng.NewEngine(face, timer, sec.NewSha256IntSigner(timer), passAll)
	if err := app.Start(); err != nil {
		logger.Errorf("unable to start engine: %+v", err)
		return
	}
	defer app.Shutdown()

	syncPrefix, err := enc.NameFromStr(*prefix)
	if err != nil {
		logger.Errorf("invalid -prefix: %+v", err)
		return
	}
	userPrefix, err := enc.NameFromStr(*source)
	if err != nil {
		logger.Errorf("invalid -source: %+v", err)
		return
	}

	cache, err := store.Open(*dbPath, []byte("roundsync"))
	if err != nil {
		logger.Errorf("unable to open content cache: %+v", err)
		return
	}
	defer cache.Close()

	constants := rs.GetDefaultConstants()
	transport := rs.NewNdnTransport(app, cache, constants)
	scheduler := rs.NewScheduler()

	onUpdate := func(updates []rs.MissingData) {
		for _, m := range updates {
			for seq := m.LowSeqNo(); seq <= m.HighSeqNo(); seq++ {
				fmt.Printf("%s: %d\n", m.Session(), seq)
			}
		}
	}

	logic := rs.NewLogic(&rs.Config{
		SyncPrefix: syncPrefix,
		UserPrefix: userPrefix,
		Transport:  transport,
		Scheduler:  scheduler,
		OnUpdate:   onUpdate,
		Constants:  constants,
	})
	defer logic.Shutdown()

	fmt.Printf("Joined %s as %s.\n", syncPrefix.String(), logic.SessionName().String())

	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt, syscall.SIGTERM)
	send := time.NewTimer(time.Duration(*interval) * time.Millisecond)

	seq := uint64(0)
loopCount:
	for {
		select {
		case <-send.C:
			seq++
			logic.UpdateSeqNo(seq)
			send.Reset(time.Duration(*interval) * time.Millisecond)
		case <-sigChannel:
			if !send.Stop() {
				<-send.C
			}
			logger.Infof("received signal - exiting")
			break loopCount
		}
	}
}
