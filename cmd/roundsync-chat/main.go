/*
 roundsync-chat is the interactive example, generalizing the teacher's
 examples/svs/high-level/chat: round-sync's Logic only tracks seq_no
 per session (spec.md §3's dataset model), so the chat text itself is
 carried on a side channel this example owns — each session serves its
 own messages at <user_prefix>/MSG/<seqno> over the same Transport, and
 fetches a peer's message as soon as the update callback reports a new
 seq_no for that peer.
*/

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/apex/log"
	kyb "github.com/eiannone/keyboard"
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

var msgComp, _ = enc.ComponentFromStr("MSG")

func messageName(userPrefix enc.Name, seq uint64) enc.Name {
	name := make(enc.Name, 0, len(userPrefix)+2)
	name = append(name, userPrefix...)
	name = append(name, msgComp)
	name = append(name, enc.NewSequenceNumComponent(seq))
	return name
}

func main() {
	var input string
	var inputMutex sync.Mutex

	log.SetLevel(log.WarnLevel)
	logger := log.WithField("module", "main")

	source := flag.String("source", "", "this node's user prefix, e.g. /alice")
	prefix := flag.String("prefix", "/roundsync", "the sync group's shared prefix")
	dbPath := flag.String("db", "", "path to the transport's content-cache database; defaults to <source>_roundsync_bolt.db")
	flag.Parse()
	if *source == "" {
		logger.Errorf("a -source is required to participate")
		return
	}
	if *dbPath == "" {
		*dbPath = strings.ReplaceAll(strings.TrimPrefix(*source, "/"), "/", "_") + "_roundsync_bolt.db"
	}

	timer := eng.NewTimer()
	face := eng.NewStreamFace("unix", "/var/run/nfd.sock", true)
	app := eng.NewEngine(face, timer, sec.NewSha256IntSigner(timer), passAll)
	if err := app.Start(); err != nil {
		logger.Errorf("unable to start engine: %+v", err)
		return
	}
	defer app.Shutdown()

	syncPrefix, _ := enc.NameFromStr(*prefix)
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

	var messages sync.Map // seq uint64 -> text string, this session's own only

	printLine := func(text string) {
		inputMutex.Lock()
		fmt.Print("\n\033[1F\033[K")
		fmt.Println(text)
		fmt.Print(input)
		inputMutex.Unlock()
	}

	onUpdate := func(updates []rs.MissingData) {
		for _, m := range updates {
			session, low, high := m.Session(), m.LowSeqNo(), m.HighSeqNo()
			peerPrefix, err := enc.NameFromStr(session)
			if err != nil {
				continue
			}
			for seq := low; seq <= high; seq++ {
				seq := seq
				_, err := transport.ExpressInterest(messageName(peerPrefix, seq), constants.DataInterestLifeTime, nil,
					func(name enc.Name, payload []byte) {
						printLine(session + ": " + string(payload))
					},
					func(name enc.Name) {
						printLine(session + ": <unfetchable>")
					},
				)
				if err != nil {
					logger.Errorf("unable to fetch message: %+v", err)
				}
			}
		}
	}

	logic := rs.NewLogic(&rs.Config{
		SyncPrefix: syncPrefix,
		UserPrefix: userPrefix,
		Transport:  transport,
		Scheduler:  rs.NewScheduler(),
		OnUpdate:   onUpdate,
		Constants:  constants,
	})
	defer logic.Shutdown()

	sessionName := logic.SessionName()
	_, err = transport.RegisterInterestHandler(sessionName, func(name enc.Name, reply rs.ReplyFunc) {
		if len(name) != len(sessionName)+2 {
			return
		}
		seq, decErr := messageSeq(name, len(sessionName))
		if decErr != nil {
			return
		}
		text, ok := messages.Load(seq)
		if !ok {
			return
		}
		_ = reply([]byte(text.(string)))
	})
	if err != nil {
		logger.Errorf("unable to register message handler: %+v", err)
		return
	}

	fmt.Println("Entered the chatroom " + syncPrefix.String() + " as " + sessionName.String() + ".")

	if err := kyb.Open(); err != nil {
		panic(err)
	}
	defer func() {
		_ = kyb.Close()
	}()

	fmt.Println("To leave, Press CTRL-C.")

	var seq uint64
InputLoop:
	for {
		char, key, err := kyb.GetKey()
		if err != nil {
			panic(err)
		}
		inputMutex.Lock()
		switch key {
		case kyb.KeyEnter:
			fmt.Print("\n\033[1F\033[K")
			if strings.TrimSpace(input) != "" {
				seq++
				messages.Store(seq, input)
				logic.UpdateSeqNo(seq)
				fmt.Println(sessionName.String() + ": " + input)
			}
			input = ""
		case kyb.KeyBackspace, kyb.KeyBackspace2:
			if last := len(input) - 1; last >= 0 {
				input = input[:last]
			}
			fmt.Print("\n\033[1F\033[K")
			fmt.Print(input)
		case kyb.KeyCtrlC:
			fmt.Print("\n\033[1F\033[K")
			fmt.Println("Left the chatroom, exiting.")
			inputMutex.Unlock()
			break InputLoop
		case kyb.KeySpace:
			input += " "
			fmt.Print(" ")
		default:
			input += string(char)
			fmt.Print(string(char))
		}
		inputMutex.Unlock()
	}

	if err := os.Remove(*dbPath); err != nil {
		logger.Infof("unable to remove the content cache that was created: %+v", err)
	} else {
		logger.Info("removed the content cache that was created")
	}
	time.Sleep(50 * time.Millisecond)
}

func messageSeq(name enc.Name, prefixLen int) (uint64, error) {
	return rs.ParseSequenceComponent(name[prefixLen+1])
}
