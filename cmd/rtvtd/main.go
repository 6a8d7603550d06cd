package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/profile"

	"github.com/vidrail/rtvt/transport"
	"github.com/vidrail/rtvt/wire"
)

// pollInterval bounds how long a single Poll call blocks waiting for a
// datagram before the poll loop re-checks for shutdown.
const pollInterval = 50 * time.Millisecond

// waitSigint blocks until a SIGINT arrives.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signal.Notify(signalSyn, os.Interrupt)
	<-signalSyn
}

// watchConfig re-applies the Logging block whenever the config file is
// written, so log level/format/caller-reporting can change without a
// restart. Limits and Timeouts are fixed at Endpoint construction — they
// size pools and feed the retransmission scheduler, and changing them
// under a live connection is not a documented part of the transport
// package's contract, so a full restart is required for those.
func watchConfig(path string, done <-chan struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithField("error", err).Warn("failed to start config file watcher, hot-reload disabled")
		return
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		log.WithField("error", err).Warn("failed to watch config file, hot-reload disabled")
		return
	}

	for {
		select {
		case <-done:
			return

		case e, ok := <-watcher.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if _, err := parseConfig(path); err != nil {
				log.WithField("error", err).Warn("config reload failed, keeping previous settings")
				continue
			}
			log.Info("reloaded logging configuration")

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithField("error", err).Warn("config file watcher errored")
		}
	}
}

func buildCallbacks(role transport.Role) transport.Callbacks {
	return transport.Callbacks{
		OnFrame: func(payload []byte, frameType wire.FrameType) {
			log.WithFields(log.Fields{"frame_type": frameType, "bytes": len(payload)}).Debug("frame delivered")
		},
		OnData: func(frameType wire.FrameType, payload []byte) {
			log.WithFields(log.Fields{"frame_type": frameType, "bytes": len(payload)}).Debug("data received")
		},
		OnConnect: func(connected bool) {
			log.WithField("connected", connected).Info("connection state changed")
		},
		OnMediaControl: func(frameType wire.FrameType, url string) {
			log.WithFields(log.Fields{"frame_type": frameType, "url": url}).Info("media control received")
		},
	}
}

func run(dc daemonConfig) error {
	sock, err := net.ListenUDP("udp", dc.localAddr)
	if err != nil {
		return err
	}

	cb := buildCallbacks(dc.role)

	var ep *transport.Endpoint
	if dc.role == transport.RoleTX {
		tx, err := transport.NewSender(sock, dc.cfg, cb)
		if err != nil {
			return err
		}
		ep = tx.Endpoint
	} else {
		rx, err := transport.NewReceiver(sock, dc.cfg, cb)
		if err != nil {
			return err
		}
		if err := rx.Connect(dc.peerAddr); err != nil {
			return err
		}
		ep = rx.Endpoint
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				if err := ep.Poll(pollInterval); err != nil {
					log.WithField("error", err).Warn("poll failed")
				}
			}
		}
	}()

	waitSigint()
	log.Info("shutting down...")
	close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return ep.Close(ctx)
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}
	configPath := os.Args[1]

	dc, err := parseConfig(configPath)
	if err != nil {
		log.WithField("error", err).Fatal("failed to parse config")
	}

	if dc.profiling {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	watchDone := make(chan struct{})
	go watchConfig(configPath, watchDone)
	defer close(watchDone)

	if err := run(dc); err != nil {
		log.WithField("error", err).Fatal("rtvtd exited with error")
	}
}
