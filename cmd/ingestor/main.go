package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/helmwatch/nmea-ingest/internal/config"
	"github.com/helmwatch/nmea-ingest/internal/connection"
	"github.com/helmwatch/nmea-ingest/internal/nats"
	"github.com/helmwatch/nmea-ingest/internal/types"
)

// Publisher interface for testability
type Publisher interface {
	PublishSnapshot(msg *nats.SnapshotMsg) error
	PublishError(msg *nats.ErrorMsg) error
	PublishStatus(msg *nats.StatusMsg) error
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client, err := nats.New(cfg.NATSURL)
	if err != nil {
		log.Printf("Failed to create NATS client: %v", err)
		os.Exit(1)
	}
	defer client.Close()

	mgr := connection.New(cfg.Connection)
	if err := mgr.Start(context.Background()); err != nil {
		log.Printf("Failed to start connection manager: %v", err)
		os.Exit(1)
	}

	source := cfg.Connection.Addr()
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		pumpSnapshots(mgr.Snapshots(), client, source)
	}()
	go func() {
		defer wg.Done()
		pumpErrors(mgr.Errors(), client, source)
	}()
	go func() {
		defer wg.Done()
		pumpStatus(mgr.Status(), client, source)
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	mgr.Stop() // closes the three channels, ending the pumps
	wg.Wait()
}

// pumpSnapshots forwards batched aggregate snapshots to NATS until the
// channel closes.
func pumpSnapshots(ch <-chan connection.Snapshot, pub Publisher, source string) {
	for snap := range ch {
		msg := &nats.SnapshotMsg{
			Source:    source,
			Timestamp: time.Now().UTC(),
			Aggregate: snap.Aggregate,
			Counts:    snap.Counts,
		}
		if err := pub.PublishSnapshot(msg); err != nil {
			log.Printf("Failed to publish snapshot: %v", err)
		}
	}
}

// pumpErrors forwards discrete error events to NATS until the channel closes.
func pumpErrors(ch <-chan types.NMEAError, pub Publisher, source string) {
	for e := range ch {
		msg := &nats.ErrorMsg{Source: source, Error: e}
		if err := pub.PublishError(msg); err != nil {
			log.Printf("Failed to publish error event: %v", err)
		}
	}
}

// pumpStatus forwards connection status transitions to NATS until the
// channel closes.
func pumpStatus(ch <-chan types.StatusEvent, pub Publisher, source string) {
	for ev := range ch {
		log.Printf("Connection %s: %s (attempt %d)", source, ev.Status, ev.Attempt)
		msg := &nats.StatusMsg{Source: source, Event: ev}
		if err := pub.PublishStatus(msg); err != nil {
			log.Printf("Failed to publish status event: %v", err)
		}
	}
}
