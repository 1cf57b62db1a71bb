package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helmwatch/nmea-ingest/internal/nats"
	"github.com/helmwatch/nmea-ingest/internal/storage"
)

func main() {
	if err := runLogger(); err != nil {
		log.Printf("Logger failed: %v", err)
		os.Exit(1)
	}
}

// runLogger contains the main application logic and can be tested
func runLogger() error {
	// Load configuration
	outputDir, natsURL := parseEnvironment()

	// Create NATS client
	client, err := nats.New(natsURL)
	if err != nil {
		return fmt.Errorf("failed to create NATS client: %w", err)
	}
	// Note: client.Close() will be called in the shutdown handler

	// Start the archive writer
	store := storage.New(outputDir)
	if err := store.Start(); err != nil {
		client.Close()
		return fmt.Errorf("failed to start storage: %w", err)
	}

	// Subscribe to navigation snapshots
	if err := client.SubscribeSnapshots(func(msg *nats.SnapshotMsg) {
		if err := writeRecord(store, "snapshot", msg); err != nil {
			log.Printf("Failed to write snapshot: %v", err)
		}
	}); err != nil {
		client.Close()
		return fmt.Errorf("failed to subscribe to snapshots: %w", err)
	}

	// Subscribe to error events
	if err := client.SubscribeErrors(func(msg *nats.ErrorMsg) {
		if err := writeRecord(store, "error", msg); err != nil {
			log.Printf("Failed to write error event: %v", err)
		}
	}); err != nil {
		client.Close()
		return fmt.Errorf("failed to subscribe to errors: %w", err)
	}

	// Subscribe to connection status transitions
	if err := client.SubscribeStatus(func(msg *nats.StatusMsg) {
		if err := writeRecord(store, "status", msg); err != nil {
			log.Printf("Failed to write status event: %v", err)
		}
	}); err != nil {
		client.Close()
		return fmt.Errorf("failed to subscribe to status: %w", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	client.Close()
	if err := store.Stop(); err != nil {
		log.Printf("Failed to stop storage: %v", err)
	}

	return nil
}

// archiveRecord is one line of the JSONL archive
type archiveRecord struct {
	Kind     string      `json:"kind"`
	LoggedAt time.Time   `json:"logged_at"`
	Payload  interface{} `json:"payload"`
}

// writeRecord appends one event to the daily archive file
func writeRecord(store *storage.Storage, kind string, payload interface{}) error {
	data, err := json.Marshal(archiveRecord{
		Kind:     kind,
		LoggedAt: time.Now().UTC(),
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return store.WriteRecord(data)
}

// parseEnvironment extracts environment variables with defaults
func parseEnvironment() (string, string) {
	outputDir := os.Getenv("OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "./logs" // Default output directory
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://nats:4222" // Default to Docker service name
	}

	return outputDir, natsURL
}
