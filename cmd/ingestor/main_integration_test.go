package main

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	natscontainer "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/helmwatch/nmea-ingest/internal/connection"
	"github.com/helmwatch/nmea-ingest/internal/nats"
	"github.com/helmwatch/nmea-ingest/internal/types"
)

func startNATS(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := natscontainer.Run(ctx, "nats:2.9-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server is ready"),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate NATS container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get NATS connection string: %v", err)
	}
	return url
}

// startFeed serves a fixed set of sentences to every TCP client.
func startFeed(t *testing.T, sentences []string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				for _, s := range sentences {
					c.Write([]byte(s + "\r\n"))
				}
				// Keep the connection open so the manager stays Connected.
				time.Sleep(time.Minute)
				c.Close()
			}(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

// TestIngestorFlow_Integration drives a sentence from a TCP feed through the
// connection manager and the NATS pumps to a subscriber.
func TestIngestorFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	natsURL := startNATS(t)
	port := startFeed(t, []string{
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
		"$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48",
	})

	client, err := nats.New(natsURL)
	if err != nil {
		t.Fatalf("Failed to create NATS client: %v", err)
	}
	defer client.Close()

	received := make(chan *nats.SnapshotMsg, 16)
	if err := client.SubscribeSnapshots(func(msg *nats.SnapshotMsg) {
		received <- msg
	}); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	statusReceived := make(chan *nats.StatusMsg, 16)
	if err := client.SubscribeStatus(func(msg *nats.StatusMsg) {
		statusReceived <- msg
	}); err != nil {
		t.Fatalf("Failed to subscribe to status: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	cfg := types.ConnectionConfig{
		Host:           "127.0.0.1",
		Port:           port,
		ConnectionType: types.ConnTCP,
		ConnectTimeout: 5 * time.Second,
		BackoffBase:    100 * time.Millisecond,
		BackoffCap:     time.Second,
	}
	mgr := connection.New(cfg)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start connection manager: %v", err)
	}
	defer mgr.Stop()

	source := cfg.Addr()
	go pumpSnapshots(mgr.Snapshots(), client, source)
	go pumpErrors(mgr.Errors(), client, source)
	go pumpStatus(mgr.Status(), client, source)

	// The status pump should forward the Connected transition.
	deadline := time.After(10 * time.Second)
	for {
		select {
		case msg := <-statusReceived:
			if msg.Event.Status == types.StatusConnected {
				goto connected
			}
		case <-deadline:
			t.Fatal("Timeout waiting for Connected status over NATS")
		}
	}
connected:

	select {
	case msg := <-received:
		if msg.Source != source {
			t.Errorf("Source = %q, want %q", msg.Source, source)
		}
		pos := msg.Aggregate.Position()
		if pos == nil || math.Abs(pos.Lat-48.1173) > 1e-4 {
			t.Errorf("snapshot position = %v, want lat 48.1173", pos)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Timeout waiting for snapshot over NATS")
	}
}
