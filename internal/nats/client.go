package nats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/helmwatch/nmea-ingest/internal/aggregate"
	"github.com/helmwatch/nmea-ingest/internal/types"
)

const (
	SubjectSnapshots = "nmea.snapshots"
	SubjectErrors    = "nmea.errors"
	SubjectStatus    = "nmea.status"
)

// SnapshotMsg carries one batched aggregate emission tagged with its source.
// Counts are the decode tally since the previous snapshot from this source.
type SnapshotMsg struct {
	Source    string               `json:"source"`
	Timestamp time.Time            `json:"timestamp"`
	Aggregate aggregate.Aggregate  `json:"aggregate"`
	Counts    types.SentenceCounts `json:"counts"`
}

// ErrorMsg carries one discrete error event.
type ErrorMsg struct {
	Source string          `json:"source"`
	Error  types.NMEAError `json:"error"`
}

// StatusMsg carries one connection status transition.
type StatusMsg struct {
	Source string            `json:"source"`
	Event  types.StatusEvent `json:"event"`
}

// Client represents a NATS client
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a new NATS client and ensures the NMEA stream exists
func New(url string) (*Client, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	// Create stream if it doesn't exist
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     "NMEA",
		Subjects: []string{SubjectSnapshots, SubjectErrors, SubjectStatus},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Client{
		conn: nc,
		js:   js,
	}, nil
}

// PublishSnapshot publishes a navigation snapshot
func (c *Client) PublishSnapshot(msg *SnapshotMsg) error {
	return c.publish(SubjectSnapshots, msg)
}

// PublishError publishes a decode or connection error event
func (c *Client) PublishError(msg *ErrorMsg) error {
	return c.publish(SubjectErrors, msg)
}

// PublishStatus publishes a connection status transition
func (c *Client) PublishStatus(msg *StatusMsg) error {
	return c.publish(SubjectStatus, msg)
}

func (c *Client) publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// SubscribeSnapshots subscribes to navigation snapshots
func (c *Client) SubscribeSnapshots(handler func(*SnapshotMsg)) error {
	_, err := c.js.Subscribe(SubjectSnapshots, func(msg *nats.Msg) {
		var snap SnapshotMsg
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			fmt.Printf("Error unmarshaling snapshot: %v\n", err)
			return
		}
		handler(&snap)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// SubscribeErrors subscribes to error events
func (c *Client) SubscribeErrors(handler func(*ErrorMsg)) error {
	_, err := c.js.Subscribe(SubjectErrors, func(msg *nats.Msg) {
		var ev ErrorMsg
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			fmt.Printf("Error unmarshaling error event: %v\n", err)
			return
		}
		handler(&ev)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// SubscribeStatus subscribes to connection status transitions
func (c *Client) SubscribeStatus(handler func(*StatusMsg)) error {
	_, err := c.js.Subscribe(SubjectStatus, func(msg *nats.Msg) {
		var ev StatusMsg
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			fmt.Printf("Error unmarshaling status event: %v\n", err)
			return
		}
		handler(&ev)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
