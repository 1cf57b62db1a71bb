package db

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/helmwatch/nmea-ingest/internal/types"
)

type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// CreateSession records a new ingest session
func (c *Client) CreateSession(session *types.IngestSession) error {
	query := `
		INSERT INTO ingest_sessions (
			session_id, source, started_at, sentences, errors
		) VALUES ($1, $2, $3, $4, $5)
	`
	_, err := c.db.Exec(query,
		session.SessionID, session.Source, session.StartedAt,
		session.Sentences, session.Errors,
	)
	return err
}

// UpdateSession updates the counters and end time of an ingest session
func (c *Client) UpdateSession(session *types.IngestSession) error {
	query := `
		UPDATE ingest_sessions SET
			ended_at = $1, sentences = $2, errors = $3
		WHERE session_id = $4
	`
	_, err := c.db.Exec(query,
		session.EndedAt, session.Sentences, session.Errors,
		session.SessionID,
	)
	return err
}

// GetOpenSessions retrieves sessions without an end time
func (c *Client) GetOpenSessions() ([]*types.IngestSession, error) {
	query := `
		SELECT session_id, source, started_at, ended_at, sentences, errors
		FROM ingest_sessions
		WHERE ended_at IS NULL
	`
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*types.IngestSession
	for rows.Next() {
		var s types.IngestSession
		if err := rows.Scan(
			&s.SessionID, &s.Source, &s.StartedAt, &s.EndedAt,
			&s.Sentences, &s.Errors,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// StoreErrorEvent stores one decode or connection error
func (c *Client) StoreErrorEvent(source string, e *types.NMEAError) error {
	query := `
		INSERT INTO nmea_errors (
			time, source, kind, message, raw
		) VALUES ($1, $2, $3, $4, $5)
	`
	_, err := c.db.Exec(query,
		e.Timestamp, source, string(e.Kind), e.Message, e.Raw,
	)
	return err
}

// StoreSystemStats stores system statistics
func (c *Client) StoreSystemStats(stats *types.SystemStats) error {
	query := `
		INSERT INTO system_stats (
			time, total_sentences, parsed_sentences, failed_sentences,
			checksum_failures, buffer_overflows, reconnects,
			snapshots_emitted, sentence_types, uptime_seconds
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	typesArray := make([]int64, len(stats.SentenceTypes))
	for i, v := range stats.SentenceTypes {
		typesArray[i] = int64(v)
	}

	_, err := c.db.Exec(query,
		time.Now(),
		stats.TotalSentences,
		stats.ParsedSentences,
		stats.FailedSentences,
		stats.ChecksumFailures,
		stats.BufferOverflows,
		stats.Reconnects,
		stats.SnapshotsEmitted,
		pq.Array(typesArray),
		int64(stats.Uptime.Seconds()),
	)

	return err
}

// GetSystemStats retrieves system statistics for a time range
func (c *Client) GetSystemStats(start, end time.Time) ([]map[string]interface{}, error) {
	query := `
		SELECT
			time, total_sentences, parsed_sentences, failed_sentences,
			checksum_failures, buffer_overflows, reconnects,
			snapshots_emitted, sentence_types, uptime_seconds
		FROM system_stats
		WHERE time BETWEEN $1 AND $2
		ORDER BY time DESC
	`

	rows, err := c.db.Query(query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []map[string]interface{}
	for rows.Next() {
		var (
			timestamp        time.Time
			totalSentences   int64
			parsedSentences  int64
			failedSentences  int64
			checksumFailures int64
			bufferOverflows  int64
			reconnects       int64
			snapshotsEmitted int64
			sentenceTypes    []int64
			uptimeSeconds    int64
		)

		if err := rows.Scan(
			&timestamp,
			&totalSentences,
			&parsedSentences,
			&failedSentences,
			&checksumFailures,
			&bufferOverflows,
			&reconnects,
			&snapshotsEmitted,
			pq.Array(&sentenceTypes),
			&uptimeSeconds,
		); err != nil {
			return nil, err
		}

		typeCounts := [types.SentenceTypeCount]uint64{}
		for i, v := range sentenceTypes {
			if i < len(typeCounts) {
				typeCounts[i] = uint64(v)
			}
		}

		stat := map[string]interface{}{
			"time":              timestamp,
			"total_sentences":   totalSentences,
			"parsed_sentences":  parsedSentences,
			"failed_sentences":  failedSentences,
			"checksum_failures": checksumFailures,
			"buffer_overflows":  bufferOverflows,
			"reconnects":        reconnects,
			"snapshots_emitted": snapshotsEmitted,
			"sentence_types":    typeCounts,
			"uptime_seconds":    uptimeSeconds,
		}

		stats = append(stats, stat)
	}

	return stats, rows.Err()
}
