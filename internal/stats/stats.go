package stats

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/helmwatch/nmea-ingest/internal/db"
	"github.com/helmwatch/nmea-ingest/internal/types"
)

// Stats tracks sentence processing statistics
type Stats struct {
	// Sentence counts
	TotalSentences   uint64
	ParsedSentences  uint64
	FailedSentences  uint64
	ChecksumFailures uint64
	BufferOverflows  uint64

	// Connection counts
	Reconnects       uint64
	SnapshotsEmitted uint64

	// Per sentence type counts, indexed by SentenceType.Index
	SentenceTypeCounts [types.SentenceTypeCount]uint64

	// Timing
	StartedAt        time.Time
	LastSentenceTime time.Time

	// Database client for persistence
	db *db.Client

	mu sync.RWMutex
}

// New creates a new Stats instance
func New() *Stats {
	now := time.Now()
	return &Stats{
		StartedAt:        now,
		LastSentenceTime: now,
	}
}

// SetDB sets the database client for persistence
func (s *Stats) SetDB(db *db.Client) {
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
}

// Persist stores the current statistics in the database
func (s *Stats) Persist() error {
	s.mu.RLock()
	if s.db == nil {
		s.mu.RUnlock()
		return fmt.Errorf("database client not set")
	}
	s.mu.RUnlock()

	return s.db.StoreSystemStats(s.GetStats())
}

// AddSentenceCounts folds a decode tally from a feed into the sentence
// counters. Tallies arrive with each snapshot, so counters stay accurate
// when the decoding happens in another process.
func (s *Stats) AddSentenceCounts(c types.SentenceCounts) {
	atomic.AddUint64(&s.TotalSentences, c.Total)
	atomic.AddUint64(&s.ParsedSentences, c.Parsed)
	for i, n := range c.Types {
		if n != 0 {
			atomic.AddUint64(&s.SentenceTypeCounts[i], n)
		}
	}
}

// IncrementFailedSentences increments the failed sentences counter
func (s *Stats) IncrementFailedSentences() {
	atomic.AddUint64(&s.FailedSentences, 1)
}

// IncrementChecksumFailures increments the checksum failures counter
func (s *Stats) IncrementChecksumFailures() {
	atomic.AddUint64(&s.ChecksumFailures, 1)
}

// IncrementBufferOverflows increments the buffer overflow counter
func (s *Stats) IncrementBufferOverflows() {
	atomic.AddUint64(&s.BufferOverflows, 1)
}

// IncrementReconnects increments the reconnect counter
func (s *Stats) IncrementReconnects() {
	atomic.AddUint64(&s.Reconnects, 1)
}

// IncrementSnapshotsEmitted increments the emitted snapshots counter
func (s *Stats) IncrementSnapshotsEmitted() {
	atomic.AddUint64(&s.SnapshotsEmitted, 1)
}

// RecordError counts an error event by its kind
func (s *Stats) RecordError(kind types.ErrorKind) {
	s.IncrementFailedSentences()
	switch kind {
	case types.ErrChecksumFailed:
		s.IncrementChecksumFailures()
	case types.ErrBufferOverflow:
		s.IncrementBufferOverflows()
	}
}

// UpdateLastSentenceTime updates the last sentence time
func (s *Stats) UpdateLastSentenceTime() {
	s.mu.Lock()
	s.LastSentenceTime = time.Now()
	s.mu.Unlock()
}

// GetStats returns a copy of the current statistics
func (s *Stats) GetStats() *types.SystemStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := &types.SystemStats{
		TotalSentences:   atomic.LoadUint64(&s.TotalSentences),
		ParsedSentences:  atomic.LoadUint64(&s.ParsedSentences),
		FailedSentences:  atomic.LoadUint64(&s.FailedSentences),
		ChecksumFailures: atomic.LoadUint64(&s.ChecksumFailures),
		BufferOverflows:  atomic.LoadUint64(&s.BufferOverflows),
		Reconnects:       atomic.LoadUint64(&s.Reconnects),
		SnapshotsEmitted: atomic.LoadUint64(&s.SnapshotsEmitted),
		StartedAt:        s.StartedAt,
		LastSentenceTime: s.LastSentenceTime,
		Uptime:           time.Since(s.StartedAt),
	}
	for i := range snapshot.SentenceTypes {
		snapshot.SentenceTypes[i] = atomic.LoadUint64(&s.SentenceTypeCounts[i])
	}
	return snapshot
}

// String returns a string representation of the statistics
func (s *Stats) String() string {
	snapshot := s.GetStats()
	return fmt.Sprintf(
		"Total Sentences: %d\n"+
			"Parsed Sentences: %d\n"+
			"Failed Sentences: %d\n"+
			"Checksum Failures: %d\n"+
			"Buffer Overflows: %d\n"+
			"Reconnects: %d\n"+
			"Snapshots Emitted: %d\n"+
			"Last Sentence Time: %s\n"+
			"Uptime: %s",
		snapshot.TotalSentences,
		snapshot.ParsedSentences,
		snapshot.FailedSentences,
		snapshot.ChecksumFailures,
		snapshot.BufferOverflows,
		snapshot.Reconnects,
		snapshot.SnapshotsEmitted,
		snapshot.LastSentenceTime,
		snapshot.Uptime,
	)
}

// StartPersistence starts periodic persistence of statistics
func (s *Stats) StartPersistence(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final persistence before shutdown
			if err := s.Persist(); err != nil {
				log.Printf("Failed to persist final statistics: %v", err)
			}
			return
		case <-ticker.C:
			if err := s.Persist(); err != nil {
				log.Printf("Failed to persist statistics: %v", err)
			}
		}
	}
}
