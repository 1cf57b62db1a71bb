// Package connection owns the socket lifecycle for an NMEA instrument feed.
//
// One background goroutine per manager reads the socket, decodes sentences,
// and folds them into the aggregate. The host never touches the mutable
// aggregate: it receives immutable snapshot copies, discrete errors, and
// status transitions over channels.
package connection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/helmwatch/nmea-ingest/internal/aggregate"
	"github.com/helmwatch/nmea-ingest/internal/parser"
	"github.com/helmwatch/nmea-ingest/internal/types"
)

const (
	// maxBufferSize caps unterminated input. Exceeding it discards the whole
	// buffer: with a 10Hz instrument stream a stuck parser is worse than one
	// dropped sentence.
	maxBufferSize = 4096

	// snapshotInterval batches aggregate emissions so UI update cadence is
	// decoupled from sentence rate.
	snapshotInterval = 200 * time.Millisecond

	readChunkSize = 1024
)

// Snapshot pairs an immutable aggregate copy with the decode tally since the
// previous emission. Counts are deltas: the host folds them into its own
// counters and the manager resets its tally once a snapshot is delivered.
type Snapshot struct {
	Aggregate aggregate.Aggregate
	Counts    types.SentenceCounts
}

// Manager runs the connection state machine:
// Disconnected -> Connecting -> Connected -> Reconnecting -> Connecting.
// Error is surfaced as a transient substate of Reconnecting. Stop forces any
// state to Disconnected and is idempotent.
type Manager struct {
	cfg types.ConnectionConfig

	snapshots chan Snapshot
	errs      chan types.NMEAError
	status    chan types.StatusEvent

	attempts atomic.Uint64

	// after is the backoff timer, swappable in tests so reconnect behavior
	// can be verified without real sleeps.
	after func(d time.Duration) <-chan time.Time
	// dial is swappable in tests to inject fake connections.
	dial func(ctx context.Context, cfg *types.ConnectionConfig) (net.Conn, error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	conn    net.Conn
	stopped bool

	wg sync.WaitGroup
}

// New creates a manager for the given feed. The configuration is validated
// at Start.
func New(cfg types.ConnectionConfig) *Manager {
	return &Manager{
		cfg:       cfg,
		snapshots: make(chan Snapshot, 16),
		errs:      make(chan types.NMEAError, 64),
		status:    make(chan types.StatusEvent, 16),
		after:     time.After,
		dial:      dialFeed,
	}
}

// Snapshots delivers at most one aggregate copy per 200ms window, and only
// when something changed since the last emission. Each snapshot carries the
// sentence tally accumulated since the last delivered one.
func (m *Manager) Snapshots() <-chan Snapshot { return m.snapshots }

// Errors delivers discrete sentence- and connection-level errors.
func (m *Manager) Errors() <-chan types.NMEAError { return m.errs }

// Status delivers connection state transitions.
func (m *Manager) Status() <-chan types.StatusEvent { return m.status }

// Attempts reports the reconnect attempt counter so the host can show
// reconnect progress.
func (m *Manager) Attempts() uint64 { return m.attempts.Load() }

// Start validates the config and launches the background worker. Calling
// Start on a running or stopped manager is an error.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid connection config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return fmt.Errorf("manager is stopped")
	}
	if m.cancel != nil {
		return fmt.Errorf("manager already started")
	}

	childCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(childCtx)
	}()
	return nil
}

// Stop cancels any in-flight connect, read loop, and pending backoff timer,
// closes the socket, and waits for the worker. No events are delivered after
// Stop returns. Safe to call more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	cancel := m.cancel
	conn := m.conn
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	m.wg.Wait()

	close(m.snapshots)
	close(m.errs)
	close(m.status)
}

// run is the reconnection state machine. The aggregate lives here so stale
// data survives reconnects; it is discarded only with the manager itself.
func (m *Manager) run(ctx context.Context) {
	agg := aggregate.Aggregate{}
	var counts types.SentenceCounts
	attempt := 0

	defer m.emitStatus(types.StatusDisconnected, 0, "")

	for {
		if ctx.Err() != nil {
			return
		}

		m.emitStatus(types.StatusConnecting, attempt, m.cfg.Addr())
		conn, err := m.dial(ctx, &m.cfg)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			kind := classifyDialError(err)
			attempt++
			m.attempts.Store(uint64(attempt))
			m.emitError(*types.NewNMEAError(kind, err.Error(), ""))
			m.emitStatus(types.StatusError, attempt, err.Error())
			if !m.backoff(ctx, attempt) {
				return
			}
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()

		attempt = 0
		m.attempts.Store(0)
		m.emitStatus(types.StatusConnected, 0, connAddr(conn))
		log.Printf("connected to NMEA source %s (%s)", m.cfg.Addr(), m.cfg.ConnectionType)

		readErr := m.readLoop(ctx, conn, &agg, &counts)

		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		attempt++
		m.attempts.Store(uint64(attempt))
		m.emitError(*types.NewNMEAError(classifyReadError(readErr), readErr.Error(), ""))
		m.emitStatus(types.StatusReconnecting, attempt, readErr.Error())
		if !m.backoff(ctx, attempt) {
			return
		}
	}
}

// backoff sleeps for an exponentially growing delay, capped by the config.
// Returns false if the context was canceled during the wait.
func (m *Manager) backoff(ctx context.Context, attempt int) bool {
	delay := backoffDelay(m.cfg.BackoffBase, m.cfg.BackoffCap, attempt)
	select {
	case <-ctx.Done():
		return false
	case <-m.after(delay):
		return true
	}
}

// backoffDelay doubles the base per attempt: base, 2*base, 4*base, ... up to
// the cap. Attempt counting starts at 1.
func backoffDelay(base, limit time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	if delay > limit {
		return limit
	}
	return delay
}

// readLoop owns the aggregate and tally while connected. A reader goroutine
// pumps complete lines into lineCh so the blocking socket read cannot starve
// the snapshot timer or context cancellation.
func (m *Manager) readLoop(ctx context.Context, conn net.Conn, agg *aggregate.Aggregate, counts *types.SentenceCounts) error {
	lineCh := make(chan string, 64)
	readErrCh := make(chan error, 1)

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.readLines(readCtx, conn, lineCh, readErrCh)
	}()

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	dirty := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrCh:
			return err

		case <-ticker.C:
			if dirty {
				// The tally resets only once a snapshot is actually
				// delivered; counts from a dropped emission carry over.
				if m.emitSnapshot(Snapshot{Aggregate: *agg, Counts: *counts}) {
					*counts = types.SentenceCounts{}
				}
				dirty = false
			}

		case line := <-lineCh:
			counts.Total++
			sent, nerr := parser.ParseSentence(line)
			if nerr != nil {
				// Sentence-level failures are non-fatal and leave the
				// aggregate untouched.
				m.emitError(*nerr)
				dirty = true
				continue
			}
			counts.Parsed++
			counts.Types[sent.Type().Index()]++
			*agg = agg.Merge(sent, time.Now().UTC())
			dirty = true
		}
	}
}

// readLines accumulates socket bytes into a bounded buffer and splits out
// newline-terminated sentences. Overflow discards the entire buffer and
// surfaces a BufferOverflow error; reading continues.
func (m *Manager) readLines(ctx context.Context, conn net.Conn, lineCh chan<- string, errCh chan<- error) {
	buf := make([]byte, readChunkSize)
	var pending []byte

	for {
		if ctx.Err() != nil {
			return
		}

		if m.cfg.ReadTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout)); err != nil {
				m.sendReadErr(ctx, errCh, fmt.Errorf("failed to set read deadline: %w", err))
				return
			}
		}

		n, err := conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := strings.TrimRight(string(pending[:idx]), "\r")
				pending = pending[idx+1:]
				if line == "" {
					continue
				}
				select {
				case lineCh <- line:
				case <-ctx.Done():
					return
				}
			}
			if len(pending) > maxBufferSize {
				pending = nil
				m.emitError(*types.NewNMEAError(types.ErrBufferOverflow,
					fmt.Sprintf("input exceeded %d bytes without a line terminator, buffer discarded", maxBufferSize), ""))
			}
		}
		if err != nil {
			m.sendReadErr(ctx, errCh, err)
			return
		}
	}
}

func (m *Manager) sendReadErr(ctx context.Context, errCh chan<- error, err error) {
	select {
	case errCh <- err:
	case <-ctx.Done():
	}
}

// emitSnapshot hands an immutable snapshot to the host. A slow host drops the
// update rather than blocking the worker; the return value tells the caller
// whether the snapshot was delivered.
func (m *Manager) emitSnapshot(snap Snapshot) bool {
	select {
	case m.snapshots <- snap:
		return true
	default:
		return false
	}
}

func (m *Manager) emitError(e types.NMEAError) {
	select {
	case m.errs <- e:
	default:
	}
}

func (m *Manager) emitStatus(status types.ConnectionStatus, attempt int, detail string) {
	ev := types.StatusEvent{
		Status:    status,
		Attempt:   attempt,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
	select {
	case m.status <- ev:
	default:
	}
}

// connAddr describes the peer for status events. Bound UDP sockets have no
// remote address, so the local one is used.
func connAddr(conn net.Conn) string {
	if remote := conn.RemoteAddr(); remote != nil {
		return remote.String()
	}
	if local := conn.LocalAddr(); local != nil {
		return local.String()
	}
	return ""
}

// dialFeed opens the instrument feed: a connect-timeout bounded TCP dial, or
// a bound UDP socket that receives datagrams from any sender on the port.
func dialFeed(ctx context.Context, cfg *types.ConnectionConfig) (net.Conn, error) {
	switch cfg.ConnectionType {
	case types.ConnUDP:
		addr, err := net.ResolveUDPAddr("udp", cfg.Addr())
		if err != nil {
			return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
		}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to bind UDP socket: %w", err)
		}
		return conn, nil
	default:
		d := net.Dialer{Timeout: cfg.ConnectTimeout}
		conn, err := d.DialContext(ctx, "tcp", cfg.Addr())
		if err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}
		return conn, nil
	}
}

func classifyDialError(err error) types.ErrorKind {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return types.ErrConnectionRefused
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.ErrConnectionTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return types.ErrConnectionTimeout
	}
	return types.ErrSocketError
}

func classifyReadError(err error) types.ErrorKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.ErrConnectionTimeout
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return types.ErrConnectionTimeout
	}
	return types.ErrSocketError
}
