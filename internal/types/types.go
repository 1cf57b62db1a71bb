package types

import (
	"fmt"
	"time"
)

// SentenceType identifies the kind of NMEA 0183 sentence a decoded struct
// represents.
type SentenceType string

const (
	SentenceGPGGA   SentenceType = "GPGGA"
	SentenceGPRMC   SentenceType = "GPRMC"
	SentenceGPVTG   SentenceType = "GPVTG"
	SentenceMWV     SentenceType = "MWV"
	SentenceDPT     SentenceType = "DPT"
	SentenceHDG     SentenceType = "HDG"
	SentenceMTW     SentenceType = "MTW"
	SentenceUnknown SentenceType = "UNKNOWN"
)

// SentenceTypeCount is the number of known sentence types, used for
// fixed-size per-type counters.
const SentenceTypeCount = 8

// Index returns a stable ordinal for counter arrays.
func (t SentenceType) Index() int {
	switch t {
	case SentenceGPGGA:
		return 0
	case SentenceGPRMC:
		return 1
	case SentenceGPVTG:
		return 2
	case SentenceMWV:
		return 3
	case SentenceDPT:
		return 4
	case SentenceHDG:
		return 5
	case SentenceMTW:
		return 6
	default:
		return 7
	}
}

// Sentence is implemented by every decoded sentence struct.
type Sentence interface {
	Type() SentenceType
}

// LatLng is a position in decimal degrees, positive north and east.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GGAData holds a decoded GPGGA (GPS fix data) sentence. Optional fields are
// nil when the instrument left them empty.
type GGAData struct {
	Position       *LatLng  `json:"position,omitempty"`
	Time           string   `json:"time,omitempty"` // raw hhmmss.sss UTC
	FixQuality     int      `json:"fix_quality"`
	Satellites     int      `json:"satellites"`
	HDOP           *float64 `json:"hdop,omitempty"`
	AltitudeMeters *float64 `json:"altitude_meters,omitempty"`
}

func (*GGAData) Type() SentenceType { return SentenceGPGGA }

// RMCData holds a decoded GPRMC (recommended minimum) sentence.
type RMCData struct {
	Position   *LatLng    `json:"position,omitempty"`
	Time       string     `json:"time,omitempty"` // raw hhmmss.sss UTC
	Valid      bool       `json:"valid"`
	SpeedKnots *float64   `json:"speed_knots,omitempty"`
	TrackTrue  *float64   `json:"track_true,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
}

func (*RMCData) Type() SentenceType { return SentenceGPRMC }

// VTGData holds a decoded GPVTG (track and ground speed) sentence.
type VTGData struct {
	SpeedKnots *float64 `json:"speed_knots,omitempty"`
	TrackTrue  *float64 `json:"track_true,omitempty"`
}

func (*VTGData) Type() SentenceType { return SentenceGPVTG }

// MWVData holds a decoded MWV (wind speed and angle) sentence. Speed is
// normalized to knots regardless of the unit the instrument reported.
type MWVData struct {
	AngleDegrees float64 `json:"angle_degrees"`
	IsRelative   bool    `json:"is_relative"`
	SpeedKnots   float64 `json:"speed_knots"`
	Valid        bool    `json:"valid"`
}

func (*MWVData) Type() SentenceType { return SentenceMWV }

// DPTData holds a decoded DPT (water depth) sentence.
type DPTData struct {
	DepthMeters  float64  `json:"depth_meters"`
	OffsetMeters *float64 `json:"offset_meters,omitempty"`
}

func (*DPTData) Type() SentenceType { return SentenceDPT }

// HDGData holds a decoded HDG (magnetic heading) sentence. Deviation and
// variation carry their sign: easterly positive, westerly negative.
type HDGData struct {
	HeadingDegrees   float64  `json:"heading_degrees"`
	DeviationDegrees *float64 `json:"deviation_degrees,omitempty"`
	VariationDegrees *float64 `json:"variation_degrees,omitempty"`
}

func (*HDGData) Type() SentenceType { return SentenceHDG }

// MTWData holds a decoded MTW (water temperature) sentence.
type MTWData struct {
	TemperatureCelsius float64 `json:"temperature_celsius"`
}

func (*MTWData) Type() SentenceType { return SentenceMTW }

// ErrorKind classifies everything that can go wrong between the socket and
// the aggregate.
type ErrorKind string

const (
	ErrChecksumFailed      ErrorKind = "CHECKSUM_FAILED"
	ErrMalformedSentence   ErrorKind = "MALFORMED_SENTENCE"
	ErrUnknownSentenceType ErrorKind = "UNKNOWN_SENTENCE_TYPE"
	ErrCoordinateParse     ErrorKind = "COORDINATE_PARSE_ERROR"
	ErrConnectionTimeout   ErrorKind = "CONNECTION_TIMEOUT"
	ErrConnectionRefused   ErrorKind = "CONNECTION_REFUSED"
	ErrSocketError         ErrorKind = "SOCKET_ERROR"
	ErrBufferOverflow      ErrorKind = "BUFFER_OVERFLOW"
)

// NMEAError is a sentence- or connection-level failure. Sentence-level kinds
// are non-fatal: decoding continues on the next line.
type NMEAError struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Raw       string    `json:"raw,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *NMEAError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewNMEAError builds an error with the timestamp set to now.
func NewNMEAError(kind ErrorKind, message, raw string) *NMEAError {
	return &NMEAError{
		Kind:      kind,
		Message:   message,
		Raw:       raw,
		Timestamp: time.Now().UTC(),
	}
}

// ConnectionStatus is the connection state machine's observable state.
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusError
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalJSON encodes the status as its string form.
func (s ConnectionStatus) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

// UnmarshalJSON decodes the string form produced by MarshalJSON.
func (s *ConnectionStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"disconnected"`:
		*s = StatusDisconnected
	case `"connecting"`:
		*s = StatusConnecting
	case `"connected"`:
		*s = StatusConnected
	case `"reconnecting"`:
		*s = StatusReconnecting
	case `"error"`:
		*s = StatusError
	default:
		return fmt.Errorf("unknown connection status %s", data)
	}
	return nil
}

// StatusEvent is one transition of the connection state machine. Attempt is
// the reconnect attempt counter at the time of the transition.
type StatusEvent struct {
	Status    ConnectionStatus `json:"status"`
	Attempt   int              `json:"attempt"`
	Detail    string           `json:"detail,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

const (
	ConnTCP = "tcp"
	ConnUDP = "udp"
)

// ConnectionConfig describes the instrument feed and the reconnect policy.
type ConnectionConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ConnectionType string        `json:"connection_type"` // tcp or udp
	ConnectTimeout time.Duration `json:"connect_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	BackoffBase    time.Duration `json:"backoff_base"`
	BackoffCap     time.Duration `json:"backoff_cap"`
}

// Addr returns the host:port dial target.
func (c *ConnectionConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the config before a connection is attempted.
func (c *ConnectionConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in range 1-65535, got %d", c.Port)
	}
	if c.ConnectionType != ConnTCP && c.ConnectionType != ConnUDP {
		return fmt.Errorf("connection type must be %q or %q, got %q", ConnTCP, ConnUDP, c.ConnectionType)
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff base must be positive, got %v", c.BackoffBase)
	}
	if c.BackoffCap < c.BackoffBase {
		return fmt.Errorf("backoff cap %v is below backoff base %v", c.BackoffCap, c.BackoffBase)
	}
	return nil
}

// IngestSession records one run of the ingestor against a source.
type IngestSession struct {
	SessionID string     `json:"session_id"`
	Source    string     `json:"source"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Sentences uint64     `json:"sentences"`
	Errors    uint64     `json:"errors"`
}

// SentenceCounts tallies decode outcomes over an interval, indexed by
// SentenceType.Index for the per-type slots.
type SentenceCounts struct {
	Total  uint64                    `json:"total"`
	Parsed uint64                    `json:"parsed"`
	Types  [SentenceTypeCount]uint64 `json:"types"`
}

// Add folds another tally into this one.
func (c *SentenceCounts) Add(other SentenceCounts) {
	c.Total += other.Total
	c.Parsed += other.Parsed
	for i, n := range other.Types {
		c.Types[i] += n
	}
}

// SystemStats is a point-in-time copy of the ingest counters.
type SystemStats struct {
	TotalSentences   uint64                    `json:"total_sentences"`
	ParsedSentences  uint64                    `json:"parsed_sentences"`
	FailedSentences  uint64                    `json:"failed_sentences"`
	ChecksumFailures uint64                    `json:"checksum_failures"`
	BufferOverflows  uint64                    `json:"buffer_overflows"`
	Reconnects       uint64                    `json:"reconnects"`
	SnapshotsEmitted uint64                    `json:"snapshots_emitted"`
	SentenceTypes    [SentenceTypeCount]uint64 `json:"sentence_types"`
	StartedAt        time.Time                 `json:"started_at"`
	LastSentenceTime time.Time                 `json:"last_sentence_time"`
	Uptime           time.Duration             `json:"uptime"`
}
