package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSentenceTypeIndex(t *testing.T) {
	all := []SentenceType{
		SentenceGPGGA, SentenceGPRMC, SentenceGPVTG, SentenceMWV,
		SentenceDPT, SentenceHDG, SentenceMTW, SentenceUnknown,
	}

	seen := make(map[int]SentenceType)
	for _, st := range all {
		idx := st.Index()
		if idx < 0 || idx >= SentenceTypeCount {
			t.Errorf("%s.Index() = %d, out of range [0, %d)", st, idx, SentenceTypeCount)
		}
		if prev, ok := seen[idx]; ok {
			t.Errorf("%s and %s share index %d", prev, st, idx)
		}
		seen[idx] = st
	}

	if SentenceType("XYZ").Index() != SentenceUnknown.Index() {
		t.Error("unrecognized sentence types should map to the unknown index")
	}
}

func TestSentenceInterface(t *testing.T) {
	tests := []struct {
		name     string
		sentence Sentence
		want     SentenceType
	}{
		{name: "GGA", sentence: &GGAData{}, want: SentenceGPGGA},
		{name: "RMC", sentence: &RMCData{}, want: SentenceGPRMC},
		{name: "VTG", sentence: &VTGData{}, want: SentenceGPVTG},
		{name: "MWV", sentence: &MWVData{}, want: SentenceMWV},
		{name: "DPT", sentence: &DPTData{}, want: SentenceDPT},
		{name: "HDG", sentence: &HDGData{}, want: SentenceHDG},
		{name: "MTW", sentence: &MTWData{}, want: SentenceMTW},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sentence.Type(); got != tt.want {
				t.Errorf("Type() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNMEAError(t *testing.T) {
	e := NewNMEAError(ErrChecksumFailed, "checksum mismatch", "$GPGGA,bad*00")

	if e.Kind != ErrChecksumFailed {
		t.Errorf("Kind = %s, want %s", e.Kind, ErrChecksumFailed)
	}
	if e.Raw != "$GPGGA,bad*00" {
		t.Errorf("Raw = %q, want the offending sentence", e.Raw)
	}
	if e.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	want := "CHECKSUM_FAILED: checksum mismatch"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestConnectionStatusString(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusError, "error"},
		{ConnectionStatus(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestConnectionStatusJSONRoundTrip(t *testing.T) {
	for _, status := range []ConnectionStatus{
		StatusDisconnected, StatusConnecting, StatusConnected, StatusReconnecting, StatusError,
	} {
		data, err := json.Marshal(status)
		if err != nil {
			t.Fatalf("Marshal(%s) unexpected error: %v", status, err)
		}
		var back ConnectionStatus
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s) unexpected error: %v", data, err)
		}
		if back != status {
			t.Errorf("round trip of %s came back as %s", status, back)
		}
	}

	var bad ConnectionStatus
	if err := json.Unmarshal([]byte(`"warp-speed"`), &bad); err == nil {
		t.Error("Unmarshal of an unknown status should fail")
	}
}

func TestConnectionConfigAddr(t *testing.T) {
	cfg := ConnectionConfig{Host: "192.168.4.1", Port: 10110}
	if got := cfg.Addr(); got != "192.168.4.1:10110" {
		t.Errorf("Addr() = %q, want %q", got, "192.168.4.1:10110")
	}
}

func TestConnectionConfigValidate(t *testing.T) {
	valid := ConnectionConfig{
		Host:           "10.0.0.2",
		Port:           10110,
		ConnectionType: ConnTCP,
		BackoffBase:    time.Second,
		BackoffCap:     30 * time.Second,
	}

	tests := []struct {
		name    string
		mutate  func(*ConnectionConfig)
		wantErr bool
	}{
		{name: "valid tcp", mutate: func(c *ConnectionConfig) {}},
		{name: "valid udp", mutate: func(c *ConnectionConfig) { c.ConnectionType = ConnUDP }},
		{name: "missing host", mutate: func(c *ConnectionConfig) { c.Host = "" }, wantErr: true},
		{name: "port zero", mutate: func(c *ConnectionConfig) { c.Port = 0 }, wantErr: true},
		{name: "port too high", mutate: func(c *ConnectionConfig) { c.Port = 70000 }, wantErr: true},
		{name: "bad connection type", mutate: func(c *ConnectionConfig) { c.ConnectionType = "serial" }, wantErr: true},
		{name: "zero backoff base", mutate: func(c *ConnectionConfig) { c.BackoffBase = 0 }, wantErr: true},
		{name: "cap below base", mutate: func(c *ConnectionConfig) { c.BackoffCap = time.Millisecond }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}
