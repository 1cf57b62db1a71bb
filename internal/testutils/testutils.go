package testutils

import (
	"context"
	"fmt"
	"time"
)

// SentenceWithChecksum appends a computed *HH checksum to an NMEA payload.
// The payload must include the leading '$' or '!'.
func SentenceWithChecksum(payload string) string {
	var sum byte
	for i := 1; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return fmt.Sprintf("%s*%02X", payload, sum)
}

// MockGGASentence builds a valid GPGGA sentence for testing
func MockGGASentence() string {
	return "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
}

// MockVTGSentence builds a valid GPVTG sentence for testing
func MockVTGSentence() string {
	return "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48"
}

// MockRMCSentence builds a valid GPRMC sentence for testing
func MockRMCSentence() string {
	return SentenceWithChecksum("$GPRMC,123519,A,4807.038,N,01131.000,E,005.5,054.7,230394,,")
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}
