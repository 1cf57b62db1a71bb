package parser

import (
	"math"
	"testing"
	"time"

	"github.com/helmwatch/nmea-ingest/internal/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-4
}

func TestParseSentence(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType types.SentenceType
		wantKind types.ErrorKind
	}{
		{
			name:     "valid GGA",
			raw:      "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
			wantType: types.SentenceGPGGA,
		},
		{
			name:     "valid RMC",
			raw:      "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A",
			wantType: types.SentenceGPRMC,
		},
		{
			name:     "valid VTG",
			raw:      "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48",
			wantType: types.SentenceGPVTG,
		},
		{
			name:     "valid MWV",
			raw:      "$WIMWV,214.8,R,10.2,N,A*1F",
			wantType: types.SentenceMWV,
		},
		{
			name:     "valid DPT",
			raw:      "$SDDPT,2.4,0.0*51",
			wantType: types.SentenceDPT,
		},
		{
			name:     "valid HDG",
			raw:      "$HCHDG,98.3,0.0,E,12.6,W*57",
			wantType: types.SentenceHDG,
		},
		{
			name:     "valid MTW",
			raw:      "$INMTW,17.9,C*1B",
			wantType: types.SentenceMTW,
		},
		{
			name:     "checksum omitted is accepted",
			raw:      "$SDDPT,2.4,0.0",
			wantType: types.SentenceDPT,
		},
		{
			name:     "trailing CRLF is tolerated",
			raw:      "$SDDPT,2.4,0.0*51\r\n",
			wantType: types.SentenceDPT,
		},
		{
			name:     "non GP talker prefix",
			raw:      "$GLGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*5B",
			wantType: types.SentenceGPGGA,
		},
		{
			name:     "checksum mismatch",
			raw:      "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00",
			wantKind: types.ErrChecksumFailed,
		},
		{
			name:     "unknown sentence id",
			raw:      "$GPZDA,160012.71,11,03,2004,-1,00*7D",
			wantKind: types.ErrUnknownSentenceType,
		},
		{
			name:     "missing prefix",
			raw:      "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,",
			wantKind: types.ErrMalformedSentence,
		},
		{
			name:     "empty line",
			raw:      "",
			wantKind: types.ErrMalformedSentence,
		},
		{
			name:     "too few fields",
			raw:      "$GPGGA,123519,4807.038",
			wantKind: types.ErrMalformedSentence,
		},
		{
			name:     "truncated coordinate",
			raw:      "$GPGGA,123519,480,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*65",
			wantKind: types.ErrCoordinateParse,
		},
		{
			name:     "unknown hemisphere",
			raw:      "$GPGGA,123519,4807.038,Q,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*58",
			wantKind: types.ErrCoordinateParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentence, err := ParseSentence(tt.raw)

			if tt.wantKind != "" {
				if err == nil {
					t.Fatalf("ParseSentence() expected error kind %s but got none", tt.wantKind)
				}
				if err.Kind != tt.wantKind {
					t.Errorf("ParseSentence() error kind = %s, want %s", err.Kind, tt.wantKind)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseSentence() unexpected error: %v", err)
			}
			if sentence.Type() != tt.wantType {
				t.Errorf("ParseSentence() type = %s, want %s", sentence.Type(), tt.wantType)
			}
		})
	}
}

func TestParseSentenceGGA(t *testing.T) {
	sentence, err := ParseSentence("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
	if err != nil {
		t.Fatalf("ParseSentence() unexpected error: %v", err)
	}
	gga, ok := sentence.(*types.GGAData)
	if !ok {
		t.Fatalf("ParseSentence() returned %T, want *types.GGAData", sentence)
	}

	if gga.Position == nil {
		t.Fatal("GGA position is nil")
	}
	if !almostEqual(gga.Position.Lat, 48.1173) || !almostEqual(gga.Position.Lng, 11.5167) {
		t.Errorf("GGA position = (%f, %f), want (48.1173, 11.5167)", gga.Position.Lat, gga.Position.Lng)
	}
	if gga.Time != "123519" {
		t.Errorf("GGA time = %q, want %q", gga.Time, "123519")
	}
	if gga.FixQuality != 1 {
		t.Errorf("GGA fix quality = %d, want 1", gga.FixQuality)
	}
	if gga.Satellites != 8 {
		t.Errorf("GGA satellites = %d, want 8", gga.Satellites)
	}
	if gga.HDOP == nil || !almostEqual(*gga.HDOP, 0.9) {
		t.Errorf("GGA HDOP = %v, want 0.9", gga.HDOP)
	}
	if gga.AltitudeMeters == nil || !almostEqual(*gga.AltitudeMeters, 545.4) {
		t.Errorf("GGA altitude = %v, want 545.4", gga.AltitudeMeters)
	}
}

func TestParseSentenceGGANoFix(t *testing.T) {
	sentence, err := ParseSentence("$GPGGA,123519,,,,,0,00,,,M,,M,,")
	if err != nil {
		t.Fatalf("ParseSentence() unexpected error: %v", err)
	}
	gga := sentence.(*types.GGAData)
	if gga.Position != nil {
		t.Errorf("GGA position = %v, want nil without a fix", gga.Position)
	}
	if gga.HDOP != nil || gga.AltitudeMeters != nil {
		t.Errorf("GGA optional fields should be nil, got HDOP=%v altitude=%v", gga.HDOP, gga.AltitudeMeters)
	}
}

func TestParseSentenceRMC(t *testing.T) {
	sentence, err := ParseSentence("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A")
	if err != nil {
		t.Fatalf("ParseSentence() unexpected error: %v", err)
	}
	rmc, ok := sentence.(*types.RMCData)
	if !ok {
		t.Fatalf("ParseSentence() returned %T, want *types.RMCData", sentence)
	}

	if !rmc.Valid {
		t.Error("RMC valid = false, want true for status A")
	}
	if rmc.Position == nil || !almostEqual(rmc.Position.Lat, 48.1173) {
		t.Errorf("RMC position = %v, want lat 48.1173", rmc.Position)
	}
	if rmc.SpeedKnots == nil || !almostEqual(*rmc.SpeedKnots, 22.4) {
		t.Errorf("RMC speed = %v, want 22.4", rmc.SpeedKnots)
	}
	if rmc.TrackTrue == nil || !almostEqual(*rmc.TrackTrue, 84.4) {
		t.Errorf("RMC track = %v, want 84.4", rmc.TrackTrue)
	}
	if rmc.Date == nil {
		t.Fatal("RMC date is nil")
	}
	want := time.Date(1994, time.March, 23, 0, 0, 0, 0, time.UTC)
	if !rmc.Date.Equal(want) {
		t.Errorf("RMC date = %v, want %v", rmc.Date, want)
	}
}

func TestParseSentenceRMCDateWindow(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantYear int
	}{
		{
			name:     "two digit year 94 is 1994",
			raw:      "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A",
			wantYear: 1994,
		},
		{
			name:     "two digit year 05 is 2005",
			raw:      "$GPRMC,123519,A,4807.038,N,01131.000,E,005.5,054.7,230305,,*13",
			wantYear: 2005,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentence, err := ParseSentence(tt.raw)
			if err != nil {
				t.Fatalf("ParseSentence() unexpected error: %v", err)
			}
			rmc := sentence.(*types.RMCData)
			if rmc.Date == nil {
				t.Fatal("RMC date is nil")
			}
			if rmc.Date.Year() != tt.wantYear {
				t.Errorf("RMC date year = %d, want %d", rmc.Date.Year(), tt.wantYear)
			}
		})
	}
}

func TestParseSentenceRMCVoid(t *testing.T) {
	sentence, err := ParseSentence("$GPRMC,123519,V,,,,,,,230394,,*33")
	if err != nil {
		t.Fatalf("ParseSentence() unexpected error: %v", err)
	}
	rmc := sentence.(*types.RMCData)
	if rmc.Valid {
		t.Error("RMC valid = true, want false for status V")
	}
	if rmc.Position != nil {
		t.Errorf("RMC position = %v, want nil", rmc.Position)
	}
}

func TestParseSentenceVTG(t *testing.T) {
	sentence, err := ParseSentence("$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48")
	if err != nil {
		t.Fatalf("ParseSentence() unexpected error: %v", err)
	}
	vtg := sentence.(*types.VTGData)
	if vtg.SpeedKnots == nil || !almostEqual(*vtg.SpeedKnots, 5.5) {
		t.Errorf("VTG speed = %v, want 5.5", vtg.SpeedKnots)
	}
	if vtg.TrackTrue == nil || !almostEqual(*vtg.TrackTrue, 54.7) {
		t.Errorf("VTG track = %v, want 54.7", vtg.TrackTrue)
	}
}

func TestParseSentenceMWV(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantAngle    float64
		wantSpeed    float64
		wantRelative bool
		wantValid    bool
	}{
		{
			name:         "relative wind in knots",
			raw:          "$WIMWV,214.8,R,10.2,N,A*1F",
			wantAngle:    214.8,
			wantSpeed:    10.2,
			wantRelative: true,
			wantValid:    true,
		},
		{
			name:      "true wind in meters per second",
			raw:       "$WIMWV,120.0,T,5.0,M,A*20",
			wantAngle: 120.0,
			wantSpeed: 9.7192,
			wantValid: true,
		},
		{
			name:         "void status",
			raw:          "$WIMWV,214.8,R,10.2,N,V*08",
			wantAngle:    214.8,
			wantSpeed:    10.2,
			wantRelative: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentence, err := ParseSentence(tt.raw)
			if err != nil {
				t.Fatalf("ParseSentence() unexpected error: %v", err)
			}
			mwv := sentence.(*types.MWVData)
			if !almostEqual(mwv.AngleDegrees, tt.wantAngle) {
				t.Errorf("MWV angle = %f, want %f", mwv.AngleDegrees, tt.wantAngle)
			}
			if !almostEqual(mwv.SpeedKnots, tt.wantSpeed) {
				t.Errorf("MWV speed = %f, want %f", mwv.SpeedKnots, tt.wantSpeed)
			}
			if mwv.IsRelative != tt.wantRelative {
				t.Errorf("MWV relative = %v, want %v", mwv.IsRelative, tt.wantRelative)
			}
			if mwv.Valid != tt.wantValid {
				t.Errorf("MWV valid = %v, want %v", mwv.Valid, tt.wantValid)
			}
		})
	}
}

func TestParseSentenceDPT(t *testing.T) {
	sentence, err := ParseSentence("$SDDPT,2.4,0.0*51")
	if err != nil {
		t.Fatalf("ParseSentence() unexpected error: %v", err)
	}
	dpt := sentence.(*types.DPTData)
	if !almostEqual(dpt.DepthMeters, 2.4) {
		t.Errorf("DPT depth = %f, want 2.4", dpt.DepthMeters)
	}
	if dpt.OffsetMeters == nil || !almostEqual(*dpt.OffsetMeters, 0.0) {
		t.Errorf("DPT offset = %v, want 0.0", dpt.OffsetMeters)
	}
}

func TestParseSentenceHDG(t *testing.T) {
	sentence, err := ParseSentence("$HCHDG,98.3,0.0,E,12.6,W*57")
	if err != nil {
		t.Fatalf("ParseSentence() unexpected error: %v", err)
	}
	hdg := sentence.(*types.HDGData)
	if !almostEqual(hdg.HeadingDegrees, 98.3) {
		t.Errorf("HDG heading = %f, want 98.3", hdg.HeadingDegrees)
	}
	if hdg.DeviationDegrees == nil || !almostEqual(*hdg.DeviationDegrees, 0.0) {
		t.Errorf("HDG deviation = %v, want 0.0", hdg.DeviationDegrees)
	}
	if hdg.VariationDegrees == nil || !almostEqual(*hdg.VariationDegrees, -12.6) {
		t.Errorf("HDG variation = %v, want -12.6 for westerly", hdg.VariationDegrees)
	}
}

func TestParseSentenceMTW(t *testing.T) {
	sentence, err := ParseSentence("$INMTW,17.9,C*1B")
	if err != nil {
		t.Fatalf("ParseSentence() unexpected error: %v", err)
	}
	mtw := sentence.(*types.MTWData)
	if !almostEqual(mtw.TemperatureCelsius, 17.9) {
		t.Errorf("MTW temperature = %f, want 17.9", mtw.TemperatureCelsius)
	}
}

func TestValidateChecksum(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{
			name: "correct checksum",
			line: "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48",
			want: true,
		},
		{
			name: "wrong checksum",
			line: "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*49",
			want: false,
		},
		{
			name: "no checksum",
			line: "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K",
			want: true,
		},
		{
			name: "truncated hex digits",
			line: "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*4",
			want: false,
		},
		{
			name: "non-hex digits",
			line: "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*ZZ",
			want: false,
		},
		{
			name: "missing prefix",
			line: "GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateChecksum(tt.line); got != tt.want {
				t.Errorf("ValidateChecksum(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}
