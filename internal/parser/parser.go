package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/helmwatch/nmea-ingest/internal/types"
)

// ParseSentence decodes a raw NMEA 0183 line into a typed sentence struct.
//
// The checksum suffix is optional; when present it is validated and a
// mismatch is a hard reject. Sentence ids are matched on their last three
// characters so any talker prefix (GP, GN, II, WI, SD, HC, ...) is accepted.
// A nil error means the sentence decoded cleanly.
func ParseSentence(raw string) (types.Sentence, *types.NMEAError) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, "empty sentence", raw)
	}
	if line[0] != '$' && line[0] != '!' {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, "missing '$' or '!' prefix", raw)
	}

	if !ValidateChecksum(line) {
		return nil, types.NewNMEAError(types.ErrChecksumFailed, "checksum mismatch", raw)
	}

	payload := line[1:]
	if star := strings.LastIndexByte(payload, '*'); star != -1 {
		payload = payload[:star]
	}

	fields := strings.Split(payload, ",")
	id := fields[0]
	if len(id) < 3 {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("sentence id %q too short", id), raw)
	}

	switch strings.ToUpper(id[len(id)-3:]) {
	case "GGA":
		return parseGGA(fields, raw)
	case "RMC":
		return parseRMC(fields, raw)
	case "VTG":
		return parseVTG(fields, raw)
	case "MWV":
		return parseMWV(fields, raw)
	case "DPT":
		return parseDPT(fields, raw)
	case "HDG":
		return parseHDG(fields, raw)
	case "MTW":
		return parseMTW(fields, raw)
	default:
		return nil, types.NewNMEAError(types.ErrUnknownSentenceType, fmt.Sprintf("unrecognized sentence id %q", id), raw)
	}
}

// ValidateChecksum verifies the optional *HH suffix. A sentence with no
// checksum at all is accepted; many instruments omit it.
func ValidateChecksum(line string) bool {
	if line == "" || (line[0] != '$' && line[0] != '!') {
		return false
	}
	star := strings.LastIndexByte(line, '*')
	if star == -1 {
		return true
	}
	hexPart := strings.TrimSpace(line[star+1:])
	if len(hexPart) < 2 {
		return false
	}
	want, err := strconv.ParseUint(hexPart[:2], 16, 8)
	if err != nil {
		return false
	}
	var got byte
	for i := 1; i < star; i++ {
		got ^= line[i]
	}
	return got == byte(want)
}

// GGA: time, lat, N/S, lon, E/W, fix quality, satellites, HDOP, altitude, M, ...
func parseGGA(f []string, raw string) (types.Sentence, *types.NMEAError) {
	if len(f) < 10 {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("GGA needs at least 10 fields, got %d", len(f)), raw)
	}

	pos, perr := optPosition(f[2], f[3], f[4], f[5], raw)
	if perr != nil {
		return nil, perr
	}

	quality, err := reqInt(f[6])
	if err != nil {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("GGA fix quality: %v", err), raw)
	}
	sats, err := reqInt(f[7])
	if err != nil {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("GGA satellites: %v", err), raw)
	}

	return &types.GGAData{
		Position:       pos,
		Time:           strings.TrimSpace(f[1]),
		FixQuality:     quality,
		Satellites:     sats,
		HDOP:           optFloat(f[8]),
		AltitudeMeters: optFloat(f[9]),
	}, nil
}

// RMC: time, status, lat, N/S, lon, E/W, speed, track, date, ...
func parseRMC(f []string, raw string) (types.Sentence, *types.NMEAError) {
	if len(f) < 10 {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("RMC needs at least 10 fields, got %d", len(f)), raw)
	}

	pos, perr := optPosition(f[3], f[4], f[5], f[6], raw)
	if perr != nil {
		return nil, perr
	}

	date, err := parseRMCDate(f[9])
	if err != nil {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("RMC date: %v", err), raw)
	}

	return &types.RMCData{
		Position:   pos,
		Time:       strings.TrimSpace(f[1]),
		Valid:      strings.TrimSpace(f[2]) == "A",
		SpeedKnots: optFloat(f[7]),
		TrackTrue:  optFloat(f[8]),
		Date:       date,
	}, nil
}

// VTG: track true, T, track magnetic, M, speed knots, N, speed km/h, K, ...
func parseVTG(f []string, raw string) (types.Sentence, *types.NMEAError) {
	if len(f) < 6 {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("VTG needs at least 6 fields, got %d", len(f)), raw)
	}
	return &types.VTGData{
		SpeedKnots: optFloat(f[5]),
		TrackTrue:  optFloat(f[1]),
	}, nil
}

// MWV: angle, reference (R/T), speed, unit (N/M/K), status (A/V)
func parseMWV(f []string, raw string) (types.Sentence, *types.NMEAError) {
	if len(f) < 6 {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("MWV needs at least 6 fields, got %d", len(f)), raw)
	}
	angle, err := reqFloat(f[1])
	if err != nil {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("MWV angle: %v", err), raw)
	}
	speed, err := reqFloat(f[3])
	if err != nil {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("MWV speed: %v", err), raw)
	}

	switch strings.TrimSpace(strings.ToUpper(f[4])) {
	case "M": // m/s
		speed *= 1.94384
	case "K": // km/h
		speed /= 1.852
	}

	return &types.MWVData{
		AngleDegrees: angle,
		IsRelative:   strings.TrimSpace(strings.ToUpper(f[2])) == "R",
		SpeedKnots:   speed,
		Valid:        strings.TrimSpace(f[5]) == "A",
	}, nil
}

// DPT: depth below transducer, transducer offset, max range
func parseDPT(f []string, raw string) (types.Sentence, *types.NMEAError) {
	if len(f) < 2 {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("DPT needs at least 2 fields, got %d", len(f)), raw)
	}
	depth, err := reqFloat(f[1])
	if err != nil {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("DPT depth: %v", err), raw)
	}
	d := &types.DPTData{DepthMeters: depth}
	if len(f) > 2 {
		d.OffsetMeters = optFloat(f[2])
	}
	return d, nil
}

// HDG: magnetic heading, deviation, E/W, variation, E/W
func parseHDG(f []string, raw string) (types.Sentence, *types.NMEAError) {
	if len(f) < 6 {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("HDG needs at least 6 fields, got %d", len(f)), raw)
	}
	heading, err := reqFloat(f[1])
	if err != nil {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("HDG heading: %v", err), raw)
	}
	return &types.HDGData{
		HeadingDegrees:   heading,
		DeviationDegrees: signedDegrees(f[2], f[3]),
		VariationDegrees: signedDegrees(f[4], f[5]),
	}, nil
}

// MTW: temperature, unit (C)
func parseMTW(f []string, raw string) (types.Sentence, *types.NMEAError) {
	if len(f) < 2 {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("MTW needs at least 2 fields, got %d", len(f)), raw)
	}
	temp, err := reqFloat(f[1])
	if err != nil {
		return nil, types.NewNMEAError(types.ErrMalformedSentence, fmt.Sprintf("MTW temperature: %v", err), raw)
	}
	return &types.MTWData{TemperatureCelsius: temp}, nil
}

// optPosition decodes a lat/lon field pair. Both halves empty means the
// instrument has no fix yet; that is nil, not an error.
func optPosition(latVal, latHemi, lngVal, lngHemi, raw string) (*types.LatLng, *types.NMEAError) {
	latVal, latHemi = strings.TrimSpace(latVal), strings.TrimSpace(latHemi)
	lngVal, lngHemi = strings.TrimSpace(lngVal), strings.TrimSpace(lngHemi)
	if latVal == "" && lngVal == "" {
		return nil, nil
	}

	lat, err := ParseCoordinate(latVal, latHemi)
	if err != nil {
		return nil, types.NewNMEAError(types.ErrCoordinateParse, err.Error(), raw)
	}
	lng, err := ParseCoordinate(lngVal, lngHemi)
	if err != nil {
		return nil, types.NewNMEAError(types.ErrCoordinateParse, err.Error(), raw)
	}
	return &types.LatLng{Lat: lat, Lng: lng}, nil
}

// parseRMCDate decodes a ddmmyy field. Two-digit years map to 19xx at and
// above 70, 20xx below.
func parseRMCDate(field string) (*time.Time, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, nil
	}
	if len(field) != 6 {
		return nil, fmt.Errorf("expected ddmmyy, got %q", field)
	}
	day, err := strconv.Atoi(field[0:2])
	if err != nil {
		return nil, fmt.Errorf("bad day in %q", field)
	}
	month, err := strconv.Atoi(field[2:4])
	if err != nil {
		return nil, fmt.Errorf("bad month in %q", field)
	}
	yy, err := strconv.Atoi(field[4:6])
	if err != nil {
		return nil, fmt.Errorf("bad year in %q", field)
	}
	year := 2000 + yy
	if yy >= 70 {
		year = 1900 + yy
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil, fmt.Errorf("out of range date %q", field)
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &d, nil
}

// signedDegrees turns a magnitude plus E/W hemisphere pair into a signed
// value, easterly positive. Missing or unparsable halves yield nil.
func signedDegrees(val, dir string) *float64 {
	v := optFloat(val)
	if v == nil {
		return nil
	}
	if strings.TrimSpace(strings.ToUpper(dir)) == "W" {
		neg := -*v
		return &neg
	}
	return v
}

// optFloat parses an optional numeric field. Empty or unparsable input is
// nil, never an error.
func optFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func reqFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("required field is empty")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

func reqInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("required field is empty")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return v, nil
}
