package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseCoordinate converts an NMEA degree-minute value plus hemisphere into
// decimal degrees. Latitudes (N/S) carry two degree digits, longitudes (E/W)
// three; anything shorter is rejected rather than silently truncated.
func ParseCoordinate(value, hemisphere string) (float64, error) {
	value = strings.TrimSpace(value)
	hemisphere = strings.TrimSpace(strings.ToUpper(hemisphere))

	var degreeDigits int
	switch hemisphere {
	case "N", "S":
		degreeDigits = 2
	case "E", "W":
		degreeDigits = 3
	default:
		return 0, fmt.Errorf("unknown hemisphere %q", hemisphere)
	}

	// A well-formed value has at least two minutes digits after the degrees;
	// anything shorter is a truncated field, not a zero-minute reading.
	if len(value) < degreeDigits+2 {
		return 0, fmt.Errorf("coordinate %q too short for %d degree digits", value, degreeDigits)
	}

	degrees, err := strconv.Atoi(value[:degreeDigits])
	if err != nil {
		return 0, fmt.Errorf("bad degrees in %q", value)
	}
	minutes, err := strconv.ParseFloat(value[degreeDigits:], 64)
	if err != nil {
		return 0, fmt.Errorf("bad minutes in %q", value)
	}
	if minutes >= 60 {
		return 0, fmt.Errorf("minutes out of range in %q", value)
	}

	decimal := float64(degrees) + minutes/60.0
	if hemisphere == "S" || hemisphere == "W" {
		decimal = -decimal
	}
	return decimal, nil
}

// FormatCoordinate is the inverse of ParseCoordinate: decimal degrees to
// ddmm.mmmm (latitude) or dddmm.mmmm (longitude) plus hemisphere letter.
func FormatCoordinate(decimal float64, isLatitude bool) (string, string) {
	hemisphere := "N"
	if isLatitude {
		if decimal < 0 {
			hemisphere = "S"
		}
	} else {
		hemisphere = "E"
		if decimal < 0 {
			hemisphere = "W"
		}
	}

	abs := math.Abs(decimal)
	degrees := int(abs)
	minutes := (abs - float64(degrees)) * 60.0

	// Carry 59.99995+ minutes into the degree field instead of printing 60.
	if minutes >= 59.99995 {
		minutes = 0
		degrees++
	}

	if isLatitude {
		return fmt.Sprintf("%02d%07.4f", degrees, minutes), hemisphere
	}
	return fmt.Sprintf("%03d%07.4f", degrees, minutes), hemisphere
}
