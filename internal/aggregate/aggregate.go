// Package aggregate folds decoded NMEA sentences into a navigation snapshot.
//
// An Aggregate is a value: Merge returns a new copy, so a snapshot handed
// across a channel can never be mutated behind the receiver's back.
package aggregate

import (
	"time"

	"github.com/helmwatch/nmea-ingest/internal/types"
)

// Aggregate is the latest decoded state per sentence type. Slots are nil
// until the first sentence of that type arrives and survive reconnects:
// losing the link does not mean losing the last known position.
type Aggregate struct {
	Timestamp time.Time       `json:"timestamp"`
	GGA       *types.GGAData  `json:"gga,omitempty"`
	RMC       *types.RMCData  `json:"rmc,omitempty"`
	VTG       *types.VTGData  `json:"vtg,omitempty"`
	MWV       *types.MWVData  `json:"mwv,omitempty"`
	DPT       *types.DPTData  `json:"dpt,omitempty"`
	HDG       *types.HDGData  `json:"hdg,omitempty"`
	MTW       *types.MTWData  `json:"mtw,omitempty"`
}

// Merge returns a copy of the aggregate with the slot matching the parsed
// sentence replaced and the timestamp advanced. All other slots are kept;
// a GPVTG only ever updates speed/course, never position.
func (a Aggregate) Merge(s types.Sentence, now time.Time) Aggregate {
	next := a
	switch v := s.(type) {
	case *types.GGAData:
		next.GGA = v
	case *types.RMCData:
		next.RMC = v
	case *types.VTGData:
		next.VTG = v
	case *types.MWVData:
		next.MWV = v
	case *types.DPTData:
		next.DPT = v
	case *types.HDGData:
		next.HDG = v
	case *types.MTWData:
		next.MTW = v
	default:
		return a
	}
	next.Timestamp = now
	return next
}

// Position prefers the GPRMC fix over GPGGA.
func (a Aggregate) Position() *types.LatLng {
	if a.RMC != nil && a.RMC.Position != nil {
		return a.RMC.Position
	}
	if a.GGA != nil {
		return a.GGA.Position
	}
	return nil
}

// SpeedOverGroundKnots prefers GPRMC speed over GPVTG.
func (a Aggregate) SpeedOverGroundKnots() *float64 {
	if a.RMC != nil && a.RMC.SpeedKnots != nil {
		return a.RMC.SpeedKnots
	}
	if a.VTG != nil {
		return a.VTG.SpeedKnots
	}
	return nil
}

// CourseOverGroundDegrees prefers GPRMC track over GPVTG.
func (a Aggregate) CourseOverGroundDegrees() *float64 {
	if a.RMC != nil && a.RMC.TrackTrue != nil {
		return a.RMC.TrackTrue
	}
	if a.VTG != nil {
		return a.VTG.TrackTrue
	}
	return nil
}

// HeadingTrueDegrees is magnetic heading corrected by deviation and
// variation when present. Nil without a magnetic heading.
func (a Aggregate) HeadingTrueDegrees() *float64 {
	if a.HDG == nil {
		return nil
	}
	heading := a.HDG.HeadingDegrees
	if a.HDG.DeviationDegrees != nil {
		heading += *a.HDG.DeviationDegrees
	}
	if a.HDG.VariationDegrees != nil {
		heading += *a.HDG.VariationDegrees
	}
	return &heading
}

// WindSpeedKnots comes from the last valid MWV sentence.
func (a Aggregate) WindSpeedKnots() *float64 {
	if a.MWV == nil || !a.MWV.Valid {
		return nil
	}
	speed := a.MWV.SpeedKnots
	return &speed
}

// WindDirectionDegrees comes from the last valid MWV sentence. The angle is
// relative to the bow when MWV.IsRelative is set.
func (a Aggregate) WindDirectionDegrees() *float64 {
	if a.MWV == nil || !a.MWV.Valid {
		return nil
	}
	angle := a.MWV.AngleDegrees
	return &angle
}

// DepthMeters comes from DPT.
func (a Aggregate) DepthMeters() *float64 {
	if a.DPT == nil {
		return nil
	}
	depth := a.DPT.DepthMeters
	return &depth
}

// WaterTempCelsius comes from MTW.
func (a Aggregate) WaterTempCelsius() *float64 {
	if a.MTW == nil {
		return nil
	}
	temp := a.MTW.TemperatureCelsius
	return &temp
}
