package telemetry

import (
	"bytes"
	"fmt"
	"strconv"
)

// UnknownControllerType tags the neutral record held before any data arrives.
const UnknownControllerType = "unknown"

// FixedFieldControllerType tags records synthesized from fixed-field patches.
const FixedFieldControllerType = "fixed_field"

// Record is one decoded generic-schema payload.
type Record struct {
	ControllerType  string    `json:"type"`
	Axes            []float64 `json:"axes"`
	Buttons         []Flag    `json:"buttons"`
	TimestampMillis int64     `json:"timestamp"`
}

// DefaultRecord returns the neutral record used before the first update.
func DefaultRecord() Record {
	return Record{
		ControllerType: UnknownControllerType,
		Axes:           []float64{},
		Buttons:        []Flag{},
	}
}

// Clone returns a deep copy so callers never share backing arrays.
func (r Record) Clone() Record {
	out := r
	out.Axes = append(make([]float64, 0, len(r.Axes)), r.Axes...)
	out.Buttons = append(make([]Flag, 0, len(r.Buttons)), r.Buttons...)
	return out
}

// Flag is a positional button value. The wire carries either JSON booleans
// or numbers; any non-zero number is true.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	switch string(raw) {
	case "true":
		*f = true
		return nil
	case "false", "null":
		*f = false
		return nil
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("%w: button value %s", ErrMalformed, raw)
	}
	*f = v != 0
	return nil
}

// Gear is the transmission selector state.
type Gear string

const (
	GearPark    Gear = "P"
	GearReverse Gear = "R"
	GearNeutral Gear = "N"
	GearDrive   Gear = "D"
	GearUnknown Gear = "?"
)

// ParseGear maps a wire label to a Gear; unrecognized labels are GearUnknown.
func ParseGear(raw string) Gear {
	switch Gear(raw) {
	case GearPark, GearReverse, GearNeutral, GearDrive:
		return Gear(raw)
	default:
		return GearUnknown
	}
}

// Controls is the semantic projection of a record.
type Controls struct {
	Gas          float64 `json:"gas"`
	Brake        float64 `json:"brake"`
	Steering     float64 `json:"steering"`
	SteeringY    float64 `json:"steering_y"`
	Gear         Gear    `json:"gear"`
	AutoMode     bool    `json:"auto_mode"`
	LeftBlinker  bool    `json:"left_blinker"`
	RightBlinker bool    `json:"right_blinker"`
}

// NeutralControls is the projection for unknown or undersized records.
func NeutralControls() Controls {
	return Controls{Gear: GearUnknown}
}

// FixedFieldDefaults is the starting state of the fixed-field schema before
// any patch has been applied.
func FixedFieldDefaults() Controls {
	return Controls{Gear: GearPark}
}
