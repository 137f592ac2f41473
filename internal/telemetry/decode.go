package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Schema identifies which wire schema produced an update.
type Schema string

const (
	SchemaGeneric Schema = "generic"
	SchemaFixed   Schema = "fixed"
)

// SchemaMode selects which schemas a Decoder accepts.
type SchemaMode string

const (
	// ModeAuto discriminates per record: a "type" key selects the generic
	// replace schema, otherwise any fixed-field key selects the patch schema.
	ModeAuto    SchemaMode = "auto"
	ModeGeneric SchemaMode = "generic"
	ModeFixed   SchemaMode = "fixed"
)

// ParseSchemaMode normalizes a configured schema mode; empty means ModeAuto.
func ParseSchemaMode(raw string) (SchemaMode, error) {
	switch SchemaMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeGeneric:
		return ModeGeneric, nil
	case ModeFixed:
		return ModeFixed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSchema, raw)
	}
}

// Update is one decoded record. Generic updates replace state wholesale;
// fixed updates patch only the keys they carry.
type Update struct {
	Schema Schema
	Record Record
	Patch  Patch
}

// Patch holds the fixed-field keys present in one record. Nil means absent.
type Patch struct {
	SteeringX       *float64
	SteeringY       *float64
	Gas             *float64
	Brake           *float64
	Gear            *Gear
	AutoMode        *bool
	LeftBlinker     *bool
	RightBlinker    *bool
	TimestampMillis *int64
}

// Apply merges the present keys of p onto base.
func (p Patch) Apply(base Controls) Controls {
	out := base
	if p.SteeringX != nil {
		out.Steering = *p.SteeringX
	}
	if p.SteeringY != nil {
		out.SteeringY = *p.SteeringY
	}
	if p.Gas != nil {
		out.Gas = *p.Gas
	}
	if p.Brake != nil {
		out.Brake = *p.Brake
	}
	if p.Gear != nil {
		out.Gear = *p.Gear
	}
	if p.AutoMode != nil {
		out.AutoMode = *p.AutoMode
	}
	if p.LeftBlinker != nil {
		out.LeftBlinker = *p.LeftBlinker
	}
	if p.RightBlinker != nil {
		out.RightBlinker = *p.RightBlinker
	}
	return out
}

var fixedFieldKeys = []string{
	"steering", "gas", "brake", "gear", "autoMode", "leftBlinker", "rightBlinker", "timestamp",
}

// Decoder parses one framed line into an Update.
type Decoder struct {
	Mode SchemaMode
}

// NewDecoder returns a decoder for mode; an empty mode is ModeAuto.
func NewDecoder(mode SchemaMode) Decoder {
	if mode == "" {
		mode = ModeAuto
	}
	return Decoder{Mode: mode}
}

// Decode parses line. All failures wrap ErrEmptyRecord, ErrMalformed or
// ErrUnrecognized; none of them invalidate the stream.
func (d Decoder) Decode(line []byte) (Update, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Update{}, ErrEmptyRecord
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(line, &obj); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	_, hasType := obj["type"]
	switch d.Mode {
	case ModeGeneric:
		if !hasType {
			return Update{}, fmt.Errorf("%w: missing type", ErrUnrecognized)
		}
		return decodeGeneric(obj)
	case ModeFixed:
		return decodeFixed(obj)
	default:
		if hasType {
			return decodeGeneric(obj)
		}
		if hasAnyKey(obj, fixedFieldKeys) {
			return decodeFixed(obj)
		}
		return Update{}, fmt.Errorf("%w: no type or fixed-field keys", ErrUnrecognized)
	}
}

func decodeGeneric(obj map[string]json.RawMessage) (Update, error) {
	rec := DefaultRecord()
	if err := decodeField(obj, "type", &rec.ControllerType); err != nil {
		return Update{}, err
	}
	if err := decodeField(obj, "axes", &rec.Axes); err != nil {
		return Update{}, err
	}
	if err := decodeField(obj, "buttons", &rec.Buttons); err != nil {
		return Update{}, err
	}
	var ts float64
	if err := decodeField(obj, "timestamp", &ts); err != nil {
		return Update{}, err
	}
	rec.TimestampMillis = int64(ts)
	if rec.Axes == nil {
		rec.Axes = []float64{}
	}
	if rec.Buttons == nil {
		rec.Buttons = []Flag{}
	}
	return Update{Schema: SchemaGeneric, Record: rec}, nil
}

type steeringWire struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func decodeFixed(obj map[string]json.RawMessage) (Update, error) {
	var p Patch
	if raw, ok := obj["steering"]; ok && !isNull(raw) {
		var s steeringWire
		if err := json.Unmarshal(raw, &s); err != nil {
			return Update{}, fmt.Errorf("%w: steering: %v", ErrMalformed, err)
		}
		p.SteeringX, p.SteeringY = &s.X, &s.Y
	}
	var err error
	if p.Gas, err = optionalField[float64](obj, "gas"); err != nil {
		return Update{}, err
	}
	if p.Brake, err = optionalField[float64](obj, "brake"); err != nil {
		return Update{}, err
	}
	label, err := optionalField[string](obj, "gear")
	if err != nil {
		return Update{}, err
	}
	if label != nil {
		g := ParseGear(*label)
		p.Gear = &g
	}
	if p.AutoMode, err = optionalField[bool](obj, "autoMode"); err != nil {
		return Update{}, err
	}
	if p.LeftBlinker, err = optionalField[bool](obj, "leftBlinker"); err != nil {
		return Update{}, err
	}
	if p.RightBlinker, err = optionalField[bool](obj, "rightBlinker"); err != nil {
		return Update{}, err
	}
	ts, err := optionalField[float64](obj, "timestamp")
	if err != nil {
		return Update{}, err
	}
	if ts != nil {
		ms := int64(*ts)
		p.TimestampMillis = &ms
	}
	return Update{Schema: SchemaFixed, Patch: p}, nil
}

func decodeField(obj map[string]json.RawMessage, key string, out any) error {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return nil
}

func optionalField[T any](obj map[string]json.RawMessage, key string) (*T, error) {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return &v, nil
}

func hasAnyKey(obj map[string]json.RawMessage, keys []string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
