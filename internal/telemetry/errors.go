package telemetry

import "errors"

var (
	ErrEmptyRecord    = errors.New("telemetry: empty record")
	ErrMalformed      = errors.New("telemetry: malformed record")
	ErrUnrecognized   = errors.New("telemetry: record matches no schema")
	ErrLineTooLong    = errors.New("telemetry: line exceeds max length")
	ErrInvalidLayout  = errors.New("telemetry: invalid layout")
	ErrUnknownSchema  = errors.New("telemetry: unknown schema mode")
	ErrUnknownConvert = errors.New("telemetry: unknown axis conversion")
)
