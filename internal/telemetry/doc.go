// Package telemetry owns the controller-state wire contract.
//
// Ownership boundary:
// - line framing over a raw byte stream
// - record decoding for the generic and fixed-field schemas
// - semantic mapping from positional axes/buttons to named controls
package telemetry
