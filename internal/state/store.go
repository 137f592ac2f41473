package state

import (
	"sync"
	"time"

	"github.com/danmuck/ctrldash/internal/telemetry"
)

// Connection describes the single active telemetry client.
type Connection struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	RemoteIP    string    `json:"remote_ip"`
	RemotePort  int       `json:"remote_port"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Counters are cumulative for the process lifetime.
type Counters struct {
	Received    uint64 `json:"received"`
	Dropped     uint64 `json:"dropped"`
	Connections uint64 `json:"connections"`
}

// Snapshot is a consistent copy of the latest state. It shares no memory
// with the Store.
type Snapshot struct {
	Record     telemetry.Record   `json:"record"`
	Controls   telemetry.Controls `json:"controls"`
	Schema     telemetry.Schema   `json:"schema,omitempty"`
	LastUpdate time.Time          `json:"last_update"`
	Connection *Connection        `json:"connection,omitempty"`
	Counters   Counters           `json:"counters"`
}

// Connected reports whether a client is attached.
func (s Snapshot) Connected() bool {
	return s.Connection != nil
}

// Store holds the latest telemetry record, its projection, the last update
// instant, and the connection descriptor. Writers replace whole values under
// the lock so a Snapshot never mixes two records.
type Store struct {
	mu sync.RWMutex

	record     telemetry.Record
	controls   telemetry.Controls
	schema     telemetry.Schema
	lastUpdate time.Time
	conn       *Connection
	counters   Counters
}

// NewStore returns a store holding the neutral default record.
func NewStore() *Store {
	return &Store{
		record:   telemetry.DefaultRecord(),
		controls: telemetry.NeutralControls(),
	}
}

// Replace installs rec and its projection, discarding all prior record state.
func (s *Store) Replace(rec telemetry.Record, controls telemetry.Controls, at time.Time) {
	rec = rec.Clone()
	s.mu.Lock()
	s.record = rec
	s.controls = controls
	s.schema = telemetry.SchemaGeneric
	s.lastUpdate = at
	s.counters.Received++
	s.mu.Unlock()
}

// Patch merges a fixed-field patch. The first patch after generic (or no)
// data starts from the fixed-field defaults.
func (s *Store) Patch(p telemetry.Patch, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := s.controls
	ts := s.record.TimestampMillis
	if s.schema != telemetry.SchemaFixed {
		base = telemetry.FixedFieldDefaults()
		ts = 0
	}
	if p.TimestampMillis != nil {
		ts = *p.TimestampMillis
	}
	s.controls = p.Apply(base)
	s.record = telemetry.Record{
		ControllerType:  telemetry.FixedFieldControllerType,
		Axes:            []float64{},
		Buttons:         []telemetry.Flag{},
		TimestampMillis: ts,
	}
	s.schema = telemetry.SchemaFixed
	s.lastUpdate = at
	s.counters.Received++
}

// Apply routes a decoded update to Replace or Patch. project derives the
// semantic view for generic records.
func (s *Store) Apply(u telemetry.Update, project func(telemetry.Record) telemetry.Controls, at time.Time) {
	switch u.Schema {
	case telemetry.SchemaFixed:
		s.Patch(u.Patch, at)
	default:
		s.Replace(u.Record, project(u.Record), at)
	}
}

// RecordDrop counts one segment that never reached state.
func (s *Store) RecordDrop() {
	s.mu.Lock()
	s.counters.Dropped++
	s.mu.Unlock()
}

// SetConnection records the active client.
func (s *Store) SetConnection(c Connection) {
	s.mu.Lock()
	s.conn = &c
	s.counters.Connections++
	s.mu.Unlock()
}

// ClearConnection drops the descriptor if it still belongs to id. Telemetry
// state is retained so the display can show it going stale.
func (s *Store) ClearConnection(id string) {
	s.mu.Lock()
	if s.conn != nil && s.conn.ID == id {
		s.conn = nil
	}
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{
		Record:     s.record.Clone(),
		Controls:   s.controls,
		Schema:     s.schema,
		LastUpdate: s.lastUpdate,
		Counters:   s.counters,
	}
	if s.conn != nil {
		c := *s.conn
		out.Connection = &c
	}
	return out
}
