package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/ctrldash/internal/observability"
	"github.com/danmuck/ctrldash/internal/state"
	"github.com/danmuck/ctrldash/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidPort = errors.New("listener: invalid port")
	ErrBind        = errors.New("listener: bind failed")
)

// Phase is the connection manager state.
type Phase string

const (
	PhaseDisconnected Phase = "DISCONNECTED"
	PhaseConnected    Phase = "CONNECTED"
)

// Config defines the telemetry listener endpoint and poll cadence.
type Config struct {
	Host string
	Port int

	// AcceptTimeout bounds each accept wait so shutdown is observed.
	AcceptTimeout time.Duration
	// ReadPollInterval bounds each read wait; expiry is not a disconnect.
	ReadPollInterval time.Duration
	ReadBufferBytes  int
	MaxLineBytes     int
	Schema           telemetry.SchemaMode

	// DiagnosticsPerSecond limits drop warnings; bursts up to DiagnosticsBurst.
	DiagnosticsPerSecond float64
	DiagnosticsBurst     int
}

func DefaultConfig() Config {
	return Config{
		Host:                 "0.0.0.0",
		Port:                 5000,
		AcceptTimeout:        1 * time.Second,
		ReadPollInterval:     500 * time.Millisecond,
		ReadBufferBytes:      1024,
		MaxLineBytes:         telemetry.DefaultMaxLineBytes,
		Schema:               telemetry.ModeAuto,
		DiagnosticsPerSecond: 2,
		DiagnosticsBurst:     5,
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.Host) == "" {
		c.Host = d.Host
	}
	if c.AcceptTimeout <= 0 {
		c.AcceptTimeout = d.AcceptTimeout
	}
	if c.ReadPollInterval <= 0 {
		c.ReadPollInterval = d.ReadPollInterval
	}
	if c.ReadBufferBytes <= 0 {
		c.ReadBufferBytes = d.ReadBufferBytes
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = d.MaxLineBytes
	}
	if c.Schema == "" {
		c.Schema = d.Schema
	}
	if c.DiagnosticsPerSecond <= 0 {
		c.DiagnosticsPerSecond = d.DiagnosticsPerSecond
	}
	if c.DiagnosticsBurst <= 0 {
		c.DiagnosticsBurst = d.DiagnosticsBurst
	}
	return c
}

// Addr is the configured bind address.
func (c Config) Addr() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(c.Port))
}

// Manager accepts one telemetry client at a time and feeds its records into
// the store. A new client is accepted only after the active one ends.
type Manager struct {
	cfg     Config
	store   *state.Store
	mapper  *telemetry.Mapper
	decoder telemetry.Decoder
	diag    *rate.Limiter
	now     func() time.Time

	phase atomic.Value

	addrMu sync.RWMutex
	addr   net.Addr
	ready  chan struct{}
}

// NewManager constructs a manager; a nil mapper uses the built-in layouts.
func NewManager(cfg Config, store *state.Store, mapper *telemetry.Mapper) *Manager {
	cfg = cfg.WithDefaults()
	if mapper == nil {
		mapper = telemetry.NewMapper()
	}
	m := &Manager{
		cfg:     cfg,
		store:   store,
		mapper:  mapper,
		decoder: telemetry.NewDecoder(cfg.Schema),
		diag:    rate.NewLimiter(rate.Limit(cfg.DiagnosticsPerSecond), cfg.DiagnosticsBurst),
		now:     time.Now,
		ready:   make(chan struct{}),
	}
	m.phase.Store(PhaseDisconnected)
	return m
}

// Phase returns the current connection state.
func (m *Manager) Phase() Phase {
	return m.phase.Load().(Phase)
}

// Ready is closed once the listener is bound.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Addr returns the bound listener address, or nil before Ready.
func (m *Manager) Addr() net.Addr {
	m.addrMu.RLock()
	defer m.addrMu.RUnlock()
	return m.addr
}

type deadliner interface {
	SetDeadline(time.Time) error
}

// Run binds the listener and serves clients until ctx ends. Only a bind
// failure or a fatal accept error is returned.
func (m *Manager) Run(ctx context.Context) error {
	if m.cfg.Port < 0 || m.cfg.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, m.cfg.Port)
	}
	ln, err := net.Listen("tcp", m.cfg.Addr())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBind, m.cfg.Addr(), err)
	}
	defer ln.Close()

	m.addrMu.Lock()
	m.addr = ln.Addr()
	m.addrMu.Unlock()
	close(m.ready)
	log.Info().Str("addr", ln.Addr().String()).Str("schema", string(m.cfg.Schema)).Msg("listener.Manager.Run listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	dl, _ := ln.(deadliner)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if dl != nil {
			_ = dl.SetDeadline(time.Now().Add(m.cfg.AcceptTimeout))
		}
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if isTimeout(err) {
				continue
			}
			return fmt.Errorf("listener: accept: %w", err)
		}
		m.serveConn(ctx, conn)
	}
}

// serveConn owns conn until its reader ends, then returns the manager to
// DISCONNECTED.
func (m *Manager) serveConn(ctx context.Context, conn net.Conn) {
	desc := describe(conn, m.now())
	m.store.SetConnection(desc)
	m.phase.Store(PhaseConnected)
	observability.RecordConnectionOpened()
	log.Info().
		Str("conn_id", desc.ID).
		Str("remote", desc.RemoteAddr).
		Msg("listener.Manager client connected")

	done := make(chan error, 1)
	go func() {
		done <- m.read(ctx, conn, desc)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		_ = conn.Close()
		err = <-done
	}
	_ = conn.Close()

	m.store.ClearConnection(desc.ID)
	m.phase.Store(PhaseDisconnected)
	observability.RecordConnectionClosed()

	event := log.Info()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.
		Str("conn_id", desc.ID).
		Str("remote", desc.RemoteAddr).
		Dur("duration", m.now().Sub(desc.ConnectedAt)).
		Msg("listener.Manager client disconnected")
}

// read frames and decodes conn until EOF, a read error, or shutdown. A clean
// close or shutdown returns nil.
func (m *Manager) read(ctx context.Context, conn net.Conn, desc state.Connection) error {
	framer := telemetry.NewFramer(m.cfg.MaxLineBytes)
	buf := make([]byte, m.cfg.ReadBufferBytes)
	for {
		if ctx.Err() != nil {
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(m.cfg.ReadPollInterval))
		n, err := conn.Read(buf)
		if n > 0 {
			lines, ferr := framer.Feed(buf[:n])
			if ferr != nil {
				m.drop(desc, "too_long", ferr)
			}
			for _, line := range lines {
				m.ingest(desc, line)
			}
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) || ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (m *Manager) ingest(desc state.Connection, line []byte) {
	u, err := m.decoder.Decode(line)
	if err != nil {
		switch {
		case errors.Is(err, telemetry.ErrEmptyRecord):
			return
		case errors.Is(err, telemetry.ErrUnrecognized):
			m.drop(desc, "unrecognized", err)
		default:
			m.drop(desc, "malformed", err)
		}
		return
	}
	m.store.Apply(u, m.mapper.Map, m.now())
	observability.RecordIngest(string(u.Schema))
}

func (m *Manager) drop(desc state.Connection, reason string, err error) {
	m.store.RecordDrop()
	observability.RecordDrop(reason)
	if m.diag.Allow() {
		log.Warn().
			Err(err).
			Str("conn_id", desc.ID).
			Str("reason", reason).
			Msg("listener.Manager dropped record")
	}
}

func describe(conn net.Conn, at time.Time) state.Connection {
	desc := state.Connection{
		ID:          uuid.NewString(),
		RemoteAddr:  conn.RemoteAddr().String(),
		ConnectedAt: at,
	}
	if host, port, err := net.SplitHostPort(desc.RemoteAddr); err == nil {
		desc.RemoteIP = host
		desc.RemotePort, _ = strconv.Atoi(port)
	}
	return desc
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
