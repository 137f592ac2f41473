package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/ctrldash/internal/dashboard"
	"github.com/danmuck/ctrldash/internal/listener"
	"github.com/danmuck/ctrldash/internal/state"
	"github.com/danmuck/ctrldash/internal/statusapi"
	"github.com/danmuck/ctrldash/internal/telemetry"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidRenderInterval = errors.New("service: invalid render interval")
	ErrInvalidThresholds     = errors.New("service: invalid staleness thresholds")
	ErrInvalidHeartbeat      = errors.New("service: invalid heartbeat interval")
)

// Renderer owns the display until it returns. A nil return means the user
// asked to quit.
type Renderer func(ctx context.Context, src dashboard.Source, opts dashboard.Options) error

// Config configures one dashctl process.
type Config struct {
	Listener       listener.Config
	RenderInterval time.Duration
	Thresholds     state.Thresholds
	// StatusAddr enables the HTTP status API when set.
	StatusAddr  string
	CorsOrigins []string
	// Layouts are registered over the built-ins in order.
	Layouts []telemetry.Layout

	// Headless replaces the terminal display with a heartbeat log.
	Headless          bool
	HeartbeatInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Listener:          listener.DefaultConfig(),
		RenderInterval:    dashboard.DefaultInterval,
		Thresholds:        state.DefaultThresholds(),
		HeartbeatInterval: 5 * time.Second,
	}
}

// Service wires the listener, store, renderer and optional status API.
type Service struct {
	cfg     Config
	store   *state.Store
	mapper  *telemetry.Mapper
	manager *listener.Manager
	render  Renderer
}

func New(cfg Config) (*Service, error) {
	if cfg.RenderInterval <= 0 {
		return nil, ErrInvalidRenderInterval
	}
	if cfg.Thresholds.SlowAfter <= 0 || cfg.Thresholds.SlowAfter >= cfg.Thresholds.StaleAfter {
		return nil, fmt.Errorf("%w: slow_after=%s stale_after=%s", ErrInvalidThresholds, cfg.Thresholds.SlowAfter, cfg.Thresholds.StaleAfter)
	}
	if cfg.Headless && cfg.HeartbeatInterval <= 0 {
		return nil, ErrInvalidHeartbeat
	}

	mapper := telemetry.NewMapper()
	for _, l := range cfg.Layouts {
		if err := mapper.Register(l); err != nil {
			return nil, err
		}
	}
	store := state.NewStore()
	return &Service{
		cfg:     cfg,
		store:   store,
		mapper:  mapper,
		manager: listener.NewManager(cfg.Listener, store, mapper),
		render:  dashboard.Run,
	}, nil
}

// WithRenderer replaces the terminal display.
func (s *Service) WithRenderer(r Renderer) *Service {
	s.render = r
	return s
}

func (s *Service) Store() *state.Store {
	return s.store
}

func (s *Service) Mapper() *telemetry.Mapper {
	return s.mapper
}

func (s *Service) Manager() *listener.Manager {
	return s.manager
}

// Run blocks until SIGINT, SIGTERM, the user quits, or a component fails.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.serve(ctx)
}

func (s *Service) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.manager.Run(gctx)
	})

	// Bind before the display takes the terminal so a bind failure is visible.
	select {
	case <-s.manager.Ready():
	case <-gctx.Done():
		return g.Wait()
	}

	if strings.TrimSpace(s.cfg.StatusAddr) != "" {
		api := statusapi.New(s.cfg.StatusAddr, s.store, statusapi.Options{
			CorsOrigins: s.cfg.CorsOrigins,
			Thresholds:  s.cfg.Thresholds,
			Phase:       func() string { return string(s.manager.Phase()) },
		})
		g.Go(func() error {
			return api.Serve(gctx)
		})
	}

	log.Info().
		Str("addr", s.manager.Addr().String()).
		Bool("headless", s.cfg.Headless).
		Str("status_addr", s.cfg.StatusAddr).
		Msg("service.Service.serve ready")

	if s.cfg.Headless {
		g.Go(func() error {
			s.heartbeat(gctx)
			return nil
		})
	} else {
		opts := dashboard.Options{
			Host:       s.cfg.Listener.WithDefaults().Host,
			Port:       boundPort(s.manager.Addr(), s.cfg.Listener.Port),
			Interval:   s.cfg.RenderInterval,
			Thresholds: s.cfg.Thresholds,
		}
		g.Go(func() error {
			defer cancel()
			return s.render(gctx, s.store, opts)
		})
	}

	err := g.Wait()
	log.Info().Err(err).Msg("service.Service.serve shutdown")
	return err
}

func (s *Service) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			snap := s.store.Snapshot()
			class, age := snap.Staleness(now, s.cfg.Thresholds)
			log.Info().
				Str("phase", string(s.manager.Phase())).
				Str("staleness", string(class)).
				Dur("age", age).
				Str("controller", snap.Record.ControllerType).
				Float64("gas", snap.Controls.Gas).
				Float64("brake", snap.Controls.Brake).
				Float64("steering", snap.Controls.Steering).
				Str("gear", string(snap.Controls.Gear)).
				Uint64("received", snap.Counters.Received).
				Uint64("dropped", snap.Counters.Dropped).
				Msg("service.Service.heartbeat")
		}
	}
}

func boundPort(addr net.Addr, fallback int) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return fallback
}
