package statusapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/ctrldash/internal/observability"
	"github.com/danmuck/ctrldash/internal/state"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

var ErrListen = errors.New("statusapi: listen failed")

// Source is the read side of the state store.
type Source interface {
	Snapshot() state.Snapshot
}

type Options struct {
	CorsOrigins []string
	Thresholds  state.Thresholds
	// Phase reports the listener state; nil reports "unknown".
	Phase func() string
}

// Server exposes read-only health, status and metrics endpoints.
type Server struct {
	addr     string
	src      Source
	opts     Options
	router   *gin.Engine
	appeared time.Time
}

func New(addr string, src Source, opts Options) *Server {
	observability.RegisterMetrics()
	if opts.Thresholds == (state.Thresholds{}) {
		opts.Thresholds = state.DefaultThresholds()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		addr:     addr,
		src:      src,
		opts:     opts,
		router:   r,
		appeared: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// StatusResponse is the /status body.
type StatusResponse struct {
	Phase      string         `json:"phase"`
	Staleness  string         `json:"staleness"`
	AgeSeconds float64        `json:"age_seconds"`
	Snapshot   state.Snapshot `json:"snapshot"`
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"service": "dashctl",
			"version": version,
		})
	})

	s.router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.status(time.Now()))
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) status(now time.Time) StatusResponse {
	snap := s.src.Snapshot()
	class, age := snap.Staleness(now, s.opts.Thresholds)
	phase := "unknown"
	if s.opts.Phase != nil {
		phase = s.opts.Phase()
	}
	return StatusResponse{
		Phase:      phase,
		Staleness:  string(class),
		AgeSeconds: age.Seconds(),
		Snapshot:   snap,
	}
}

// Serve listens on the configured address until ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Join(ErrListen, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("statusapi.Server.Serve listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("statusapi.Server.Serve shutdown")
		}
		<-errCh
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
