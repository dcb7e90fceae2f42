package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/armadillo-fleet/armadillo-core/internal/fleet"
	"github.com/armadillo-fleet/armadillo-core/internal/hierarchy"
	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/config"
	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/logging"
	"github.com/armadillo-fleet/armadillo-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is a component whose health is reported by GET /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Limits    config.TelemetryConfig
	Logger    *logging.Logger
	Fleet     *fleet.Registry
	Assembler *hierarchy.Assembler
	Telemetry telemetry.Store

	// Hub receives stored records for the stream endpoint. It must also be
	// registered as an observer on Telemetry for pushes to happen.
	Hub *Hub

	// Health lists optional components checked by GET /health, by name.
	Health  map[string]HealthChecker
	Version string
}

// Server is the HTTP API server for Armadillo Core.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	limits    config.TelemetryConfig
	logger    *logging.Logger
	fleet     *fleet.Registry
	assembler *hierarchy.Assembler
	telemetry telemetry.Store
	hub       *Hub
	health    map[string]HealthChecker
	version   string
	server    *http.Server
	cancel    context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Fleet == nil {
		return nil, fmt.Errorf("fleet registry is required")
	}
	if deps.Telemetry == nil {
		return nil, fmt.Errorf("telemetry store is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		limits:    deps.Limits,
		logger:    deps.Logger,
		fleet:     deps.Fleet,
		assembler: deps.Assembler,
		telemetry: deps.Telemetry,
		hub:       deps.Hub,
		health:    deps.Health,
		version:   deps.Version,
	}

	if s.assembler == nil {
		s.assembler = hierarchy.NewAssembler(deps.Fleet, hierarchy.DefaultMaxConcurrency)
	}
	if s.hub == nil {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	if s.limits.DefaultLimit <= 0 {
		s.limits.DefaultLimit = defaultHistoryLimit
	}
	if s.limits.MaxLimit < s.limits.DefaultLimit {
		s.limits.MaxLimit = s.limits.DefaultLimit
	}

	return s, nil
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start runs the WebSocket hub and begins listening in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close stops the hub and waits up to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
