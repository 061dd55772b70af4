// Package api provides the HTTP REST API and WebSocket endpoints for
// CircuitHub.
//
// It exposes user accounts, the device registry, firmware distribution,
// pin control, and sensor history to dashboards, and the two WebSocket
// admission points (dashboard sessions and authenticated devices) that
// feed the hub.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oakmount/circuithub/internal/audit"
	"github.com/oakmount/circuithub/internal/auth"
	"github.com/oakmount/circuithub/internal/device"
	"github.com/oakmount/circuithub/internal/hub"
	"github.com/oakmount/circuithub/internal/infrastructure/config"
	"github.com/oakmount/circuithub/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	Hub         *hub.Hub
	Coordinator *hub.Coordinator
	Dispatcher  *hub.Dispatcher

	Users    auth.UserRepository
	Devices  device.Repository
	Types    device.TypeRepository
	Firmware device.FirmwareRepository
	Readings device.ReadingRepository
	Audit    audit.Repository // optional; nil disables the trail

	Version string
}

// Server is the HTTP API server for CircuitHub.
type Server struct {
	cfg    config.APIConfig
	wsCfg  config.WebSocketConfig
	secCfg config.SecurityConfig
	logger *logging.Logger

	hub         *hub.Hub
	coordinator *hub.Coordinator
	dispatcher  *hub.Dispatcher

	users    auth.UserRepository
	devices  device.Repository
	types    device.TypeRepository
	firmware device.FirmwareRepository
	readings device.ReadingRepository
	audit    audit.Repository

	version string
	server  *http.Server
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Hub == nil || deps.Coordinator == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("hub, coordinator and dispatcher are required")
	}
	if deps.Users == nil || deps.Devices == nil || deps.Types == nil ||
		deps.Firmware == nil || deps.Readings == nil {
		return nil, fmt.Errorf("all repositories are required")
	}

	return &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		hub:         deps.Hub,
		coordinator: deps.Coordinator,
		dispatcher:  deps.Dispatcher,
		users:       deps.Users,
		devices:     deps.Devices,
		types:       deps.Types,
		firmware:    deps.Firmware,
		readings:    deps.Readings,
		audit:       deps.Audit,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
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

// Close gracefully shuts the server down: in-flight requests get up to
// gracefulShutdownTimeout, then remaining connections are closed. Live
// WebSocket channels are torn down through the hub so every device goes
// through its offline transition.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	s.hub.CloseAll()

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
