package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	// WebSocket admission points. The dashboard endpoint carries the
	// user id in the path; the device endpoint authenticates with its
	// token before any registry mutation.
	r.Get("/ws/dashboard/{userID}", s.handleDashboardWS)
	r.Get("/ws/device/{deviceID}/{authToken}", s.handleDeviceWS)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.bodySizeLimitMiddleware)

		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)

			r.Route("/device-types", func(r chi.Router) {
				r.Get("/", s.handleListDeviceTypes)
				r.Post("/", s.handleCreateDeviceType)
			})

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.Delete("/", s.handleDeleteDevice)
				})
			})

			r.Route("/firmware", func(r chi.Router) {
				r.Post("/upload", s.handleFirmwareUpload)
				r.Get("/device-type/{typeID}", s.handleListFirmware)
				r.Get("/{id}/download", s.handleFirmwareDownload)
			})

			// OTA trigger and pin control go through the dispatcher.
			r.Post("/ota/{deviceID}/{firmwareID}", s.handleTriggerOTA)
			r.Post("/control/pin", s.handlePinControl)

			r.Get("/sensor-data/{deviceID}", s.handleSensorHistory)

			r.Get("/audit", s.handleListAudit)
		})
	})

	return r
}

// handleHealth returns the server health status and fleet counts.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"devices":    s.hub.DeviceCount(),
		"dashboards": s.hub.DashboardCount(),
	})
}
