package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/oakmount/circuithub/internal/device"
)

// handleSensorHistory returns recent readings for an owned device,
// newest first. The limit query parameter defaults to 100.
func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	if _, err := s.devices.GetByIDAndOwner(r.Context(), deviceID, currentUserID(r)); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device lookup failed", "error", err)
		writeInternalError(w, "failed to load sensor data")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	readings, err := s.readings.ListByDevice(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("sensor history query failed", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to load sensor data")
		return
	}

	writeJSON(w, http.StatusOK, readings)
}
