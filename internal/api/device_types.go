package api

import (
	"encoding/json"
	"net/http"

	"github.com/oakmount/circuithub/internal/audit"
	"github.com/oakmount/circuithub/internal/device"
)

// createDeviceTypeRequest is the request body for POST /device-types.
type createDeviceTypeRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	PinsConfig  []device.PinConfig `json:"pins_config"`
}

// handleCreateDeviceType registers a new hardware profile.
func (s *Server) handleCreateDeviceType(w http.ResponseWriter, r *http.Request) {
	var req createDeviceTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	dt := &device.Type{
		Name:        req.Name,
		Description: req.Description,
		PinsConfig:  req.PinsConfig,
	}
	if err := s.types.Create(r.Context(), dt); err != nil {
		s.logger.Error("device type creation failed", "error", err)
		writeInternalError(w, "failed to create device type")
		return
	}

	s.recordAudit(r, audit.ActionCreate, audit.EntityDeviceType, dt.ID, currentUserID(r), nil)

	writeJSON(w, http.StatusCreated, dt)
}

// handleListDeviceTypes returns all registered hardware profiles.
func (s *Server) handleListDeviceTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.types.List(r.Context())
	if err != nil {
		s.logger.Error("device type listing failed", "error", err)
		writeInternalError(w, "failed to list device types")
		return
	}

	writeJSON(w, http.StatusOK, types)
}
