package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oakmount/circuithub/internal/audit"
	"github.com/oakmount/circuithub/internal/device"
)

// createDeviceRequest is the request body for POST /devices.
type createDeviceRequest struct {
	Name         string `json:"name"`
	DeviceTypeID string `json:"device_type_id"`
}

// handleCreateDevice registers a new device for the authenticated user.
// The generated auth token is returned once here; the device presents it
// on every WebSocket connection attempt.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" || req.DeviceTypeID == "" {
		writeBadRequest(w, "name and device_type_id are required")
		return
	}

	if _, err := s.types.GetByID(r.Context(), req.DeviceTypeID); err != nil {
		if errors.Is(err, device.ErrTypeNotFound) {
			writeNotFound(w, "device type not found")
			return
		}
		s.logger.Error("device type lookup failed", "error", err)
		writeInternalError(w, "failed to create device")
		return
	}

	d := &device.Device{
		Name:         req.Name,
		DeviceTypeID: req.DeviceTypeID,
		UserID:       currentUserID(r),
	}
	if err := s.devices.Create(r.Context(), d); err != nil {
		s.logger.Error("device creation failed", "error", err)
		writeInternalError(w, "failed to create device")
		return
	}

	s.recordAudit(r, audit.ActionCreate, audit.EntityDevice, d.ID, d.UserID, nil)

	writeJSON(w, http.StatusCreated, d)
}

// handleListDevices returns the authenticated user's devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListByOwner(r.Context(), currentUserID(r))
	if err != nil {
		s.logger.Error("device listing failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns one device. 404 covers both "missing" and
// "owned by someone else"; a caller cannot probe other users' fleets.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.devices.GetByIDAndOwner(r.Context(), chi.URLParam(r, "id"), currentUserID(r))
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device lookup failed", "error", err)
		writeInternalError(w, "failed to load device")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDevice removes a device from the registry. A live channel,
// if any, is closed; its cleanup path records the offline transition.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.devices.Delete(r.Context(), id, currentUserID(r)); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device deletion failed", "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}

	if c, ok := s.hub.Device(id); ok {
		c.Close()
	}

	s.recordAudit(r, audit.ActionDelete, audit.EntityDevice, id, currentUserID(r), nil)

	writeJSON(w, http.StatusOK, map[string]string{"message": "device deleted"})
}
