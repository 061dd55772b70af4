package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oakmount/circuithub/internal/audit"
	"github.com/oakmount/circuithub/internal/device"
)

// pinControlRequest is the request body for POST /control/pin.
type pinControlRequest struct {
	DeviceID string `json:"device_id"`
	Pin      *int   `json:"pin"`
	Value    *int   `json:"value"`
}

// handlePinControl dispatches a pin write to a connected device.
// Success means "command dispatched to a live channel if one exists",
// not "pin changed" — acknowledgment, if the firmware sends one, comes
// back later as an independent inbound message.
func (s *Server) handlePinControl(w http.ResponseWriter, r *http.Request) {
	var req pinControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DeviceID == "" || req.Pin == nil || req.Value == nil {
		writeBadRequest(w, "device_id, pin and value are required")
		return
	}

	if _, err := s.devices.GetByIDAndOwner(r.Context(), req.DeviceID, currentUserID(r)); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device lookup failed", "error", err)
		writeInternalError(w, "failed to send command")
		return
	}

	s.dispatcher.SendPinControl(req.DeviceID, *req.Pin, *req.Value)

	s.recordAudit(r, audit.ActionCommand, audit.EntityDevice, req.DeviceID, currentUserID(r), map[string]any{
		"command": "pin_control",
		"pin":     *req.Pin,
		"value":   *req.Value,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Command sent",
		"pin":     *req.Pin,
		"value":   *req.Value,
	})
}
