package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oakmount/circuithub/internal/audit"
	"github.com/oakmount/circuithub/internal/device"
)

// maxFirmwareUploadSize caps firmware images at 8 MB. Embedded targets
// rarely exceed a few hundred kilobytes.
const maxFirmwareUploadSize = 8 << 20

// handleFirmwareUpload accepts a multipart firmware image and stores it
// base64-encoded alongside its metadata.
func (s *Server) handleFirmwareUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFirmwareUploadSize)

	if err := r.ParseMultipartForm(maxFirmwareUploadSize); err != nil {
		writeBadRequest(w, "invalid multipart form")
		return
	}

	typeID := r.FormValue("device_type_id")
	version := r.FormValue("version")
	if typeID == "" || version == "" {
		writeBadRequest(w, "device_type_id and version are required")
		return
	}

	if _, err := s.types.GetByID(r.Context(), typeID); err != nil {
		if errors.Is(err, device.ErrTypeNotFound) {
			writeNotFound(w, "device type not found")
			return
		}
		s.logger.Error("device type lookup failed", "error", err)
		writeInternalError(w, "failed to store firmware")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "firmware file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("firmware read failed", "filename", header.Filename, "error", err)
		writeInternalError(w, "failed to read firmware file")
		return
	}

	fw := &device.Firmware{
		DeviceTypeID: typeID,
		Version:      version,
		FileData:     base64.StdEncoding.EncodeToString(data),
		FileSize:     int64(len(data)),
		Description:  r.FormValue("description"),
	}
	if err := s.firmware.Create(r.Context(), fw); err != nil {
		s.logger.Error("firmware storage failed", "error", err)
		writeInternalError(w, "failed to store firmware")
		return
	}

	s.recordAudit(r, audit.ActionUpload, audit.EntityFirmware, fw.ID, currentUserID(r), map[string]any{
		"version":   version,
		"file_size": fw.FileSize,
	})

	// Strip the image from the response; metadata is enough.
	fw.FileData = ""
	writeJSON(w, http.StatusCreated, fw)
}

// handleListFirmware returns active firmware versions for a device type,
// without image data.
func (s *Server) handleListFirmware(w http.ResponseWriter, r *http.Request) {
	versions, err := s.firmware.ListByDeviceType(r.Context(), chi.URLParam(r, "typeID"))
	if err != nil {
		s.logger.Error("firmware listing failed", "error", err)
		writeInternalError(w, "failed to list firmware")
		return
	}

	writeJSON(w, http.StatusOK, versions)
}

// handleFirmwareDownload streams the decoded firmware image.
func (s *Server) handleFirmwareDownload(w http.ResponseWriter, r *http.Request) {
	fw, err := s.firmware.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, device.ErrFirmwareNotFound) {
			writeNotFound(w, "firmware not found")
			return
		}
		s.logger.Error("firmware lookup failed", "error", err)
		writeInternalError(w, "failed to load firmware")
		return
	}

	data, err := base64.StdEncoding.DecodeString(fw.FileData)
	if err != nil {
		s.logger.Error("firmware decode failed", "firmware_id", fw.ID, "error", err)
		writeInternalError(w, "stored firmware is corrupt")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="firmware-%s.bin"`, fw.Version))
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // Best-effort write to response
}

// handleTriggerOTA dispatches a firmware image to a connected device.
// 404 means "device record not found or not owned" — never "device not
// currently connected"; a disconnected device is a normal state and the
// command is simply dropped.
func (s *Server) handleTriggerOTA(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	if _, err := s.devices.GetByIDAndOwner(r.Context(), deviceID, currentUserID(r)); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device lookup failed", "error", err)
		writeInternalError(w, "failed to trigger update")
		return
	}

	fw, err := s.firmware.GetByID(r.Context(), chi.URLParam(r, "firmwareID"))
	if err != nil {
		if errors.Is(err, device.ErrFirmwareNotFound) {
			writeNotFound(w, "firmware not found")
			return
		}
		s.logger.Error("firmware lookup failed", "error", err)
		writeInternalError(w, "failed to trigger update")
		return
	}

	s.dispatcher.SendOTACommand(deviceID, fw)

	s.recordAudit(r, audit.ActionCommand, audit.EntityDevice, deviceID, currentUserID(r), map[string]any{
		"command":     "ota_update",
		"firmware_id": fw.ID,
		"version":     fw.Version,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "OTA update triggered",
		"version": fw.Version,
	})
}
