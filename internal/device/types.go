package device

import "time"

// Device status values. The status column mirrors connection presence:
// online iff the device currently holds a registered WebSocket channel.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Device represents a registered embedded device and its liveness record.
type Device struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	DeviceTypeID    string     `json:"device_type_id"`
	UserID          string     `json:"user_id"`
	AuthToken       string     `json:"auth_token,omitempty"`
	Status          string     `json:"status"`
	LastSeen        *time.Time `json:"last_seen,omitempty"`
	FirmwareVersion string     `json:"firmware_version,omitempty"`
	IPAddress       string     `json:"ip_address,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PinConfig describes a single pin exposed by a device type.
type PinConfig struct {
	Pin  string `json:"pin"`            // e.g. "D1", "A0"
	Type string `json:"type"`           // digital, analog
	Mode string `json:"mode,omitempty"` // input, output
}

// Type represents a device type (hardware model) with its pin layout.
type Type struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	PinsConfig  []PinConfig `json:"pins_config"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Firmware represents a stored firmware image for a device type.
// FileData is the base64-encoded binary; list operations omit it.
type Firmware struct {
	ID           string    `json:"id"`
	DeviceTypeID string    `json:"device_type_id"`
	Version      string    `json:"version"`
	FileData     string    `json:"file_data,omitempty"`
	FileSize     int64     `json:"file_size"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// SensorReading is one telemetry sample reported by a device.
// Data is free-form per device type; the timestamp is server-assigned.
type SensorReading struct {
	ID        string         `json:"id"`
	DeviceID  string         `json:"device_id"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}
