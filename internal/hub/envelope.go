package hub

// Message type discriminators shared by devices and dashboards.
const (
	TypeSensorData           = "sensor_data"
	TypeFirmwareUpdateStatus = "firmware_update_status"
	TypeDeviceStatus         = "device_status"
	TypeOTAUpdate            = "ota_update"
	TypePinControl           = "pin_control"
)

// FirmwareStatusSuccess is the status value a device reports after a
// completed OTA update; it is the only value that persists the new
// firmware version.
const FirmwareStatusSuccess = "success"

// Envelope is the wire shape for all hub messages. Type selects which
// of the optional fields are meaningful; unrecognized types are dropped
// by the router, never rejected.
type Envelope struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`

	// sensor_data
	Data map[string]any `json:"data,omitempty"`

	// firmware_update_status / ota_update
	Status     string `json:"status,omitempty"`
	Version    string `json:"version,omitempty"`
	FirmwareID string `json:"firmware_id,omitempty"`
	FileData   string `json:"file_data,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`

	// pin_control (pointers so pin 0 / value 0 survive encoding)
	Pin   *int `json:"pin,omitempty"`
	Value *int `json:"value,omitempty"`
}
