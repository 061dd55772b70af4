package hub

import (
	"github.com/oakmount/circuithub/internal/device"
	"github.com/oakmount/circuithub/internal/infrastructure/logging"
)

// Dispatcher forwards commands from the HTTP layer to a device's live
// channel. Both operations are fire-and-forget: they return after the
// send attempt, and a device with no channel is a dropped command, not
// an error. Ownership and existence checks happen in the HTTP layer
// before dispatch; acknowledgment, if any, arrives later as an
// independent inbound message.
type Dispatcher struct {
	hub    *Hub
	logger *logging.Logger
}

// NewDispatcher creates a command dispatcher backed by the registry.
func NewDispatcher(h *Hub, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{hub: h, logger: logger}
}

// SendOTACommand unicasts a firmware image to a device for over-the-air
// update. The image travels inline as base64.
func (d *Dispatcher) SendOTACommand(deviceID string, fw *device.Firmware) {
	delivered := d.hub.SendToDevice(deviceID, Envelope{
		Type:       TypeOTAUpdate,
		FirmwareID: fw.ID,
		Version:    fw.Version,
		FileData:   fw.FileData,
		FileSize:   fw.FileSize,
	})
	d.logger.Info("ota command dispatched",
		"device_id", deviceID, "version", fw.Version, "delivered", delivered)
}

// SendPinControl unicasts a pin write to a device.
func (d *Dispatcher) SendPinControl(deviceID string, pin, value int) {
	delivered := d.hub.SendToDevice(deviceID, Envelope{
		Type:  TypePinControl,
		Pin:   &pin,
		Value: &value,
	})
	d.logger.Debug("pin control dispatched",
		"device_id", deviceID, "pin", pin, "value", value, "delivered", delivered)
}
