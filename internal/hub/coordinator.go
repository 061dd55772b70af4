package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/oakmount/circuithub/internal/device"
	"github.com/oakmount/circuithub/internal/infrastructure/logging"
)

// TelemetryWriter mirrors numeric sensor fields and liveness transitions
// to a time-series store. Writes are non-blocking and best-effort.
type TelemetryWriter interface {
	WriteSensorMetric(deviceID, field string, value float64)
	WriteConnectionEvent(deviceID string, online bool)
}

// StatusPublisher pushes telemetry and liveness changes to an external
// message bus for consumers outside the WebSocket fanout.
type StatusPublisher interface {
	PublishTelemetry(deviceID string, payload []byte)
	PublishStatus(deviceID, status string)
}

// Coordinator owns the device connection lifecycle: it keeps the
// persisted liveness record in step with channel presence and routes
// each inbound device frame by its type discriminator. Registry
// mutations always complete before the matching status broadcast, so a
// dashboard reacting to an event sees a registry consistent with it.
type Coordinator struct {
	hub      *Hub
	devices  device.Repository
	readings device.ReadingRepository
	logger   *logging.Logger

	// liveness serialises connect/disconnect transitions. Without it a
	// stale session's cleanup could win the registry compare, lose the
	// scheduler to a fresh connect, and persist offline after the fresh
	// online write — leaving the record offline with a live channel.
	liveness sync.Mutex

	telemetry TelemetryWriter
	publisher StatusPublisher
}

// NewCoordinator creates a liveness and routing coordinator.
func NewCoordinator(h *Hub, devices device.Repository, readings device.ReadingRepository, logger *logging.Logger) *Coordinator {
	return &Coordinator{
		hub:      h,
		devices:  devices,
		readings: readings,
		logger:   logger,
	}
}

// SetTelemetryWriter wires an optional time-series mirror for numeric
// sensor fields.
func (c *Coordinator) SetTelemetryWriter(w TelemetryWriter) {
	c.telemetry = w
}

// SetStatusPublisher wires an optional message-bus bridge for telemetry
// and liveness events.
func (c *Coordinator) SetStatusPublisher(p StatusPublisher) {
	c.publisher = p
}

// HandleDeviceConnected admits a device channel: register the handle
// (closing any stale one), persist status=online with a fresh last_seen,
// then announce to dashboards.
func (c *Coordinator) HandleDeviceConnected(ctx context.Context, deviceID string, client *Client) {
	c.liveness.Lock()
	defer c.liveness.Unlock()

	if evicted := c.hub.RegisterDevice(deviceID, client); evicted != nil {
		evicted.Close()
	}

	now := time.Now().UTC()
	if err := c.devices.UpdateStatus(ctx, deviceID, device.StatusOnline, now); err != nil {
		c.logger.Error("failed to persist online status", "device_id", deviceID, "error", err)
	}
	c.logger.Info("device online", "device_id", deviceID)

	c.announceStatus(deviceID, device.StatusOnline)
}

// HandleDeviceDisconnected is the mirror path, invoked from the
// connection's guaranteed cleanup. The handle comparison in RemoveDevice
// makes it a no-op when a reconnect has already replaced the channel, so
// each session transitions the liveness record at most once and a stale
// cleanup never knocks a fresh connection offline.
func (c *Coordinator) HandleDeviceDisconnected(ctx context.Context, deviceID string, client *Client) {
	c.liveness.Lock()
	defer c.liveness.Unlock()

	if !c.hub.RemoveDevice(deviceID, client) {
		return
	}

	now := time.Now().UTC()
	if err := c.devices.UpdateStatus(ctx, deviceID, device.StatusOffline, now); err != nil {
		c.logger.Error("failed to persist offline status", "device_id", deviceID, "error", err)
	}
	c.logger.Info("device offline", "device_id", deviceID)

	c.announceStatus(deviceID, device.StatusOffline)
}

// HandleDeviceMessage routes one inbound frame. Malformed frames are
// dropped and logged; the connection stays open.
func (c *Coordinator) HandleDeviceMessage(ctx context.Context, deviceID string, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("dropping malformed device frame", "device_id", deviceID, "error", err)
		return
	}

	switch env.Type {
	case TypeSensorData:
		c.handleSensorData(ctx, deviceID, env)
	case TypeFirmwareUpdateStatus:
		c.handleFirmwareStatus(ctx, deviceID, env)
	default:
		// Unknown types are a forward-compatible no-op.
		c.logger.Debug("ignoring unknown message type", "device_id", deviceID, "type", env.Type)
	}
}

// handleSensorData persists the reading, mirrors it outward, and fans it
// out to dashboards. Persistence is best-effort: telemetry loss is
// tolerable, visibility is not, so the broadcast happens regardless.
func (c *Coordinator) handleSensorData(ctx context.Context, deviceID string, env Envelope) {
	data := env.Data
	if data == nil {
		data = map[string]any{}
	}

	reading := &device.SensorReading{DeviceID: deviceID, Data: data}
	if err := c.readings.Insert(ctx, reading); err != nil {
		c.logger.Error("failed to persist sensor reading", "device_id", deviceID, "error", err)
	}

	if c.telemetry != nil {
		for field, val := range data {
			switch v := val.(type) {
			case float64:
				c.telemetry.WriteSensorMetric(deviceID, field, v)
			case bool:
				boolVal := 0.0
				if v {
					boolVal = 1.0
				}
				c.telemetry.WriteSensorMetric(deviceID, field, boolVal)
			}
		}
	}

	out := Envelope{Type: TypeSensorData, DeviceID: deviceID, Data: data}
	if c.publisher != nil {
		if payload, err := json.Marshal(out); err == nil {
			c.publisher.PublishTelemetry(deviceID, payload)
		}
	}
	c.hub.BroadcastToDashboards(out)
}

// handleFirmwareStatus records a successful OTA outcome and broadcasts
// the report either way, so dashboards see failures too.
func (c *Coordinator) handleFirmwareStatus(ctx context.Context, deviceID string, env Envelope) {
	if env.Status == FirmwareStatusSuccess {
		if err := c.devices.UpdateFirmwareVersion(ctx, deviceID, env.Version); err != nil {
			c.logger.Error("failed to persist firmware version",
				"device_id", deviceID, "version", env.Version, "error", err)
		}
	}

	c.hub.BroadcastToDashboards(Envelope{
		Type:     TypeFirmwareUpdateStatus,
		DeviceID: deviceID,
		Status:   env.Status,
		Version:  env.Version,
	})
}

// announceStatus broadcasts a liveness transition to dashboards and the
// message bus. Called only after the registry mutation has completed.
func (c *Coordinator) announceStatus(deviceID, status string) {
	c.hub.BroadcastToDashboards(Envelope{
		Type:     TypeDeviceStatus,
		DeviceID: deviceID,
		Status:   status,
	})
	if c.publisher != nil {
		c.publisher.PublishStatus(deviceID, status)
	}
	if c.telemetry != nil {
		c.telemetry.WriteConnectionEvent(deviceID, status == device.StatusOnline)
	}
}
