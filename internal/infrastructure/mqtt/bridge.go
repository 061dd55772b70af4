package mqtt

import (
	"fmt"
	"time"

	"github.com/oakmount/circuithub/internal/infrastructure/logging"
)

// Bridge adapts the broker client to the hub's publisher contract:
// telemetry frames and liveness transitions go out as topic
// publications. Failures are logged and absorbed; the bridge never
// pushes errors back into the message-routing path.
type Bridge struct {
	client *Client
	logger *logging.Logger
	topics Topics
}

// NewBridge creates an egress bridge over a connected client.
func NewBridge(client *Client, logger *logging.Logger) *Bridge {
	return &Bridge{client: client, logger: logger}
}

// PublishTelemetry forwards a sensor frame to the device's telemetry
// topic. Not retained: telemetry is a stream, not state.
func (b *Bridge) PublishTelemetry(deviceID string, payload []byte) {
	topic := b.topics.Telemetry(deviceID)
	if err := b.client.Publish(topic, payload, byte(b.client.cfg.QoS), false); err != nil {
		b.logger.Debug("telemetry publish dropped", "device_id", deviceID, "error", err)
	}
}

// PublishStatus publishes a liveness transition, retained so late
// subscribers see the device's last known state.
func (b *Bridge) PublishStatus(deviceID, status string) {
	payload := fmt.Sprintf(`{"device_id":"%s","status":"%s","timestamp":"%s"}`,
		deviceID, status, time.Now().UTC().Format(time.RFC3339))

	topic := b.topics.Status(deviceID)
	if err := b.client.PublishRetained(topic, []byte(payload)); err != nil {
		b.logger.Debug("status publish dropped", "device_id", deviceID, "error", err)
	}
}
