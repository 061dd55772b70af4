package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorMetric records one numeric sensor field for a device.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Dropped when not connected, matching the mirror's best-effort contract.
//
// Example:
//
//	client.WriteSensorMetric("greenhouse-01", "temperature", 21.5)
func (c *Client) WriteSensorMetric(deviceID, field string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_metrics",
		map[string]string{
			"device_id": deviceID,
			"field":     field,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectionEvent records a liveness transition as a point, so
// uptime can be graphed alongside telemetry. online maps to 1, offline
// to 0.
func (c *Client) WriteConnectionEvent(deviceID string, online bool) {
	if !c.IsConnected() {
		return
	}

	value := 0.0
	if online {
		value = 1.0
	}

	point := write.NewPoint(
		"device_liveness",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"online": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
