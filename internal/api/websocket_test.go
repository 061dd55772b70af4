package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oakmount/circuithub/internal/device"
	"github.com/oakmount/circuithub/internal/hub"
)

// startWSServer exposes the router over a real listener so tests can
// exercise actual WebSocket upgrades.
func startWSServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)
	t.Cleanup(env.hub.CloseAll)
	return ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

// dialWS opens a WebSocket connection and registers cleanup.
func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialling %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEnvelope reads the next frame with a deadline.
func readEnvelope(t *testing.T, conn *websocket.Conn) hub.Envelope {
	t.Helper()
	//nolint:errcheck // deadline on a live test connection
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	var env hub.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshalling frame %q: %v", data, err)
	}
	return env
}

// waitFor polls a condition with a deadline.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDeviceWS_InvalidToken(t *testing.T) {
	env := newTestEnv(t)
	ts := startWSServer(t, env)
	env.seedDevice("dev-1", "u1", "typ-1", "real-token")

	tests := []struct {
		name string
		path string
	}{
		{"wrong token", "/ws/device/dev-1/wrong-token"},
		{"unknown device", "/ws/device/dev-ghost/any-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dialWS(t, wsURL(ts, tt.path))
			//nolint:errcheck // deadline on a live test connection
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))

			_, _, err := conn.ReadMessage()
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				t.Fatalf("expected close error, got %v", err)
			}
			if closeErr.Code != CloseInvalidCredentials {
				t.Errorf("close code = %d, want %d", closeErr.Code, CloseInvalidCredentials)
			}

			if n := env.hub.DeviceCount(); n != 0 {
				t.Errorf("device count = %d after rejection, want 0", n)
			}
			if writes := env.devices.statuses(); len(writes) != 0 {
				t.Errorf("status writes after rejection: %v, want none", writes)
			}
		})
	}
}

func TestDeviceWS_LivenessLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ts := startWSServer(t, env)
	env.seedDevice("dev-1", "u1", "typ-1", "real-token")

	dashboard := dialWS(t, wsURL(ts, "/ws/dashboard/u1"))
	waitFor(t, "dashboard registration", func() bool { return env.hub.DashboardCount() == 1 })

	deviceConn := dialWS(t, wsURL(ts, "/ws/device/dev-1/real-token"))
	waitFor(t, "device registration", func() bool { return env.hub.DeviceCount() == 1 })

	// The dashboard hears about the device before anything else.
	msg := readEnvelope(t, dashboard)
	if msg.Type != hub.TypeDeviceStatus {
		t.Fatalf("type = %q, want %q", msg.Type, hub.TypeDeviceStatus)
	}
	if msg.DeviceID != "dev-1" || msg.Status != device.StatusOnline {
		t.Errorf("got %s/%s, want dev-1/online", msg.DeviceID, msg.Status)
	}

	// Persisted status follows channel presence.
	d, err := env.devices.GetByID(context.Background(), "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != device.StatusOnline {
		t.Errorf("persisted status = %q, want online", d.Status)
	}
	if d.LastSeen == nil {
		t.Error("last_seen not recorded on connect")
	}

	deviceConn.Close()

	msg = readEnvelope(t, dashboard)
	if msg.Type != hub.TypeDeviceStatus || msg.Status != device.StatusOffline {
		t.Fatalf("got %s/%s, want device_status/offline", msg.Type, msg.Status)
	}

	waitFor(t, "offline persistence", func() bool {
		d, err := env.devices.GetByID(context.Background(), "dev-1")
		return err == nil && d.Status == device.StatusOffline
	})
	if n := env.hub.DeviceCount(); n != 0 {
		t.Errorf("device count = %d after disconnect, want 0", n)
	}
	if writes := env.devices.statuses(); len(writes) != 2 {
		t.Errorf("status writes = %v, want exactly one online and one offline", writes)
	}
}

func TestDeviceWS_SensorDataReachesDashboard(t *testing.T) {
	env := newTestEnv(t)
	ts := startWSServer(t, env)
	env.seedDevice("dev-1", "u1", "typ-1", "real-token")

	dashboard := dialWS(t, wsURL(ts, "/ws/dashboard/u1"))
	waitFor(t, "dashboard registration", func() bool { return env.hub.DashboardCount() == 1 })

	deviceConn := dialWS(t, wsURL(ts, "/ws/device/dev-1/real-token"))
	readEnvelope(t, dashboard) // online event

	frame := map[string]any{
		"type": "sensor_data",
		"data": map[string]any{"temperature": 22.5, "humidity": 61.0},
	}
	if err := deviceConn.WriteJSON(frame); err != nil {
		t.Fatalf("writing sensor frame: %v", err)
	}

	msg := readEnvelope(t, dashboard)
	if msg.Type != hub.TypeSensorData {
		t.Fatalf("type = %q, want sensor_data", msg.Type)
	}
	if msg.DeviceID != "dev-1" {
		t.Errorf("device_id = %q, want dev-1 (stamped server-side)", msg.DeviceID)
	}
	if msg.Data["temperature"] != 22.5 {
		t.Errorf("data = %v", msg.Data)
	}

	waitFor(t, "reading persistence", func() bool {
		readings, err := env.readings.ListByDevice(context.Background(), "dev-1", 10)
		return err == nil && len(readings) == 1
	})
}

func TestDeviceWS_MalformedFrameKeepsConnection(t *testing.T) {
	env := newTestEnv(t)
	ts := startWSServer(t, env)
	env.seedDevice("dev-1", "u1", "typ-1", "real-token")

	deviceConn := dialWS(t, wsURL(ts, "/ws/device/dev-1/real-token"))
	waitFor(t, "device registration", func() bool { return env.hub.DeviceCount() == 1 })

	if err := deviceConn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("writing malformed frame: %v", err)
	}

	// A valid frame afterwards still goes through; the channel survived.
	frame := map[string]any{"type": "sensor_data", "data": map[string]any{"v": 1.0}}
	if err := deviceConn.WriteJSON(frame); err != nil {
		t.Fatalf("writing frame after malformed one: %v", err)
	}
	waitFor(t, "reading persistence", func() bool {
		readings, err := env.readings.ListByDevice(context.Background(), "dev-1", 10)
		return err == nil && len(readings) == 1
	})
	if n := env.hub.DeviceCount(); n != 1 {
		t.Errorf("device count = %d, want 1", n)
	}
}

func TestDeviceWS_ShutdownTransitionsOffline(t *testing.T) {
	env := newTestEnv(t)
	ts := startWSServer(t, env)
	env.seedDevice("dev-1", "u1", "typ-1", "real-token")

	dialWS(t, wsURL(ts, "/ws/device/dev-1/real-token"))
	waitFor(t, "device registration", func() bool { return env.hub.DeviceCount() == 1 })

	env.hub.CloseAll()

	// Closing the transport must still run each connection's cleanup:
	// registry entry removed and status persisted offline.
	waitFor(t, "offline persistence after shutdown", func() bool {
		d, err := env.devices.GetByID(context.Background(), "dev-1")
		return err == nil && d.Status == device.StatusOffline
	})
	waitFor(t, "registry drained after shutdown", func() bool {
		return env.hub.DeviceCount() == 0
	})
	if writes := env.devices.statuses(); len(writes) != 2 || writes[1] != "dev-1:offline" {
		t.Errorf("status writes = %v, want online then offline", writes)
	}
}

func TestDashboardWS_Reconnect(t *testing.T) {
	env := newTestEnv(t)
	ts := startWSServer(t, env)
	env.seedDevice("dev-1", "u1", "typ-1", "real-token")

	first := dialWS(t, wsURL(ts, "/ws/dashboard/u1"))
	waitFor(t, "first dashboard", func() bool { return env.hub.DashboardCount() == 1 })

	// Second session for the same user replaces the first.
	second := dialWS(t, wsURL(ts, "/ws/dashboard/u1"))
	//nolint:errcheck // deadline on a live test connection
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("expected first session to be closed after replacement")
	}
	waitFor(t, "stale cleanup", func() bool { return env.hub.DashboardCount() == 1 })

	// Events land on the surviving session.
	dialWS(t, wsURL(ts, "/ws/device/dev-1/real-token"))
	msg := readEnvelope(t, second)
	if msg.Type != hub.TypeDeviceStatus || msg.Status != device.StatusOnline {
		t.Errorf("got %s/%s, want device_status/online", msg.Type, msg.Status)
	}
}

func TestPinControl_DeliveredToConnectedDevice(t *testing.T) {
	env := newTestEnv(t)
	ts := startWSServer(t, env)
	token := env.seedUser(t, "u1", "alice")
	env.seedDevice("dev-1", "u1", "typ-1", "real-token")

	deviceConn := dialWS(t, wsURL(ts, "/ws/device/dev-1/real-token"))
	waitFor(t, "device registration", func() bool { return env.hub.DeviceCount() == 1 })

	body, _ := json.Marshal(pinControlRequest{DeviceID: "dev-1", Pin: intPtr(4), Value: intPtr(1)})
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/control/pin", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("pin control request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	msg := readEnvelope(t, deviceConn)
	if msg.Type != hub.TypePinControl {
		t.Fatalf("type = %q, want pin_control", msg.Type)
	}
	if msg.Pin == nil || *msg.Pin != 4 {
		t.Errorf("pin = %v, want 4", msg.Pin)
	}
	if msg.Value == nil || *msg.Value != 1 {
		t.Errorf("value = %v, want 1", msg.Value)
	}
}
