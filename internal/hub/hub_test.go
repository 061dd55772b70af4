package hub

import (
	"encoding/json"
	"testing"

	"github.com/oakmount/circuithub/internal/infrastructure/config"
	"github.com/oakmount/circuithub/internal/infrastructure/logging"
)

func newTestLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
}

// newTestClient builds a channel handle with no transport behind it.
// Messages queue on the send channel where tests can inspect them.
func newTestClient(bufSize int) *Client {
	return NewClient(nil, config.WebSocketConfig{SendBufferSize: bufSize}, newTestLogger(), nil, nil)
}

// recvEnvelope pops the next queued message off a client's send buffer.
func recvEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshalling queued message: %v", err)
		}
		return env
	default:
		t.Fatal("no message queued")
		return Envelope{}
	}
}

func TestHub_RegisterDeviceLastWriterWins(t *testing.T) {
	h := New(newTestLogger())
	first := newTestClient(1)
	second := newTestClient(1)

	if evicted := h.RegisterDevice("dev-1", first); evicted != nil {
		t.Fatal("first registration should not evict")
	}
	if evicted := h.RegisterDevice("dev-1", second); evicted != first {
		t.Error("second registration should evict the first handle")
	}
	if h.DeviceCount() != 1 {
		t.Errorf("DeviceCount() = %d, want 1", h.DeviceCount())
	}

	got, ok := h.Device("dev-1")
	if !ok || got != second {
		t.Error("registry should hold the most recent handle")
	}
}

func TestHub_RemoveDeviceHandleCompare(t *testing.T) {
	h := New(newTestLogger())
	stale := newTestClient(1)
	fresh := newTestClient(1)

	h.RegisterDevice("dev-1", stale)
	h.RegisterDevice("dev-1", fresh)

	// The evicted connection's cleanup must not tear down its replacement.
	if h.RemoveDevice("dev-1", stale) {
		t.Error("removing a stale handle should be a no-op")
	}
	if _, ok := h.Device("dev-1"); !ok {
		t.Fatal("fresh handle should survive stale cleanup")
	}

	if !h.RemoveDevice("dev-1", fresh) {
		t.Error("removing the current handle should succeed")
	}
	// Idempotent: a second remove finds nothing.
	if h.RemoveDevice("dev-1", fresh) {
		t.Error("second remove should be a no-op")
	}
}

func TestHub_RemoveDashboardHandleCompare(t *testing.T) {
	h := New(newTestLogger())
	c := newTestClient(1)

	h.RegisterDashboard("user-1", c)
	if !h.RemoveDashboard("user-1", c) {
		t.Error("remove should succeed for the stored handle")
	}
	if h.RemoveDashboard("user-1", c) {
		t.Error("remove of an absent entry should be a no-op")
	}
}

func TestHub_SendToDeviceAbsent(t *testing.T) {
	h := New(newTestLogger())

	// Unicast to a device with no channel is a dropped command, never an
	// error or panic.
	if h.SendToDevice("ghost", Envelope{Type: TypePinControl}) {
		t.Error("SendToDevice() to absent device should report not delivered")
	}
}

func TestHub_SendToDevice(t *testing.T) {
	h := New(newTestLogger())
	c := newTestClient(4)
	h.RegisterDevice("dev-1", c)

	if !h.SendToDevice("dev-1", Envelope{Type: TypeOTAUpdate, Version: "1.1.0"}) {
		t.Fatal("SendToDevice() should deliver to a registered device")
	}

	env := recvEnvelope(t, c)
	if env.Type != TypeOTAUpdate || env.Version != "1.1.0" {
		t.Errorf("queued envelope = %+v", env)
	}
	if env.Timestamp == "" {
		t.Error("envelope should carry a timestamp")
	}
}

func TestHub_BroadcastReachesAllDashboards(t *testing.T) {
	h := New(newTestLogger())
	a := newTestClient(4)
	b := newTestClient(4)
	h.RegisterDashboard("user-a", a)
	h.RegisterDashboard("user-b", b)

	if n := h.BroadcastToDashboards(Envelope{Type: TypeDeviceStatus, DeviceID: "dev-1", Status: "online"}); n != 2 {
		t.Errorf("BroadcastToDashboards() recipients = %d, want 2", n)
	}

	for _, c := range []*Client{a, b} {
		env := recvEnvelope(t, c)
		if env.Type != TypeDeviceStatus || env.Status != "online" {
			t.Errorf("queued envelope = %+v", env)
		}
	}
}

func TestHub_BroadcastSurvivesStalledDashboard(t *testing.T) {
	h := New(newTestLogger())
	stalled := newTestClient(1)
	stalled.trySend([]byte("{}")) // buffer now full, nothing draining it
	healthy := newTestClient(4)

	h.RegisterDashboard("stalled", stalled)
	h.RegisterDashboard("healthy", healthy)

	// Must return promptly and still deliver to the healthy session.
	h.BroadcastToDashboards(Envelope{Type: TypeSensorData, DeviceID: "dev-1"})

	env := recvEnvelope(t, healthy)
	if env.Type != TypeSensorData {
		t.Errorf("healthy session received %+v", env)
	}
}

func TestHub_BroadcastSurvivesClosedHandle(t *testing.T) {
	h := New(newTestLogger())
	closed := newTestClient(1)
	h.RegisterDashboard("gone", closed)
	closed.Close()

	// Send on the closed channel is absorbed, not propagated.
	h.BroadcastToDashboards(Envelope{Type: TypeDeviceStatus, DeviceID: "dev-1"})
}

func TestHub_CloseAll(t *testing.T) {
	h := New(newTestLogger())
	dash := newTestClient(1)
	dev := newTestClient(1)
	h.RegisterDashboard("user-1", dash)
	h.RegisterDevice("dev-1", dev)

	h.CloseAll()

	// Handles are closed, but the entries stay until each connection's
	// own cleanup removes them: the cleanup must still win the handle
	// compare and drive the offline transition.
	if h.DashboardCount() != 1 || h.DeviceCount() != 1 {
		t.Errorf("entries dropped by CloseAll: %d dashboards, %d devices",
			h.DashboardCount(), h.DeviceCount())
	}
	dash.trySend([]byte("{}")) // closed handle must absorb sends
	if !h.RemoveDevice("dev-1", dev) {
		t.Error("cleanup after CloseAll lost the handle compare")
	}
	if !h.RemoveDashboard("user-1", dash) {
		t.Error("dashboard cleanup after CloseAll lost the handle compare")
	}
	if h.DashboardCount() != 0 || h.DeviceCount() != 0 {
		t.Errorf("registry not empty after cleanup: %d dashboards, %d devices",
			h.DashboardCount(), h.DeviceCount())
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	c := newTestClient(1)
	c.Close()
	c.Close() // second close must not panic
	c.trySend([]byte("{}"))
}
