package hub

import (
	"testing"

	"github.com/oakmount/circuithub/internal/device"
)

func TestDispatcher_SendOTACommand(t *testing.T) {
	h := New(newTestLogger())
	d := NewDispatcher(h, newTestLogger())

	dev := newTestClient(4)
	h.RegisterDevice("dev-1", dev)

	d.SendOTACommand("dev-1", &device.Firmware{
		ID:       "fw-1",
		Version:  "1.4.0",
		FileData: "aGV4ZGF0YQ==",
		FileSize: 7,
	})

	env := recvEnvelope(t, dev)
	if env.Type != TypeOTAUpdate {
		t.Fatalf("Type = %q, want ota_update", env.Type)
	}
	if env.FirmwareID != "fw-1" || env.Version != "1.4.0" {
		t.Errorf("envelope = %+v", env)
	}
	if env.FileData != "aGV4ZGF0YQ==" || env.FileSize != 7 {
		t.Errorf("firmware payload missing: %+v", env)
	}
}

func TestDispatcher_SendPinControl(t *testing.T) {
	h := New(newTestLogger())
	d := NewDispatcher(h, newTestLogger())

	dev := newTestClient(4)
	h.RegisterDevice("dev-1", dev)

	// Pin 0 / value 0 is a legitimate command and must survive encoding.
	d.SendPinControl("dev-1", 0, 0)

	env := recvEnvelope(t, dev)
	if env.Type != TypePinControl {
		t.Fatalf("Type = %q, want pin_control", env.Type)
	}
	if env.Pin == nil || *env.Pin != 0 {
		t.Errorf("Pin = %v, want 0", env.Pin)
	}
	if env.Value == nil || *env.Value != 0 {
		t.Errorf("Value = %v, want 0", env.Value)
	}
}

func TestDispatcher_OfflineDeviceIsNotAnError(t *testing.T) {
	h := New(newTestLogger())
	d := NewDispatcher(h, newTestLogger())
	dash := newTestClient(4)
	h.RegisterDashboard("user-1", dash)

	// Fire-and-forget: no channel means a dropped command, no panic and
	// no dashboard fanout.
	d.SendPinControl("ghost", 13, 1)
	d.SendOTACommand("ghost", &device.Firmware{ID: "fw-1", Version: "1.0.0"})

	select {
	case data := <-dash.send:
		t.Errorf("dashboard unexpectedly received %s", data)
	default:
	}
}
