package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/oakmount/circuithub/internal/infrastructure/logging"
)

// Hub is the session registry: live channel handles partitioned into
// dashboard sessions (keyed by user ID) and devices (keyed by device ID).
// All methods are safe for concurrent use from connection goroutines.
type Hub struct {
	logger     *logging.Logger
	mu         sync.RWMutex
	dashboards map[string]*Client
	devices    map[string]*Client
}

// New creates an empty session registry.
func New(logger *logging.Logger) *Hub {
	return &Hub{
		logger:     logger,
		dashboards: make(map[string]*Client),
		devices:    make(map[string]*Client),
	}
}

// RegisterDashboard stores a dashboard session handle, replacing any
// prior handle for the same user (last-writer-wins). The evicted handle,
// if any, is returned for the caller to close; the old transport is
// presumed dead.
func (h *Hub) RegisterDashboard(userID string, c *Client) *Client {
	h.mu.Lock()
	evicted := h.dashboards[userID]
	h.dashboards[userID] = c
	h.mu.Unlock()

	h.logger.Debug("dashboard connected", "user_id", userID, "dashboards", h.DashboardCount())
	return evicted
}

// RegisterDevice stores a device channel handle, replacing any prior
// handle for the same device. Returns the evicted handle, if any.
func (h *Hub) RegisterDevice(deviceID string, c *Client) *Client {
	h.mu.Lock()
	evicted := h.devices[deviceID]
	h.devices[deviceID] = c
	h.mu.Unlock()

	h.logger.Debug("device channel registered", "device_id", deviceID, "devices", h.DeviceCount())
	return evicted
}

// RemoveDashboard deletes the entry for userID only if it still holds c.
// Idempotent: a cleanup racing a reconnect finds the fresh handle in the
// slot and leaves it alone. Reports whether an entry was removed.
func (h *Hub) RemoveDashboard(userID string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dashboards[userID] != c {
		return false
	}
	delete(h.dashboards, userID)
	return true
}

// RemoveDevice deletes the entry for deviceID only if it still holds c.
// Reports whether an entry was removed.
func (h *Hub) RemoveDevice(deviceID string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.devices[deviceID] != c {
		return false
	}
	delete(h.devices, deviceID)
	return true
}

// Device returns the live channel handle for a device, if one exists.
func (h *Hub) Device(deviceID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.devices[deviceID]
	return c, ok
}

// SendToDevice unicasts an envelope to one device. A missing channel is
// a normal steady state, not an error: the message is dropped and false
// is returned so callers can log, never fail.
func (h *Hub) SendToDevice(deviceID string, env Envelope) bool {
	h.mu.RLock()
	c, ok := h.devices[deviceID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	data, err := marshalEnvelope(env)
	if err != nil {
		h.logger.Error("failed to marshal unicast message", "type", env.Type, "error", err)
		return false
	}
	c.trySend(data)
	return true
}

// BroadcastToDashboards sends an envelope to every dashboard session.
// The client list is snapshotted under the read lock, then each send is
// independent and non-blocking: one stalled session never delays or
// fails delivery to the rest. Returns the recipient count.
func (h *Hub) BroadcastToDashboards(env Envelope) int {
	data, err := marshalEnvelope(env)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "type", env.Type, "error", err)
		return 0
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.dashboards))
	for _, c := range h.dashboards {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.trySend(data)
	}
	if len(clients) > 0 {
		h.logger.Debug("broadcast sent", "type", env.Type, "recipients", len(clients))
	}
	return len(clients)
}

// DashboardCount returns the number of connected dashboard sessions.
func (h *Hub) DashboardCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.dashboards)
}

// DeviceCount returns the number of connected devices.
func (h *Hub) DeviceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.devices)
}

// CloseAll tears down every registered handle at shutdown. Handles are
// closed but their registry entries are left in place: each connection's
// cleanup path still owns the removal, so every device goes through its
// normal offline transition instead of vanishing while persisted online.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.dashboards)+len(h.devices))
	for _, c := range h.dashboards {
		clients = append(clients, c)
	}
	for _, c := range h.devices {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

// marshalEnvelope stamps the envelope and encodes it.
func marshalEnvelope(env Envelope) ([]byte, error) {
	if env.Timestamp == "" {
		env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(env)
}
