// Package device provides the persistent device registry for CircuitHub.
//
// It covers devices and their liveness records (status, last_seen,
// firmware_version), device types with pin configurations, stored firmware
// images, and sensor reading history. All persistence goes through SQLite
// repositories behind small interfaces so the hub and API layers can be
// tested with mocks.
//
// The online/offline status column is owned by the connection layer
// (internal/hub): it is updated only when a device's WebSocket channel is
// registered or removed, never by CRUD handlers.
package device
