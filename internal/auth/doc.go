// Package auth provides user account management and token handling for CircuitHub.
//
// It covers:
//   - User accounts persisted in SQLite (registration, lookup)
//   - Password hashing with Argon2id (PHC string format)
//   - JWT access tokens (HS256) for dashboard sessions
//
// Device authentication is separate: devices present a per-device auth token
// checked against the device registry (see internal/device and internal/api's
// WebSocket admission handler). This package only deals with human users.
package auth
