// Package hub implements the connection and message-routing core: the
// in-memory session registry of live WebSocket channels, the liveness
// coordinator that keeps persisted device status in step with channel
// presence, the inbound message router, and the command dispatcher used
// by the HTTP layer to reach connected devices.
//
// The registry is partitioned by peer class: dashboard sessions keyed by
// user ID and embedded devices keyed by device ID. Registration is
// last-writer-wins (a reconnect evicts the stale handle); removal only
// succeeds for the handle that was stored, so cleanup from an evicted
// connection never tears down its replacement.
package hub
