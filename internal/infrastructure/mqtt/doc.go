// Package mqtt is the optional egress bridge to an MQTT broker.
//
// The hub's WebSocket fanout only reaches connected dashboards; this
// bridge republishes sensor telemetry and device liveness transitions
// to broker topics so other consumers (Node-RED flows, recorders, home
// automation) can follow the fleet without a WebSocket session.
//
// Topic layout:
//
//	circuithub/telemetry/{device_id}  sensor frames, not retained
//	circuithub/status/{device_id}     liveness, retained
//	circuithub/system/status          hub presence, retained, with LWT
//
// Status topics are retained so a late subscriber immediately sees the
// last known state. The connection auto-reconnects with exponential
// backoff; publishes while disconnected are dropped, matching the
// bridge's best-effort contract.
package mqtt
