// Package influxdb mirrors numeric sensor telemetry to InfluxDB v2.
//
// SQLite remains the system of record for sensor readings; this package
// is a best-effort copy of the numeric fields for dashboards and
// retention policies that SQLite is not suited for. Writes go through
// the client library's non-blocking batched write API, so a slow or
// unreachable InfluxDB never stalls the message-routing path.
//
// The mirror is optional: when telemetry.enabled is false, Connect
// returns ErrDisabled and the caller runs without it.
package influxdb
