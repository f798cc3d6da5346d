package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// Callers treat it as "run without telemetry", not as a failure.
	ErrDisabled = errors.New("influxdb: telemetry disabled")

	// ErrUnreachable means the startup ping got no healthy answer.
	ErrUnreachable = errors.New("influxdb: server unreachable")

	// ErrClosed is returned by HealthCheck once Close has run.
	ErrClosed = errors.New("influxdb: client closed")

	// ErrWrite wraps every asynchronous batch failure handed to the
	// SetOnError callback.
	ErrWrite = errors.New("influxdb: batch write rejected")
)
