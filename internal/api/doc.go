// Package api implements the HTTP REST API and WebSocket server for the
// LED strip bridge.
//
// This package provides:
//   - REST endpoints to list lights, read their believed state, and send
//     turn_on / turn_off commands
//   - A read-only view of each light's state history audit trail
//   - A WebSocket hub that pushes light.state_changed events
//   - Optional JWT bearer authentication with single-use WebSocket tickets
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// When security.jwt.secret is empty every route is open. Otherwise all routes
// except /api/v1/health require an HS256 bearer token signed with the secret,
// and WebSocket connections present a ticket from POST /api/v1/auth/ws-ticket
// so the token never appears in a URL.
//
// # Graceful Degradation
//
// A command whose publishes fail partway answers 502, but the body still
// carries the state the bridge now believes. Reads never touch MQTT.
package api
