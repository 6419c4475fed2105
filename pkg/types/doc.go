// Package types defines the shared Go types for production-line telemetry:
// readings, line state, notifications and the per-line aggregate handed to
// dashboards, reports and sinks. These are the canonical in-memory
// representations; JSON tags are the wire shape used by the REST API and the
// WebSocket stream.
package types
