// Package api implements the HTTP REST API for linewatch-server.
//
// New(store) returns a Handler (chi router) that serves:
//
//	GET  /api/v1/health                   - status counts, average efficiency, state
//	GET  /api/v1/snapshot                 - every line with its histories + generated_at
//	GET  /api/v1/lines                    - all lines in configured order ([]LineResponse)
//	GET  /api/v1/lines/{id}               - single line; 404 if unknown
//	GET  /api/v1/lines/{id}/metrics       - metric window, oldest first (?limit=N)
//	GET  /api/v1/notifications            - newest first (?unread=true, ?line=<id>)
//	POST /api/v1/notifications/{id}/read  - idempotent, always 204
//	GET  /api/v1/reports/lines/{id}       - daily summary for one line
//	GET  /api/v1/reports/consolidated     - summary across all lines
//	GET  /metrics                         - Prometheus text exposition
//
// JSON endpoints respond with Content-Type: application/json and report
// errors as {"error": "..."}. JSON types are defined in types.go.
package api
