package api

import "github.com/linewatch/linewatch/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State         string  `json:"state"`
	AvgEfficiency float64 `json:"avg_efficiency"`
	LineCount     int     `json:"line_count"`
	ActiveCount   int     `json:"active_count"`
	WarningCount  int     `json:"warning_count"`
	ErrorCount    int     `json:"error_count"`
	OfflineCount  int     `json:"offline_count"`
	UnreadCount   int     `json:"unread_count"`
	LastTick      string  `json:"last_tick,omitempty"` // RFC3339
}

// LineResponse is one line in GET /api/v1/lines or GET /api/v1/lines/{id}.
type LineResponse struct {
	types.ProductionLine
	Unread      int              `json:"unread"`
	Samples     int              `json:"samples"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
}

// LineDataResponse is one line with its histories inside a snapshot.
type LineDataResponse struct {
	Line          LineResponse         `json:"line"`
	Metrics       []types.Metric       `json:"metrics"`
	Notifications []types.Notification `json:"notifications"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket "snapshot" event.
type SnapshotResponse struct {
	Lines       []LineDataResponse `json:"lines"`
	GeneratedAt string             `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
