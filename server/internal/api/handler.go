package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/report"
	"github.com/linewatch/linewatch/server/internal/store"
)

// Handler is the HTTP handler for all /api/v1/* endpoints and /metrics.
// It reads line state from the store and returns JSON responses.
type Handler struct {
	store  *store.Store
	router chi.Router
	now    func() time.Time // injectable for deterministic tests
}

// New creates a Handler wired to the given line store and registers all routes.
func New(st *store.Store) *Handler {
	h := &Handler{store: st, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/snapshot", h.snapshot)
		r.Get("/lines", h.listLines)
		r.Get("/lines/{id}", h.getLine)
		r.Get("/lines/{id}/metrics", h.lineMetrics)
		r.Get("/notifications", h.notifications)
		r.Post("/notifications/{id}/read", h.markRead)
		r.Get("/reports/lines/{id}", h.lineReport)
		r.Get("/reports/consolidated", h.consolidatedReport)
	})
	r.Get("/metrics", h.metrics)

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Mount attaches an extra handler under pattern, e.g. the WebSocket hub.
func (h *Handler) Mount(pattern string, handler http.Handler) {
	h.router.Handle(pattern, handler)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: status counts and average efficiency.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	lines := h.store.Lines()
	resp := HealthResponse{LineCount: len(lines)}
	if t := h.store.UpdatedAt(); !t.IsZero() {
		resp.LastTick = t.UTC().Format(time.RFC3339)
	}

	if len(lines) == 0 {
		resp.State = "unknown"
		jsonResp(w, http.StatusOK, resp)
		return
	}

	var total float64
	for _, ld := range lines {
		total += float64(ld.Line.Efficiency)
		resp.UnreadCount += ld.Unread()
		switch ld.Line.Status {
		case types.StatusActive:
			resp.ActiveCount++
		case types.StatusWarning:
			resp.WarningCount++
		case types.StatusError:
			resp.ErrorCount++
		default:
			resp.OfflineCount++
		}
	}

	resp.AvgEfficiency = total / float64(len(lines))
	resp.State = stateFromScore(resp.AvgEfficiency)
	if resp.OfflineCount > 0 {
		resp.State = "critical"
	}
	jsonResp(w, http.StatusOK, resp)
}

// snapshot returns GET /api/v1/snapshot: every line with its histories.
func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store.Lines(), h.now()))
}

// listLines returns GET /api/v1/lines: every line in configured order.
func (h *Handler) listLines(w http.ResponseWriter, _ *http.Request) {
	lines := h.store.Lines()
	out := make([]LineResponse, 0, len(lines))
	for _, ld := range lines {
		out = append(out, toLineResponse(ld))
	}
	jsonResp(w, http.StatusOK, out)
}

// getLine returns GET /api/v1/lines/{id}: one line; 404 if unknown.
func (h *Handler) getLine(w http.ResponseWriter, r *http.Request) {
	ld, ok := h.lookup(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, toLineResponse(ld))
}

// lineMetrics returns GET /api/v1/lines/{id}/metrics: the metric window,
// oldest first. ?limit=N keeps only the newest N readings.
func (h *Handler) lineMetrics(w http.ResponseWriter, r *http.Request) {
	ld, ok := h.lookup(w, r)
	if !ok {
		return
	}
	metrics := ld.Metrics
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n < len(metrics) {
			metrics = metrics[len(metrics)-n:]
		}
	}
	if metrics == nil {
		metrics = []types.Metric{}
	}
	jsonResp(w, http.StatusOK, metrics)
}

// notifications returns GET /api/v1/notifications: all retained
// notifications newest first. ?unread=true and ?line=<id> filter the list.
func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unreadOnly := q.Get("unread") == "true"

	lineID := 0
	if s := q.Get("line"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, "line must be an integer")
			return
		}
		lineID = id
	}

	all := h.store.Notifications()
	out := make([]types.Notification, 0, len(all))
	for _, n := range all {
		if unreadOnly && n.Read {
			continue
		}
		if lineID != 0 && n.LineID != lineID {
			continue
		}
		out = append(out, n)
	}
	jsonResp(w, http.StatusOK, out)
}

// markRead handles POST /api/v1/notifications/{id}/read. It is idempotent and
// answers 204 even for unknown ids.
func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	h.store.MarkNotificationRead(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// lineReport returns GET /api/v1/reports/lines/{id}: the daily summary.
func (h *Handler) lineReport(w http.ResponseWriter, r *http.Request) {
	ld, ok := h.lookup(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, report.Summarize(ld, h.now().UTC()))
}

// consolidatedReport returns GET /api/v1/reports/consolidated.
func (h *Handler) consolidatedReport(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, report.Consolidate(h.store.Lines(), h.now().UTC()))
}

// --- helpers ----------------------------------------------------------------

// lookup resolves the {id} URL parameter to a line, writing 400 or 404 on
// failure.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (types.LineData, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "line id must be an integer")
		return types.LineData{}, false
	}
	ld, ok := h.store.Line(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "line not found")
		return types.LineData{}, false
	}
	return ld, true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// stateFromScore converts an average efficiency to a health state string.
// Mirrors the report efficiency classes.
func stateFromScore(score float64) string {
	switch {
	case score >= 80:
		return "healthy"
	case score >= 70:
		return "degraded"
	default:
		return "critical"
	}
}

// BuildSnapshot assembles the full snapshot payload shared by
// GET /api/v1/snapshot and the WebSocket hub.
func BuildSnapshot(lines []types.LineData, at time.Time) SnapshotResponse {
	out := make([]LineDataResponse, 0, len(lines))
	for _, ld := range lines {
		out = append(out, LineDataResponse{
			Line:          toLineResponse(ld),
			Metrics:       nonNil(ld.Metrics),
			Notifications: nonNil(ld.Notifications),
		})
	}
	return SnapshotResponse{
		Lines:       out,
		GeneratedAt: at.UTC().Format(time.RFC3339),
	}
}

// toLineResponse maps a line aggregate to its JSON representation.
func toLineResponse(ld types.LineData) LineResponse {
	return LineResponse{
		ProductionLine: ld.Line,
		Unread:         ld.Unread(),
		Samples:        len(ld.Metrics),
		Diagnostics:    computeDiagnostics(ld),
	}
}

// nonNil turns a nil slice into an empty one so it encodes as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
