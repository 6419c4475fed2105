package alerts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/config"
)

var t0 = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

// tickData builds one line whose latest tick emitted the given notifications.
func tickData(at time.Time, notes ...types.Notification) types.LineData {
	for i := range notes {
		notes[i].LineID = 1
		notes[i].Timestamp = at
		if notes[i].ID == "" {
			notes[i].ID = "1-" + at.Format("150405") + "-" + notes[i].Rule
		}
	}
	return types.LineData{
		Line:          types.ProductionLine{ID: 1, Name: "Line 1", LastUpdate: at},
		Notifications: notes,
	}
}

func note(rule string, sev types.Severity) types.Notification {
	return types.Notification{Rule: rule, Severity: sev, Message: rule + " fired"}
}

// recorder is a webhook target that captures request bodies.
type recorder struct {
	mu     sync.Mutex
	bodies []string
	status int
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies = append(r.bodies, string(b))
	status := r.status
	r.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (r *recorder) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.bodies...)
}

func hook(t *testing.T, typ string, h http.Handler) config.WebhookConfig {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	env := "LINEWATCH_TEST_HOOK_" + strings.ToUpper(typ)
	t.Setenv(env, srv.URL)
	return config.WebhookConfig{Type: typ, URLEnv: env}
}

func TestEvaluate_OnlyLatestTick(t *testing.T) {
	e := New(config.AlertsConfig{})
	ld := tickData(t0, note("power_high", types.SeverityError))
	// An older notification still in history must not fire again.
	old := note("voltage", types.SeverityWarning)
	old.Timestamp = t0.Add(-5 * time.Second)
	ld.Notifications = append([]types.Notification{old}, ld.Notifications...)

	fired := e.Evaluate([]types.LineData{ld})
	if len(fired) != 1 || fired[0].Rule != "power_high" {
		t.Fatalf("fired = %+v, want power_high only", fired)
	}
	if fired[0].LineName != "Line 1" {
		t.Errorf("LineName = %q, want Line 1", fired[0].LineName)
	}
}

func TestEvaluate_MinSeverity(t *testing.T) {
	e := New(config.AlertsConfig{MinSeverity: "warning"})
	fired := e.Evaluate([]types.LineData{tickData(t0,
		note("a", types.SeverityInfo),
		note("b", types.SeverityWarning),
		note("c", types.SeverityError),
	)})
	if len(fired) != 2 || fired[0].Rule != "b" || fired[1].Rule != "c" {
		t.Errorf("fired = %+v, want b and c", fired)
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	e := New(config.AlertsConfig{Cooldown: time.Minute})

	steps := []struct {
		at   time.Time
		want int
	}{
		{t0, 1},
		{t0.Add(5 * time.Second), 0},
		{t0.Add(59 * time.Second), 0},
		{t0.Add(time.Minute), 1},
	}
	for i, s := range steps {
		got := e.Evaluate([]types.LineData{tickData(s.at, note("power_high", types.SeverityError))})
		if len(got) != s.want {
			t.Errorf("step %d: fired %d, want %d", i, len(got), s.want)
		}
	}
}

func TestEvaluate_CooldownPerLineAndRule(t *testing.T) {
	e := New(config.AlertsConfig{Cooldown: time.Hour})
	e.Evaluate([]types.LineData{tickData(t0, note("power_high", types.SeverityError))})

	other := tickData(t0.Add(time.Second), note("power_high", types.SeverityError))
	other.Line.ID = 3
	for i := range other.Notifications {
		other.Notifications[i].LineID = 3
	}
	second := tickData(t0.Add(time.Second), note("voltage", types.SeverityWarning))

	fired := e.Evaluate([]types.LineData{other, second})
	if len(fired) != 2 {
		t.Errorf("fired %d, want 2 (different line, different rule)", len(fired))
	}
}

func TestEvaluate_ZeroCooldownAlwaysFires(t *testing.T) {
	e := New(config.AlertsConfig{})
	for i := 0; i < 3; i++ {
		at := t0.Add(time.Duration(i) * time.Second)
		if got := e.Evaluate([]types.LineData{tickData(at, note("r", types.SeverityInfo))}); len(got) != 1 {
			t.Fatalf("tick %d: fired %d, want 1", i, len(got))
		}
	}
}

func TestDeliver_Payloads(t *testing.T) {
	slack, teams, plain := &recorder{}, &recorder{}, &recorder{}
	e := New(config.AlertsConfig{Webhooks: []config.WebhookConfig{
		hook(t, "slack", slack),
		hook(t, "teams", teams),
		hook(t, "http", plain),
	}})

	e.Evaluate([]types.LineData{tickData(t0, note("power_high", types.SeverityError))})
	e.Wait()

	if got := slack.received(); len(got) != 1 || !strings.Contains(got[0], "[ERROR]") || !strings.Contains(got[0], "Line 1") {
		t.Errorf("slack bodies = %v", got)
	}
	if got := teams.received(); len(got) != 1 || !strings.Contains(got[0], "MessageCard") || !strings.Contains(got[0], "FF4F6A") {
		t.Errorf("teams bodies = %v", got)
	}

	got := plain.received()
	if len(got) != 1 {
		t.Fatalf("http bodies = %v", got)
	}
	var body struct {
		Notification Alert `json:"notification"`
	}
	if err := json.Unmarshal([]byte(got[0]), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Notification.Rule != "power_high" || body.Notification.LineID != 1 || body.Notification.LineName != "Line 1" {
		t.Errorf("http payload = %+v", body.Notification)
	}
}

func TestDeliver_FailureDoesNotStopOtherTargets(t *testing.T) {
	broken := &recorder{status: http.StatusInternalServerError}
	ok := &recorder{}
	e := New(config.AlertsConfig{Webhooks: []config.WebhookConfig{
		hook(t, "slack", broken),
		hook(t, "http", ok),
	}})

	e.Evaluate([]types.LineData{tickData(t0, note("voltage", types.SeverityWarning))})
	e.Wait()

	if len(broken.received()) != 1 || len(ok.received()) != 1 {
		t.Errorf("broken=%d ok=%d, want 1 each", len(broken.received()), len(ok.received()))
	}
}

func TestDeliver_MissingURLSkipped(t *testing.T) {
	e := New(config.AlertsConfig{Webhooks: []config.WebhookConfig{{Type: "http", URLEnv: "LINEWATCH_TEST_HOOK_UNSET"}}})
	if fired := e.Evaluate([]types.LineData{tickData(t0, note("r", types.SeverityInfo))}); len(fired) != 1 {
		t.Errorf("fired %d, want 1", len(fired))
	}
	e.Wait()
}

func TestReload_SwapsTargets(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	e := New(config.AlertsConfig{Webhooks: []config.WebhookConfig{hook(t, "http", first)}})

	e.Evaluate([]types.LineData{tickData(t0, note("a", types.SeverityInfo))})
	e.Wait()

	srv := httptest.NewServer(second)
	defer srv.Close()
	t.Setenv("LINEWATCH_TEST_HOOK_SECOND", srv.URL)
	e.Reload(config.AlertsConfig{Webhooks: []config.WebhookConfig{{Type: "http", URLEnv: "LINEWATCH_TEST_HOOK_SECOND"}}})

	e.Evaluate([]types.LineData{tickData(t0.Add(time.Second), note("b", types.SeverityInfo))})
	e.Wait()

	if len(first.received()) != 1 || len(second.received()) != 1 {
		t.Errorf("first=%d second=%d, want 1 each", len(first.received()), len(second.received()))
	}
}

func TestRun_ConsumesUntilClosed(t *testing.T) {
	rec := &recorder{}
	e := New(config.AlertsConfig{Webhooks: []config.WebhookConfig{hook(t, "http", rec)}})

	updates := make(chan []types.LineData, 2)
	updates <- []types.LineData{tickData(t0, note("a", types.SeverityInfo))}
	updates <- []types.LineData{tickData(t0.Add(time.Second), note("b", types.SeverityInfo))}
	close(updates)

	done := make(chan struct{})
	go func() {
		e.Run(context.Background(), updates)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after updates closed")
	}
	if n := len(rec.received()); n != 2 {
		t.Errorf("delivered %d, want 2", n)
	}
}
