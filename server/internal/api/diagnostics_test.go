package api

import (
	"testing"
	"time"

	"github.com/linewatch/linewatch/pkg/types"
)

func diagData(l types.ProductionLine, unread int) types.LineData {
	ld := types.LineData{
		Line:    l,
		Metrics: []types.Metric{{Timestamp: l.LastUpdate, Voltage: l.Voltage, ActivePower: l.Power}},
	}
	for i := 0; i < unread; i++ {
		ld.Notifications = append(ld.Notifications, types.Notification{ID: string(rune('a' + i))})
	}
	return ld
}

func keys(hints []DiagnosticHint) []string {
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		out = append(out, h.Key)
	}
	return out
}

func TestComputeDiagnostics(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	healthy := types.ProductionLine{ID: 1, Status: types.StatusActive, Voltage: 380, Power: 20, Efficiency: 95, LastUpdate: now}

	tests := []struct {
		name   string
		mutate func(*types.ProductionLine)
		unread int
		empty  bool
		want   []string
	}{
		{"all clear", nil, 0, false, []string{"healthy"}},
		{"offline short-circuits", func(l *types.ProductionLine) {
			l.Status = types.StatusOffline
			l.Voltage = 500
		}, 3, false, []string{"offline"}},
		{"warming up", nil, 0, true, []string{"warming_up"}},
		{"voltage and error", func(l *types.ProductionLine) {
			l.Status = types.StatusError
			l.Voltage = 410
		}, 0, false, []string{"voltage", "status_error"}},
		{"running light with low efficiency", func(l *types.ProductionLine) {
			l.Status = types.StatusWarning
			l.Efficiency = 55
		}, 0, false, []string{"status_warning", "efficiency_low"}},
		{"unread only", nil, 2, false, []string{"unread"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := healthy
			if tc.mutate != nil {
				tc.mutate(&l)
			}
			ld := diagData(l, tc.unread)
			if tc.empty {
				ld.Metrics = nil
			}
			got := keys(computeDiagnostics(ld))
			if len(got) != len(tc.want) {
				t.Fatalf("hints = %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("hints = %v, want %v", got, tc.want)
					break
				}
			}
		})
	}
}

func TestComputeDiagnostics_ValuesAttached(t *testing.T) {
	l := types.ProductionLine{Status: types.StatusError, Voltage: 350, Power: 45.5, Efficiency: 30}
	for _, h := range computeDiagnostics(diagData(l, 0)) {
		if h.Value == nil {
			t.Errorf("hint %q has no value", h.Key)
		}
		if h.Title == "" || h.Detail == "" {
			t.Errorf("hint %q missing title or detail", h.Key)
		}
	}
}
