package api

import (
	"fmt"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/compute"
)

// DiagnosticHint is one human-readable insight about a line's state.
// The dashboard displays these as chips on the line card; clicking one shows
// Detail, a plain-English explanation of what is going on.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives diagnostic hints from a line aggregate.
// Diagnostics are ordered: critical first, then warnings, then info.
func computeDiagnostics(ld types.LineData) []DiagnosticHint {
	var hints []DiagnosticHint
	line := ld.Line

	// ── Stopped reporting ────────────────────────────────────────────────────
	if line.Status == types.StatusOffline {
		hints = append(hints, DiagnosticHint{
			Key:   "offline",
			Level: "critical",
			Title: "Line offline",
			Detail: fmt.Sprintf(
				"No reading has arrived for this line since %s. "+
					"The values shown are the last known ones and may be out of date. "+
					"Check that the refresh loop is running.",
				line.LastUpdate.UTC().Format("15:04:05 MST"),
			),
		})
		return hints // the remaining hints describe stale data
	}

	// ── No history yet ───────────────────────────────────────────────────────
	if len(ld.Metrics) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "warming_up",
			Level: "info",
			Title: "Warming up",
			Detail: "This line has no readings in its window yet. " +
				"Charts and reports fill in after the next refresh. No action needed.",
		})
		return hints
	}

	// ── Voltage ──────────────────────────────────────────────────────────────
	if line.Voltage < compute.VoltageMin || line.Voltage > compute.VoltageMax {
		v := line.Voltage
		hints = append(hints, DiagnosticHint{
			Key:   "voltage",
			Level: "critical",
			Title: fmt.Sprintf("Voltage %.0f V", v),
			Detail: fmt.Sprintf(
				"Supply voltage is %.1f V, outside the %.0f-%.0f V operating band. "+
					"Machines may trip or run hot. Check the feeder and the transformer tap.",
				v, compute.VoltageMin, compute.VoltageMax,
			),
			Value: &v,
		})
	}

	// ── Power band ───────────────────────────────────────────────────────────
	switch line.Status {
	case types.StatusError:
		v := line.Power
		hints = append(hints, DiagnosticHint{
			Key:   "status_error",
			Level: "critical",
			Title: "Out of range",
			Detail: fmt.Sprintf(
				"The latest reading (%.2f kW, %.2f A) is beyond the line's acceptable limits. "+
					"Sustained overload wears drives and raises energy cost. "+
					"Look for jams, blocked conveyors or a recipe running above spec.",
				line.Power, line.Current,
			),
			Value: &v,
		})
	case types.StatusWarning:
		v := line.Power
		hints = append(hints, DiagnosticHint{
			Key:   "status_warning",
			Level: "warning",
			Title: "Running light",
			Detail: fmt.Sprintf(
				"The line is drawing %.2f kW, under its expected band. "+
					"This usually means it is idling, starved of material or running a reduced recipe.",
				line.Power,
			),
			Value: &v,
		})
	}

	// ── Efficiency ───────────────────────────────────────────────────────────
	if line.Efficiency < 70 {
		v := float64(line.Efficiency)
		hints = append(hints, DiagnosticHint{
			Key:   "efficiency_low",
			Level: "warning",
			Title: fmt.Sprintf("%d%% efficiency", line.Efficiency),
			Detail: fmt.Sprintf(
				"Efficiency is %d%%, below the 70%% floor of the acceptable band. "+
					"Power is far from the line's nominal operating point.",
				line.Efficiency,
			),
			Value: &v,
		})
	}

	// ── Unread notifications ─────────────────────────────────────────────────
	if n := ld.Unread(); n > 0 {
		v := float64(n)
		hints = append(hints, DiagnosticHint{
			Key:   "unread",
			Level: "info",
			Title: fmt.Sprintf("%d unread alerts", n),
			Detail: fmt.Sprintf(
				"%d notifications for this line have not been acknowledged. "+
					"Mark them read once handled so new ones stand out.",
				n,
			),
			Value: &v,
		})
	}

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		score := float64(line.Efficiency)
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"This line is running inside its band with an efficiency of %d%%. "+
					"Voltage is nominal and there is nothing to acknowledge.",
				line.Efficiency,
			),
			Value: &score,
		})
	}

	return hints
}
