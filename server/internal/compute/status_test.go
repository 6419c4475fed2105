package compute

import (
	"testing"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/config"
)

func TestClassify(t *testing.T) {
	line1 := config.DefaultLines()[0].Profile

	tests := []struct {
		name string
		p    *config.LineConfig
		m    types.Metric
		want types.Status
	}{
		{"configured in band", line1, types.Metric{Voltage: 380, ActivePower: 19.787}, types.StatusActive},
		{"configured above upper", line1, types.Metric{Voltage: 380, ActivePower: 35}, types.StatusError},
		{"configured below lower", line1, types.Metric{Voltage: 380, ActivePower: 5}, types.StatusWarning},
		{"configured at upper is still active", line1, types.Metric{Voltage: 380, ActivePower: 29.714}, types.StatusActive},
		{"low voltage overrides in-band power", line1, types.Metric{Voltage: 359.99, ActivePower: 19.787}, types.StatusError},
		{"high voltage overrides low power", line1, types.Metric{Voltage: 400.01, ActivePower: 5}, types.StatusError},
		{"voltage 360 is in band", line1, types.Metric{Voltage: 360, ActivePower: 19.787}, types.StatusActive},
		{"voltage 400 is in band", line1, types.Metric{Voltage: 400, ActivePower: 19.787}, types.StatusActive},

		{"unconfigured high current", nil, types.Metric{Voltage: 380, Current: 210, ActivePower: 85}, types.StatusError},
		{"unconfigured high current beats high power", nil, types.Metric{Voltage: 380, Current: 210, ActivePower: 120}, types.StatusError},
		{"unconfigured low current", nil, types.Metric{Voltage: 380, Current: 130, ActivePower: 85}, types.StatusWarning},
		{"unconfigured high power", nil, types.Metric{Voltage: 380, Current: 180, ActivePower: 120}, types.StatusWarning},
		{"unconfigured nominal", nil, types.Metric{Voltage: 380, Current: 180, ActivePower: 85}, types.StatusActive},
		{"unconfigured bad voltage", nil, types.Metric{Voltage: 350, Current: 180, ActivePower: 85}, types.StatusError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.p, tc.m); got != tc.want {
				t.Errorf("Classify() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClassify_VoltageAlwaysWins(t *testing.T) {
	// Property: any voltage outside [360, 400] is an error regardless of power.
	profiles := []*config.LineConfig{nil}
	for _, l := range config.DefaultLines() {
		profiles = append(profiles, l.Profile)
	}
	for _, p := range profiles {
		for _, v := range []float64{0, 200, 359.99, 400.01, 500} {
			for power := 0.0; power <= 150; power += 7.5 {
				m := types.Metric{Voltage: v, ActivePower: power, Current: power * 1.7}
				if got := Classify(p, m); got != types.StatusError {
					t.Fatalf("Classify(voltage=%.2f, power=%.2f) = %q, want error", v, power, got)
				}
			}
		}
	}
}
