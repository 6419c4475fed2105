package compute

import (
	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/config"
)

// Global voltage band, in volts. Readings outside it are always errors.
const (
	VoltageMin = 360.0
	VoltageMax = 400.0
)

// Fallback thresholds for lines without a power profile.
const (
	fallbackCurrentHigh = 200.0
	fallbackCurrentLow  = 140.0
	fallbackPowerHigh   = 110.0
)

// Classify derives the operational status of a line from one reading.
// It has no memory: consecutive readings may flap between states.
func Classify(p *config.LineConfig, m types.Metric) types.Status {
	if voltageOutOfRange(m.Voltage) {
		return types.StatusError
	}

	if p != nil {
		switch {
		case m.ActivePower > p.UpperLimit:
			return types.StatusError
		case m.ActivePower < p.LowerLimit:
			return types.StatusWarning
		}
		return types.StatusActive
	}

	switch {
	case m.Current > fallbackCurrentHigh:
		return types.StatusError
	case m.Current < fallbackCurrentLow:
		return types.StatusWarning
	case m.ActivePower > fallbackPowerHigh:
		return types.StatusWarning
	}
	return types.StatusActive
}

func voltageOutOfRange(v float64) bool {
	return v < VoltageMin || v > VoltageMax
}
