package compute

import (
	"fmt"
	"time"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/config"
)

// Rule tags, used in notification IDs and for alert cooldown keys.
const (
	RulePowerHigh        = "power-high"
	RulePowerLow         = "power-low"
	RuleCurrentHigh      = "current-high"
	RulePowerHighGeneric = "power-high-gen"
	RuleVoltage          = "voltage"
)

// Notify returns the highest-precedence notification for m, if any rule
// matches.
//
// Precedence: configured power-high > configured power-low (or, without a
// profile, current-high > generic power-high) > voltage out of range.
// A voltage excursion is not reported when a power or current rule already
// matched for the same reading; use NotifyAll to see every match.
func Notify(line types.ProductionLine, p *config.LineConfig, m types.Metric, now time.Time) (types.Notification, bool) {
	all := NotifyAll(line, p, m, now)
	if len(all) == 0 {
		return types.Notification{}, false
	}
	return all[0], true
}

// NotifyAll returns every matching notification for m in precedence order.
func NotifyAll(line types.ProductionLine, p *config.LineConfig, m types.Metric, now time.Time) []types.Notification {
	var out []types.Notification
	add := func(rule string, sev types.Severity, msg string) {
		out = append(out, types.Notification{
			ID:        fmt.Sprintf("%d-%d-%s", line.ID, now.UnixMilli(), rule),
			LineID:    line.ID,
			Severity:  sev,
			Rule:      rule,
			Message:   fmt.Sprintf("[%s] %s", line.Name, msg),
			Timestamp: now,
		})
	}

	if p != nil {
		switch {
		case m.ActivePower > p.UpperLimit:
			add(RulePowerHigh, types.SeverityError,
				fmt.Sprintf("High power: %v kW (limit: %v kW)", m.ActivePower, p.UpperLimit))
		case m.ActivePower < p.LowerLimit:
			add(RulePowerLow, types.SeverityWarning,
				fmt.Sprintf("Low power: %v kW (limit: %v kW)", m.ActivePower, p.LowerLimit))
		}
	} else {
		if m.Current > fallbackCurrentHigh {
			add(RuleCurrentHigh, types.SeverityError,
				fmt.Sprintf("High current: %v A (limit: %v A)", m.Current, fallbackCurrentHigh))
		}
		if m.ActivePower > fallbackPowerHigh {
			add(RulePowerHighGeneric, types.SeverityWarning,
				fmt.Sprintf("Elevated power draw: %v kW", m.ActivePower))
		}
	}

	if voltageOutOfRange(m.Voltage) {
		add(RuleVoltage, types.SeverityError,
			fmt.Sprintf("Voltage out of range: %v V (range: %v-%v V)", m.Voltage, VoltageMin, VoltageMax))
	}

	return out
}
