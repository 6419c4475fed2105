package report

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/linewatch/linewatch/pkg/types"
)

// Class buckets an efficiency score for display.
type Class string

const (
	ClassGood Class = "good"
	ClassFair Class = "fair"
	ClassPoor Class = "poor"
)

// Efficiency band floors.
const (
	goodFloor = 80
	fairFloor = 70
)

// Classify returns the display class for an efficiency score.
func Classify(efficiency int) Class {
	switch {
	case efficiency >= goodFloor:
		return ClassGood
	case efficiency >= fairFloor:
		return ClassFair
	default:
		return ClassPoor
	}
}

// LineSummary is the daily report for one line over its metric window.
// Averages over an empty window are zero.
type LineSummary struct {
	LineID      int       `json:"line_id"`
	LineName    string    `json:"line_name"`
	GeneratedAt time.Time `json:"generated_at"`
	Samples     int       `json:"samples"`

	AvgCurrent float64 `json:"avg_current"`
	AvgVoltage float64 `json:"avg_voltage"`
	AvgPower   float64 `json:"avg_power"`

	// TotalPower is the sum of active power over the window.
	TotalPower  float64 `json:"total_power"`
	MinPower    float64 `json:"min_power"`
	MaxPower    float64 `json:"max_power"`
	StdDevPower float64 `json:"stddev_power"`

	TargetPower float64 `json:"target_power"`
	Efficiency  int     `json:"efficiency"`
	Class       Class   `json:"class"`
}

// Consolidated is the cross-line report. Grand averages are the mean of the
// per-line averages, so every line weighs the same regardless of window size.
type Consolidated struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Lines       []LineSummary `json:"lines"`

	AvgCurrent    float64 `json:"avg_current"`
	AvgVoltage    float64 `json:"avg_voltage"`
	AvgPower      float64 `json:"avg_power"`
	TotalPower    float64 `json:"total_power"`
	AvgEfficiency float64 `json:"avg_efficiency"`
}

// Summarize computes the report for one line at time at.
func Summarize(d types.LineData, at time.Time) LineSummary {
	s := LineSummary{
		LineID:      d.Line.ID,
		LineName:    d.Line.Name,
		GeneratedAt: at,
		Samples:     len(d.Metrics),
		TargetPower: d.Line.TargetPower,
		Efficiency:  d.Line.Efficiency,
		Class:       Classify(d.Line.Efficiency),
	}
	if len(d.Metrics) == 0 {
		return s
	}

	current := make([]float64, len(d.Metrics))
	voltage := make([]float64, len(d.Metrics))
	power := make([]float64, len(d.Metrics))
	for i, m := range d.Metrics {
		current[i] = m.Current
		voltage[i] = m.Voltage
		power[i] = m.ActivePower
	}

	s.AvgCurrent = stat.Mean(current, nil)
	s.AvgVoltage = stat.Mean(voltage, nil)
	s.AvgPower = stat.Mean(power, nil)
	s.TotalPower = floats.Sum(power)
	s.MinPower = floats.Min(power)
	s.MaxPower = floats.Max(power)
	if len(power) > 1 {
		s.StdDevPower = stat.StdDev(power, nil)
	}
	return s
}

// Consolidate computes the cross-line report at time at, keeping line order.
func Consolidate(lines []types.LineData, at time.Time) Consolidated {
	c := Consolidated{
		GeneratedAt: at,
		Lines:       make([]LineSummary, 0, len(lines)),
	}
	if len(lines) == 0 {
		return c
	}

	current := make([]float64, len(lines))
	voltage := make([]float64, len(lines))
	power := make([]float64, len(lines))
	totals := make([]float64, len(lines))
	eff := make([]float64, len(lines))
	for i, d := range lines {
		s := Summarize(d, at)
		c.Lines = append(c.Lines, s)
		current[i] = s.AvgCurrent
		voltage[i] = s.AvgVoltage
		power[i] = s.AvgPower
		totals[i] = s.TotalPower
		eff[i] = float64(s.Efficiency)
	}

	c.AvgCurrent = stat.Mean(current, nil)
	c.AvgVoltage = stat.Mean(voltage, nil)
	c.AvgPower = stat.Mean(power, nil)
	c.TotalPower = floats.Sum(totals)
	c.AvgEfficiency = stat.Mean(eff, nil)
	return c
}
