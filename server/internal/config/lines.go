package config

import (
	"fmt"
	"math"
)

// unconfiguredTarget is the target power for lines without a profile.
const unconfiguredTarget = 100

// LineSpec describes one monitored production line.
type LineSpec struct {
	// ID is the positive, unique line number.
	ID int `yaml:"id"`

	// Name is the display name. Defaults to "Line <id>".
	Name string `yaml:"name"`

	// Profile is the statistical power profile. Nil means the line is
	// unconfigured and uses fallback heuristics.
	Profile *LineConfig `yaml:"profile"`
}

// LineConfig is the static statistical profile of one line's active power
// draw, in kW.
type LineConfig struct {
	MeanPower   float64 `yaml:"mean_power"`
	StdDevPower float64 `yaml:"stddev_power"`
	MinPower    float64 `yaml:"min_power"`
	MaxPower    float64 `yaml:"max_power"`

	// LowerLimit and UpperLimit bound the efficiency band.
	LowerLimit float64 `yaml:"lower_limit"`
	UpperLimit float64 `yaml:"upper_limit"`
}

// Validate checks that every value is non-negative and that the thresholds
// are strictly ordered: min < lower < mean < upper < max.
func (c LineConfig) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"mean_power", c.MeanPower},
		{"stddev_power", c.StdDevPower},
		{"min_power", c.MinPower},
		{"max_power", c.MaxPower},
		{"lower_limit", c.LowerLimit},
		{"upper_limit", c.UpperLimit},
	} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s must be a finite non-negative number, got %v", f.name, f.v)
		}
	}
	if !(c.MinPower < c.LowerLimit) {
		return fmt.Errorf("min_power (%v) must be < lower_limit (%v)", c.MinPower, c.LowerLimit)
	}
	if !(c.LowerLimit < c.MeanPower) {
		return fmt.Errorf("lower_limit (%v) must be < mean_power (%v)", c.LowerLimit, c.MeanPower)
	}
	if !(c.MeanPower < c.UpperLimit) {
		return fmt.Errorf("mean_power (%v) must be < upper_limit (%v)", c.MeanPower, c.UpperLimit)
	}
	if !(c.UpperLimit < c.MaxPower) {
		return fmt.Errorf("upper_limit (%v) must be < max_power (%v)", c.UpperLimit, c.MaxPower)
	}
	return nil
}

// TargetPower returns the fixed power target for the line:
// ceil(mean * 1.2) with a profile, 100 without.
func (s LineSpec) TargetPower() float64 {
	if s.Profile == nil {
		return unconfiguredTarget
	}
	return math.Ceil(s.Profile.MeanPower * 1.2)
}

// DefaultLines returns the reference table: lines 1, 3 and 4 with the
// profiles measured on the plant floor.
func DefaultLines() []LineSpec {
	return []LineSpec{
		{ID: 1, Profile: &LineConfig{
			MeanPower: 19.787, StdDevPower: 9.927,
			MinPower: 1.803, MaxPower: 39.730,
			LowerLimit: 9.861, UpperLimit: 29.714,
		}},
		{ID: 3, Profile: &LineConfig{
			MeanPower: 22.171, StdDevPower: 7.811,
			MinPower: 0.599, MaxPower: 60.012,
			LowerLimit: 14.361, UpperLimit: 29.982,
		}},
		{ID: 4, Profile: &LineConfig{
			MeanPower: 21.806, StdDevPower: 5.216,
			MinPower: 6.562, MaxPower: 58.343,
			LowerLimit: 16.590, UpperLimit: 27.022,
		}},
	}
}

func fillLineNames(lines []LineSpec) {
	for i := range lines {
		if lines[i].Name == "" {
			lines[i].Name = fmt.Sprintf("Line %d", lines[i].ID)
		}
	}
}

func validateLines(lines []LineSpec) error {
	seen := make(map[int]bool, len(lines))
	for i, l := range lines {
		if l.ID <= 0 {
			return fmt.Errorf("lines[%d]: id must be positive, got %d", i, l.ID)
		}
		if seen[l.ID] {
			return fmt.Errorf("lines[%d]: duplicate id %d", i, l.ID)
		}
		seen[l.ID] = true
		if l.Profile == nil {
			continue
		}
		if err := l.Profile.Validate(); err != nil {
			return fmt.Errorf("lines[%d] (id %d): %w", i, l.ID, err)
		}
	}
	return nil
}
