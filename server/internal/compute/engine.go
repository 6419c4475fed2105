package compute

import (
	"log/slog"
	"sync"
	"time"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/config"
)

// Initial efficiency is drawn uniformly from [initialEffMin, initialEffMin+initialEffSpan).
const (
	initialEffMin  = 70
	initialEffSpan = 30
)

// Result is the output of one tick for one line, ready to be committed to
// the line store.
type Result struct {
	Line          types.ProductionLine
	Metric        types.Metric
	Notifications []types.Notification
}

// Engine samples, scores, classifies and raises notifications for every
// line, tick after tick. It remembers the last timestamp issued per line so
// generated metrics are strictly increasing in time.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	sampler *Sampler
	mode    string
	last    map[int]time.Time
}

// NewEngine returns an Engine drawing from src. mode is config.ModeFirst or
// config.ModeAll; anything else behaves as ModeFirst.
func NewEngine(src Uniform, mode string) *Engine {
	return &Engine{
		sampler: NewSampler(src),
		mode:    mode,
		last:    make(map[int]time.Time),
	}
}

// NewLine builds the starting state of a line from one fresh reading.
// Status starts active and efficiency is a random value in [70, 99] until
// the first tick replaces it.
func (e *Engine) NewLine(spec config.LineSpec, now time.Time) types.ProductionLine {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.sampler.Generate(spec.Profile, now)
	return types.ProductionLine{
		ID:          spec.ID,
		Name:        spec.Name,
		Status:      types.StatusActive,
		Current:     m.Current,
		Voltage:     m.Voltage,
		Power:       m.ActivePower,
		TargetPower: spec.TargetPower(),
		Efficiency:  initialEffMin + e.sampler.intn(initialEffSpan),
		LastUpdate:  now.Truncate(time.Millisecond),
	}
}

// Seed generates n historical readings ending at now, spaced apart, oldest
// first. Later Step calls for the same line are stamped after now.
func (e *Engine) Seed(spec config.LineSpec, n int, spacing time.Duration, now time.Time) []types.Metric {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n <= 0 {
		return nil
	}
	out := make([]types.Metric, 0, n)
	for j := n - 1; j >= 0; j-- {
		ts := now.Add(-time.Duration(j) * spacing).Truncate(time.Millisecond)
		out = append(out, e.sampler.Generate(spec.Profile, ts))
	}
	e.last[spec.ID] = out[len(out)-1].Timestamp
	return out
}

// Step runs one tick for the line described by spec, starting from its
// previous state prev. now is passed explicitly so callers (and tests)
// control the clock. Use time.Now() in production.
func (e *Engine) Step(spec config.LineSpec, prev types.ProductionLine, now time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	ts := e.nextTimestamp(spec.ID, now)
	m := e.sampler.Generate(spec.Profile, ts)

	line := prev
	line.Current = m.Current
	line.Voltage = m.Voltage
	line.Power = m.ActivePower
	line.Efficiency = Efficiency(spec.Profile, m.ActivePower)
	line.Status = Classify(spec.Profile, m)
	line.LastUpdate = m.Timestamp

	var notes []types.Notification
	if e.mode == config.ModeAll {
		notes = NotifyAll(line, spec.Profile, m, ts)
	} else if n, ok := Notify(line, spec.Profile, m, ts); ok {
		notes = []types.Notification{n}
	}

	if line.Status != types.StatusActive {
		slog.Debug("compute: line out of band",
			"line", spec.ID, "status", line.Status,
			"power", m.ActivePower, "voltage", m.Voltage, "current", m.Current)
	}

	return Result{Line: line, Metric: m, Notifications: notes}
}

// nextTimestamp returns now at millisecond resolution, bumped forward when
// it would not be strictly after the line's previous reading.
func (e *Engine) nextTimestamp(lineID int, now time.Time) time.Time {
	ts := now.Truncate(time.Millisecond)
	if last, ok := e.last[lineID]; ok && !ts.After(last) {
		ts = last.Add(time.Millisecond)
	}
	e.last[lineID] = ts
	return ts
}
