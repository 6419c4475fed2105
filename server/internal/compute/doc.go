// Package compute derives production-line state from synthetic telemetry.
//
// sampler.go draws one Metric per line per tick. Configured lines sample
// active power from a normal distribution (Box-Muller over an injectable
// Uniform source) with half the profile's standard deviation; current
// follows power with multiplicative jitter. Unconfigured lines use uniform
// jitter around fixed baselines. Voltage is always 380 V +/- 5.
//
// score.go provides the pure Efficiency function: 100 at mean power, at
// least 70 inside the band, falling linearly to 30 at min/max power.
//
// status.go classifies a reading as active, warning or error. Voltage
// outside [360, 400] V is always an error.
//
// notify.go evaluates threshold rules in precedence order and returns the
// first match (or every match with NotifyAll).
//
// engine.go combines the four for one line per tick. Engine.Step accepts an
// injectable time.Time so tests are deterministic.
package compute
