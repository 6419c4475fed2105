// Package config loads and watches the linewatch configuration file.
//
// Top-level types:
//   - Config{Server, Log, Simulation, Notifications, Lines, Alerts, Sinks}
//   - LineSpec: id, name and an optional statistical power profile (LineConfig).
//     A line without a profile is "unconfigured" and is simulated and scored
//     with fallback heuristics.
//   - LineConfig: mean/stddev/min/max power and the acceptable band
//     [lower_limit, upper_limit]. Load rejects any profile that does not
//     satisfy min < lower < mean < upper < max, since the efficiency scorer
//     divides by each of those gaps.
//
// Load(path) reads the YAML file, applies defaults (port 8080, 5s tick,
// 21 seed points 5m apart, lines 1/3/4 with their reference profiles), then
// validates. Default() returns the same defaults without reading a file.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. Only settings that are safe to change
// at runtime (log level, alert webhooks and cooldown) are applied by the
// server; the line table is fixed at start.
package config
