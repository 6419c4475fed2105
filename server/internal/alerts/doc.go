// Package alerts delivers notifications raised by the simulation to webhook
// targets (Teams, Slack or generic HTTP). Only notifications emitted by the
// most recent tick are considered; repeats of the same rule on the same line
// are held back for the configured cooldown.
package alerts
