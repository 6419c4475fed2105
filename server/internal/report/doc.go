// Package report derives read-only summaries from line aggregates: per-line
// averages and totals over the current metric window, and a consolidated
// view across all lines. Nothing here is stored; every call recomputes from
// the snapshot it is given.
package report
