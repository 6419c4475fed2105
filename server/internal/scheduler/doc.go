// Package scheduler runs the simulation refresh loop. It seeds every line at
// start, advances all lines once per tick through the compute engine, commits
// the results to the store and fans the refreshed snapshot out to subscribers
// such as the WebSocket hub, alert delivery and sinks.
package scheduler
