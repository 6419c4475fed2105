package alerts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/config"
)

// Alert is the payload delivered to webhook targets: one notification plus
// the display name of the line that produced it.
type Alert struct {
	types.Notification
	LineName string `json:"line_name"`
}

// Engine forwards notifications emitted by a tick to the configured webhooks.
// A notification is suppressed when it is below the minimum severity or when
// the same rule already fired on the same line within the cooldown window.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu          sync.Mutex
	webhooks    []config.WebhookConfig
	cooldown    time.Duration
	minSeverity types.Severity
	lastFire    map[string]time.Time // key: "lineID:rule"

	client *http.Client
	wg     sync.WaitGroup
}

// New creates an Engine from the alerts configuration.
// An Engine with no webhooks is valid; Evaluate still applies cooldowns.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	e.Reload(cfg)
	return e
}

// Reload swaps webhooks, cooldown and severity floor. Cooldown state is kept.
func (e *Engine) Reload(cfg config.AlertsConfig) {
	e.mu.Lock()
	e.webhooks = append([]config.WebhookConfig(nil), cfg.Webhooks...)
	e.cooldown = cfg.Cooldown
	e.minSeverity = types.Severity(cfg.MinSeverity)
	e.mu.Unlock()
}

// Evaluate selects the notifications raised by the latest tick of each line
// and delivers them asynchronously. It returns the alerts it dispatched.
func (e *Engine) Evaluate(lines []types.LineData) []Alert {
	e.mu.Lock()
	var fired []Alert
	for _, ld := range lines {
		for _, n := range ld.Emitted() {
			if !n.Severity.AtLeast(e.minSeverity) {
				continue
			}
			key := strconv.Itoa(n.LineID) + ":" + n.Rule
			if last, ok := e.lastFire[key]; ok && n.Timestamp.Sub(last) < e.cooldown {
				continue
			}
			e.lastFire[key] = n.Timestamp
			fired = append(fired, Alert{Notification: n, LineName: ld.Line.Name})
		}
	}
	webhooks := e.webhooks
	e.mu.Unlock()

	for _, a := range fired {
		slog.Info("alerts: notification fired",
			"line", a.LineID,
			"rule", a.Rule,
			"severity", a.Severity,
		)
		if len(webhooks) == 0 {
			continue
		}
		e.wg.Add(1)
		go func(a Alert) {
			defer e.wg.Done()
			e.deliver(webhooks, a)
		}(a)
	}
	return fired
}

// Run evaluates every snapshot received on updates until ctx is cancelled or
// updates is closed, then waits for in-flight deliveries.
func (e *Engine) Run(ctx context.Context, updates <-chan []types.LineData) {
	defer e.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case lines, ok := <-updates:
			if !ok {
				return
			}
			e.Evaluate(lines)
		}
	}
}

// Wait blocks until all in-flight webhook deliveries have finished.
func (e *Engine) Wait() { e.wg.Wait() }
