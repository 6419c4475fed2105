package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/compute"
	"github.com/linewatch/linewatch/server/internal/config"
	"github.com/linewatch/linewatch/server/internal/store"
)

// subscriberBuffer is the number of snapshots a subscriber may lag behind
// before the oldest pending one is dropped.
const subscriberBuffer = 4

// Scheduler owns the refresh loop: every tick it steps each configured line
// through the engine, commits the results to the store and publishes the
// refreshed snapshot to subscribers.
type Scheduler struct {
	lines       []config.LineSpec
	engine      *compute.Engine
	store       *store.Store
	interval    time.Duration
	seedPoints  int
	seedSpacing time.Duration
	now         func() time.Time // injectable for deterministic tests

	mu     sync.Mutex
	subs   map[int]chan []types.LineData
	nextID int
	closed bool
}

// New creates a Scheduler for the lines and timings in cfg. Call Init before
// Run so every line has a starting state.
func New(cfg *config.Config, engine *compute.Engine, st *store.Store) *Scheduler {
	return &Scheduler{
		lines:       cfg.Lines,
		engine:      engine,
		store:       st,
		interval:    cfg.Simulation.TickInterval,
		seedPoints:  cfg.Simulation.SeedPoints,
		seedSpacing: cfg.Simulation.SeedSpacing,
		now:         time.Now,
		subs:        make(map[int]chan []types.LineData),
	}
}

// Init registers every configured line in the store with its starting state
// and seeded history.
func (s *Scheduler) Init() {
	now := s.now()
	for _, spec := range s.lines {
		line := s.engine.NewLine(spec, now)
		history := s.engine.Seed(spec, s.seedPoints, s.seedSpacing, now)
		s.store.Add(line, history)
	}
	slog.Info("scheduler: lines initialised",
		"lines", len(s.lines), "seed_points", s.seedPoints, "seed_spacing", s.seedSpacing)
}

// Tick runs one refresh for every line in configured order and publishes
// the result. It returns the published snapshot.
func (s *Scheduler) Tick(now time.Time) []types.LineData {
	start := time.Now()
	emitted := 0
	for _, spec := range s.lines {
		prev, ok := s.store.Line(spec.ID)
		if !ok {
			slog.Warn("scheduler: line not initialised, skipping", "line", spec.ID)
			continue
		}
		res := s.engine.Step(spec, prev.Line, now)
		s.store.Commit(res.Line, res.Metric, res.Notifications)
		emitted += len(res.Notifications)
	}

	snap := s.store.Lines()
	s.publish(snap)

	slog.Debug("scheduler: tick complete",
		"lines", len(snap), "notifications", emitted, "took", time.Since(start))
	return snap
}

// Run ticks every interval until ctx is cancelled. A tick always completes
// before the next one starts. Subscriber channels are closed on return.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	defer s.closeAll()

	slog.Info("scheduler: started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler: stopped")
			return
		case <-t.C:
			s.Tick(s.now())
		}
	}
}

// Subscribe returns a channel receiving the snapshot published after every
// tick, and a func that cancels the subscription. A subscriber that falls
// behind loses its oldest pending snapshot rather than stalling the loop.
// The channel is closed when Run returns. Snapshots are shared between
// subscribers and must not be modified.
func (s *Scheduler) Subscribe() (<-chan []types.LineData, func()) {
	ch := make(chan []types.LineData, subscriberBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// publish delivers snap to every subscriber without blocking.
func (s *Scheduler) publish(snap []types.LineData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Full: drop the oldest snapshot, keep the newest.
			select {
			case <-ch:
				slog.Warn("scheduler: subscriber lagging, dropped oldest snapshot",
					"subscriber", id, "buffer_cap", cap(ch))
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// closeAll ends every subscription.
func (s *Scheduler) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
