package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/linewatch/linewatch/pkg/types"
)

// History bounds per line.
const (
	MaxMetrics       = 100
	MaxNotifications = 50
)

// entry is the mutable aggregate behind one LineData.
type entry struct {
	line          types.ProductionLine
	metrics       *Ring[types.Metric]
	notifications *Ring[types.Notification]
}

func (e *entry) snapshot() types.LineData {
	return types.LineData{
		Line:          e.line,
		Metrics:       e.metrics.Slice(),
		Notifications: e.notifications.Slice(),
	}
}

// Store is a thread-safe in-memory store of line aggregates, listed in the
// order lines were added. Histories are bounded: the oldest metric or
// notification is dropped once a line holds MaxMetrics or MaxNotifications.
//
// A background goroutine (Run) marks lines offline when they have not been
// refreshed within staleAfter.
type Store struct {
	mu         sync.RWMutex
	order      []int
	data       map[int]*entry
	staleAfter time.Duration
	updatedAt  time.Time
	now        func() time.Time // injectable for deterministic tests
}

// New creates an empty Store. A non-positive staleAfter disables the
// offline watchdog.
func New(staleAfter time.Duration) *Store {
	return &Store{
		data:       make(map[int]*entry),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Add registers a line with its initial history, oldest first. Adding an
// id twice replaces the earlier aggregate but keeps its list position.
func (s *Store) Add(line types.ProductionLine, history []types.Metric) {
	e := &entry{
		line:          line,
		metrics:       NewRing[types.Metric](MaxMetrics),
		notifications: NewRing[types.Notification](MaxNotifications),
	}
	for _, m := range history {
		e.metrics.Push(m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[line.ID]; !ok {
		s.order = append(s.order, line.ID)
	}
	s.data[line.ID] = e
}

// Commit applies one tick's output for a line: the new line state, the new
// metric and any notifications, in one critical section so readers never
// observe a partial update. It returns false when the line is unknown.
func (s *Store) Commit(line types.ProductionLine, m types.Metric, notes []types.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[line.ID]
	if !ok {
		return false
	}
	e.line = line
	e.metrics.Push(m)
	for _, n := range notes {
		if e.notifications.Push(n) {
			slog.Debug("store: notification history full, dropped oldest", "line", line.ID)
		}
	}
	s.updatedAt = s.now()
	return true
}

// Lines returns a copy of every line aggregate in insertion order.
func (s *Store) Lines() []types.LineData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.LineData, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id].snapshot())
	}
	return out
}

// Line returns a copy of the aggregate for id and whether it exists.
func (s *Store) Line(id int) (types.LineData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok {
		return types.LineData{}, false
	}
	return e.snapshot(), true
}

// Notifications returns every retained notification across all lines,
// newest first. Ties keep line order.
func (s *Store) Notifications() []types.Notification {
	s.mu.RLock()
	var out []types.Notification
	for _, id := range s.order {
		out = append(out, s.data[id].notifications.Slice()...)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// MarkNotificationRead flags the notification with the given id as read.
// Unknown ids and already-read notifications are left untouched. It reports
// whether a notification changed state.
func (s *Store) MarkNotificationRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, lineID := range s.order {
		found := s.data[lineID].notifications.Update(func(n *types.Notification) bool {
			if n.ID != id {
				return false
			}
			changed = !n.Read
			n.Read = true
			return true
		})
		if found {
			break
		}
	}
	return changed
}

// Count returns the number of lines held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// UpdatedAt returns when the last Commit happened, or the zero time.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// MarkStale sets lines whose LastUpdate is older than now minus staleAfter
// to offline. It returns the number of lines changed.
func (s *Store) MarkStale(now time.Time) int {
	if s.staleAfter <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.staleAfter)
	changed := 0
	for _, id := range s.order {
		e := s.data[id]
		if e.line.Status != types.StatusOffline && !e.line.LastUpdate.After(cutoff) {
			e.line.Status = types.StatusOffline
			changed++
		}
	}
	return changed
}

// Run starts the background staleness loop. It ticks at half the staleness
// window (minimum 1 second). Run blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	if s.staleAfter <= 0 {
		<-ctx.Done()
		return
	}
	interval := s.staleAfter / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.MarkStale(now); n > 0 {
				slog.Warn("store: lines went offline", "count", n, "stale_after", s.staleAfter)
			}
		}
	}
}
