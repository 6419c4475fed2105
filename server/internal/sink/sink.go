package sink

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/linewatch/linewatch/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second

	// DefaultBufferSize is the number of tick snapshots a Shipper holds while
	// its publisher is unavailable.
	DefaultBufferSize = 32
)

// Publisher writes the output of one tick to an external system.
type Publisher interface {
	Publish(ctx context.Context, lines []types.LineData) error
	Close() error
}

// Shipper buffers tick snapshots and hands them to a Publisher.
// Ship is non-blocking; when the buffer is full the oldest snapshot is evicted.
// Run must be called in a goroutine to drain the buffer and retry failures.
type Shipper struct {
	name     string
	pub      Publisher
	buf      chan []types.LineData
	retryMin time.Duration
}

// New creates a Shipper that publishes through pub. name is used in logs.
func New(name string, pub Publisher, bufSize int) *Shipper {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Shipper{
		name:     name,
		pub:      pub,
		buf:      make(chan []types.LineData, bufSize),
		retryMin: backoffInitial,
	}
}

// Ship enqueues one tick snapshot.
// If the buffer is full the oldest entry is evicted to make room.
func (s *Shipper) Ship(lines []types.LineData) {
	select {
	case s.buf <- lines:
	default:
		select {
		case <-s.buf:
			slog.Warn("sink: buffer full, evicted oldest snapshot",
				"sink", s.name, "buffer_cap", cap(s.buf))
		default:
		}
		s.buf <- lines
	}
}

// Run forwards every snapshot received on updates to the publisher.
// A failed publish is retried with exponential backoff; newer snapshots keep
// queueing meanwhile. Run blocks until ctx is cancelled or updates is closed
// and the buffer is drained, then closes the publisher.
func (s *Shipper) Run(ctx context.Context, updates <-chan []types.LineData) {
	defer func() {
		if err := s.pub.Close(); err != nil {
			slog.Warn("sink: close failed", "sink", s.name, "err", err)
		}
	}()

	bo := newBackoff(s.retryMin)
	var pending []types.LineData
	var retry <-chan time.Time
	closed := false

	for {
		if pending == nil && retry == nil {
			select {
			case lines := <-s.buf:
				pending = lines
			default:
			}
		}

		if pending != nil && retry == nil {
			err := s.publish(ctx, pending)
			switch {
			case err == nil:
				bo.reset()
				pending = nil
				continue
			case ctx.Err() != nil:
				return
			case closed:
				// Nothing new will arrive; give up on what is left.
				slog.Error("sink: publish failed during shutdown, dropping backlog",
					"sink", s.name, "err", err, "dropped", len(s.buf)+1)
				return
			}
			wait := bo.next()
			slog.Error("sink: publish failed, will retry",
				"sink", s.name, "err", err, "retry_in", wait)
			retry = time.After(wait)
		}

		if closed && pending == nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case lines, ok := <-updates:
			if !ok {
				closed = true
				updates = nil
				continue
			}
			s.Ship(lines)
		case <-retry:
			retry = nil
		}
	}
}

func (s *Shipper) publish(ctx context.Context, lines []types.LineData) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := s.pub.Publish(sendCtx, lines); err != nil {
		return err
	}
	slog.Debug("sink: snapshot delivered", "sink", s.name, "lines", len(lines))
	return nil
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	initial time.Duration
	current time.Duration
}

func newBackoff(initial time.Duration) *backoff {
	return &backoff{initial: initial, current: initial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

// reset returns the backoff to its initial duration.
func (b *backoff) reset() {
	b.current = b.initial
}
