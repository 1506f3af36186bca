package location

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Sample is one position fix from the platform positioning source. Heading is
// nil when the sensor does not report one; it is never defaulted to 0.
type Sample struct {
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
	Heading *float64  `json:"heading,omitempty"`
	At      time.Time `json:"at"`
}

// Source abstracts a positioning feed. Watch delivers samples at the sensor's
// own cadence until ctx is cancelled; a Source supports one watch at a time.
type Source interface {
	Watch(ctx context.Context) (<-chan Sample, error)
}

var ErrAlreadySubscribed = errors.New("tracker already has an active subscription")

// Tracker owns the single position subscription for the local rider and
// forwards normalized samples to the subscriber in delivery order.
type Tracker struct {
	source Source

	mu     sync.Mutex
	cancel context.CancelFunc
	last   *Sample
}

func NewTracker(source Source) *Tracker {
	return &Tracker{source: source}
}

// Subscribe starts the watch and invokes fn for every sample, sequentially.
// Only one subscription may be active; Unsubscribe releases it.
func (t *Tracker) Subscribe(ctx context.Context, fn func(Sample)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return ErrAlreadySubscribed
	}

	watchCtx, cancel := context.WithCancel(ctx)
	samples, err := t.source.Watch(watchCtx)
	if err != nil {
		cancel()
		return err
	}
	t.cancel = cancel

	go func() {
		for s := range samples {
			if s.At.IsZero() {
				s.At = time.Now()
			}
			t.mu.Lock()
			copied := s
			t.last = &copied
			t.mu.Unlock()
			fn(s)
		}
	}()
	return nil
}

// Unsubscribe stops the active watch. Safe to call when idle.
func (t *Tracker) Unsubscribe() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Last returns the most recent sample seen, or nil before the first fix.
func (t *Tracker) Last() *Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
