package routing

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/motocraft35/moto-asistan-sub000/internal/shared/geo"
)

// Result is the outcome of an asynchronous route computation. It is handed to
// the deliver callback so completion re-enters the rider's serialized event
// stream instead of mutating navigation state from this goroutine.
type Result struct {
	Route  Route
	Err    error
	Silent bool
	Party  bool
	Dest   Destination
	Epoch  uint64
}

// Engine schedules route computations against a Provider. A single request may
// be in flight at a time; triggers that arrive while one is outstanding are
// dropped, not queued, so redundant deviation events collapse into one
// recompute. Results carry the epoch current at request start; consumers drop
// results whose epoch is stale.
type Engine struct {
	provider Provider
	timeout  time.Duration
	deliver  func(Result)

	inFlight atomic.Bool
	epoch    atomic.Uint64
}

func NewEngine(provider Provider, timeout time.Duration, deliver func(Result)) *Engine {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Engine{provider: provider, timeout: timeout, deliver: deliver}
}

// ComputeRoute starts a recompute from origin to dest. The silent and party
// flags ride along in the Result so the consumer acts on them only once the
// computation actually completes. Returns false when the trigger was dropped
// because a request is already outstanding.
func (e *Engine) ComputeRoute(origin geo.Point, dest Destination, silent, party bool) bool {
	if !e.inFlight.CompareAndSwap(false, true) {
		return false
	}
	epoch := e.epoch.Load()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		route, err := e.provider.Route(ctx, origin, dest.Point())
		// release the guard only after delivery; a successor accepted earlier
		// could otherwise deliver first and be overwritten by this result
		e.deliver(Result{Route: route, Err: err, Silent: silent, Party: party, Dest: dest, Epoch: epoch})
		e.inFlight.Store(false)
	}()
	return true
}

// Invalidate bumps the epoch so any in-flight request's result is discarded on
// delivery. Called when navigation is cancelled or replaced.
func (e *Engine) Invalidate() {
	e.epoch.Add(1)
}

func (e *Engine) Epoch() uint64 {
	return e.epoch.Load()
}
