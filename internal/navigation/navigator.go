package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/motocraft35/moto-asistan-sub000/internal/location"
	"github.com/motocraft35/moto-asistan-sub000/internal/routing"
	"github.com/motocraft35/moto-asistan-sub000/internal/shared/geo"
)

const (
	StateIdle    = "idle"
	StateGuiding = "guiding"
	StateArrived = "arrived"
)

const (
	// maneuverRadiusM is how close the rider must get to a step's maneuver
	// point before guidance acts on it.
	maneuverRadiusM = 30.0
	// deviationWarnM raises the rider-facing off-route warning.
	deviationWarnM = 100.0
	// rerouteThresholdM triggers a silent recompute. Tighter than the warning
	// so guidance is refreshed before the rider drifts far enough to warrant
	// an alert.
	rerouteThresholdM = 50.0

	arrivalMessage = "You have arrived at your destination"
)

// Announcer receives turn instructions for voice or notification rendering.
type Announcer interface {
	Announce(text string)
}

// Notifier receives transient, non-blocking rider notifications.
type Notifier interface {
	Notify(text string)
}

// Snapshot is a read-only view of navigation state for the UI and the party
// sync loop.
type Snapshot struct {
	State           string
	Navigating      bool
	Deviated        bool
	StepIndex       int
	LastAnnounced   int
	DistToManeuverM float64
	Destination     *routing.Destination
	PartySourced    bool
	Route           *routing.Route
}

type event interface{}

type sampleEvent struct{ sample location.Sample }

type routeEvent struct{ result routing.Result }

type navigateEvent struct {
	dest   routing.Destination
	silent bool
	party  bool
}

type clearEvent struct {
	reason    string
	partyOnly bool
}

// Navigator owns all rider-side navigation state. Every mutation happens on
// the single Run goroutine: location samples, route results and party commands
// are queued as events and processed strictly in order, so guidance and
// deviation decisions never interleave. The route engine's HTTP call is the
// only concurrent work, and its completion re-enters the queue as an event.
type Navigator struct {
	engine    *routing.Engine
	announcer Announcer
	notifier  Notifier

	events chan event
	done   chan struct{}

	mu            sync.Mutex
	state         string
	route         *routing.Route
	dest          *routing.Destination
	partySourced  bool
	navigating    bool
	deviated      bool
	stepIndex     int
	lastAnnounced int
	distToNext    float64
	lastSample    *location.Sample
}

func New(provider routing.Provider, timeout time.Duration, announcer Announcer, notifier Notifier) *Navigator {
	n := &Navigator{
		announcer:     announcer,
		notifier:      notifier,
		events:        make(chan event, 64),
		done:          make(chan struct{}),
		state:         StateIdle,
		lastAnnounced: -1,
	}
	n.engine = routing.NewEngine(provider, timeout, func(r routing.Result) {
		n.enqueue(routeEvent{result: r})
	})
	return n
}

// Run processes events until ctx is cancelled. Call exactly once.
func (n *Navigator) Run(ctx context.Context) {
	defer close(n.done)
	for {
		select {
		case <-ctx.Done():
			n.engine.Invalidate()
			return
		case ev := <-n.events:
			n.handle(ev)
		}
	}
}

// HandleSample is the tracker subscription callback.
func (n *Navigator) HandleSample(s location.Sample) {
	n.enqueue(sampleEvent{sample: s})
}

// NavigateTo starts navigation to a rider-chosen destination.
func (n *Navigator) NavigateTo(dest routing.Destination, silent bool) {
	n.enqueue(navigateEvent{dest: dest, silent: silent})
}

// SetPartyDestination installs a destination published by the party leader.
// Always non-silent: the rider is pulled into active navigation.
func (n *Navigator) SetPartyDestination(dest routing.Destination) {
	n.enqueue(navigateEvent{dest: dest, party: true})
}

// ClearPartyDestination drops the active route if and only if it was sourced
// from a party destination.
func (n *Navigator) ClearPartyDestination(reason string) {
	n.enqueue(clearEvent{reason: reason, partyOnly: true})
}

// ClearNavigation drops the active route unconditionally.
func (n *Navigator) ClearNavigation() {
	n.enqueue(clearEvent{})
}

func (n *Navigator) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Snapshot{
		State:           n.state,
		Navigating:      n.navigating,
		Deviated:        n.deviated,
		StepIndex:       n.stepIndex,
		LastAnnounced:   n.lastAnnounced,
		DistToManeuverM: n.distToNext,
		Destination:     n.dest,
		PartySourced:    n.partySourced,
		Route:           n.route,
	}
}

func (n *Navigator) enqueue(ev event) {
	select {
	case n.events <- ev:
	case <-n.done:
	}
}

func (n *Navigator) handle(ev event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch e := ev.(type) {
	case sampleEvent:
		n.onSample(e.sample)
	case routeEvent:
		n.onRouteResult(e.result)
	case navigateEvent:
		n.onNavigate(e)
	case clearEvent:
		n.onClear(e)
	}
}

func (n *Navigator) onSample(s location.Sample) {
	n.lastSample = &s
	if n.route == nil {
		return
	}
	here := geo.Point{Lat: s.Lat, Lng: s.Lng}

	d := geo.DistanceToPolylineM(here, n.route.Geometry)
	n.deviated = d > deviationWarnM
	if d > rerouteThresholdM && n.dest != nil {
		// a reroute keeps the current route's provenance
		n.engine.ComputeRoute(here, *n.dest, true, n.partySourced)
	}

	if n.state != StateGuiding || n.stepIndex >= len(n.route.Steps) {
		return
	}

	step := n.route.Steps[n.stepIndex]
	dist := geo.DistanceM(here, step.Maneuver)
	n.distToNext = dist
	if dist >= maneuverRadiusM {
		return
	}

	if n.stepIndex+1 < len(n.route.Steps) {
		if n.lastAnnounced < n.stepIndex {
			n.announce(step.Instruction)
			n.lastAnnounced = n.stepIndex
		}
		n.stepIndex++
	} else {
		n.state = StateArrived
		n.announce(arrivalMessage)
		n.clearRoute()
	}
}

func (n *Navigator) onRouteResult(r routing.Result) {
	if r.Epoch != n.engine.Epoch() {
		// navigation was cancelled or replaced while the request was in flight
		return
	}
	if r.Err != nil {
		n.notify(failureText(r.Err))
		return
	}
	n.installRoute(r.Route, r.Dest, r.Silent, r.Party)
}

func (n *Navigator) onNavigate(e navigateEvent) {
	if n.lastSample == nil {
		n.notify("Waiting for a GPS fix before starting navigation")
		return
	}
	origin := geo.Point{Lat: n.lastSample.Lat, Lng: n.lastSample.Lng}
	n.engine.ComputeRoute(origin, e.dest, e.silent, e.party)
}

func (n *Navigator) onClear(e clearEvent) {
	if e.partyOnly && !n.partySourced {
		return
	}
	if n.route != nil && e.reason != "" {
		n.notify(e.reason)
	}
	n.clearRoute()
}

// installRoute commits a completed computation. The party label is applied
// here, not at trigger time, so a failed or discarded computation never
// relabels the route that stays active.
func (n *Navigator) installRoute(route routing.Route, dest routing.Destination, silent, party bool) {
	n.route = &route
	n.dest = &dest
	n.partySourced = party
	n.state = StateGuiding
	n.stepIndex = 0
	n.lastAnnounced = -1
	n.deviated = false
	if len(route.Steps) > 0 {
		n.distToNext = route.Steps[0].DistanceM
	}

	if !silent {
		n.navigating = true
		if len(route.Steps) > 0 {
			n.announce(route.Steps[0].Instruction)
			n.lastAnnounced = 0
		}
	}
}

func (n *Navigator) clearRoute() {
	n.route = nil
	n.dest = nil
	n.state = StateIdle
	n.navigating = false
	n.partySourced = false
	n.deviated = false
	n.stepIndex = 0
	n.lastAnnounced = -1
	n.distToNext = 0
	n.engine.Invalidate()
}

func (n *Navigator) announce(text string) {
	if n.announcer != nil {
		n.announcer.Announce(text)
	}
}

func (n *Navigator) notify(text string) {
	if n.notifier != nil {
		n.notifier.Notify(text)
	}
}

func failureText(err error) string {
	switch routing.KindOf(err) {
	case routing.ProviderUnreachable:
		return "Route service unreachable, keeping current route"
	case routing.NoRouteFound:
		return "No road route found to the destination"
	default:
		return "Route service returned an unexpected response"
	}
}
