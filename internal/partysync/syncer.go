package partysync

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/motocraft35/moto-asistan-sub000/internal/location"
	"github.com/motocraft35/moto-asistan-sub000/internal/navigation"
	"github.com/motocraft35/moto-asistan-sub000/internal/party"
	"github.com/motocraft35/moto-asistan-sub000/internal/routing"
)

// Navigator is the slice of the navigation API the sync loop drives.
type Navigator interface {
	Snapshot() navigation.Snapshot
	SetPartyDestination(dest routing.Destination)
	ClearPartyDestination(reason string)
}

// PositionSource supplies the rider's last known fix for heartbeats.
type PositionSource interface {
	Last() *location.Sample
}

const clearedDestinationNotice = "Group ride destination cleared, navigation stopped"

// Syncer keeps the rider's navigation state aligned with the party authority.
// Each tick it heartbeats the rider's position and reconciles the shared
// destination against the navigator's own snapshot, which is the single source
// of truth for what the rider is currently navigating to. Authority errors
// leave the last-known state untouched.
type Syncer struct {
	client   *Client
	nav      Navigator
	position PositionSource
	userID   string
	interval time.Duration

	mu        sync.Mutex
	lastParty *party.Party
}

func NewSyncer(client *Client, nav Navigator, position PositionSource, userID string, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Syncer{
		client:   client,
		nav:      nav,
		position: position,
		userID:   userID,
		interval: interval,
	}
}

// Run polls until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Party returns the last successfully fetched party state, or nil.
func (s *Syncer) Party() *party.Party {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastParty
}

func (s *Syncer) tick(ctx context.Context) {
	s.heartbeat(ctx)

	p, err := s.client.CurrentParty(ctx)
	if err != nil {
		log.Printf("party sync: %v", err)
		return
	}
	s.mu.Lock()
	s.lastParty = p
	s.mu.Unlock()

	if p != nil && p.LeaderID == s.userID {
		p = s.publishLeaderDestination(ctx, p)
	}
	s.reconcileDestination(p)
}

func (s *Syncer) heartbeat(ctx context.Context) {
	if s.position == nil {
		return
	}
	pos := s.position.Last()
	if pos == nil {
		return
	}
	req := party.HeartbeatRequest{Lat: pos.Lat, Lng: pos.Lng, Heading: pos.Heading}
	if err := s.client.Heartbeat(ctx, req); err != nil {
		log.Printf("party sync: heartbeat: %v", err)
	}
}

// publishLeaderDestination pushes the leader's own navigation target to the
// party when broadcast mode is on, so followers are pulled onto the same ride.
func (s *Syncer) publishLeaderDestination(ctx context.Context, p *party.Party) *party.Party {
	if !p.BroadcastMode {
		return p
	}
	snap := s.nav.Snapshot()

	switch {
	case snap.Destination != nil && !snap.PartySourced && !sameDestination(p, snap.Destination):
		updated, err := s.client.SetDestination(ctx, p.ID, snap.Destination.Lat, snap.Destination.Lng, snap.Destination.Name)
		if err != nil {
			log.Printf("party sync: publish destination: %v", err)
			return p
		}
		return updated
	case snap.Destination == nil && p.HasDestination():
		updated, err := s.client.ClearDestination(ctx, p.ID)
		if err != nil {
			log.Printf("party sync: clear destination: %v", err)
			return p
		}
		return updated
	}
	return p
}

// reconcileDestination aligns the navigator with the authoritative party
// destination: install a new or changed shared destination, and drop a
// party-sourced route when the destination disappears or the rider leaves the
// party.
func (s *Syncer) reconcileDestination(p *party.Party) {
	snap := s.nav.Snapshot()

	if p == nil || !p.HasDestination() {
		if snap.PartySourced {
			s.nav.ClearPartyDestination(clearedDestinationNotice)
		}
		return
	}

	if sameDestination(p, snap.Destination) {
		return
	}
	dest := routing.Destination{Lat: *p.DestLat, Lng: *p.DestLng}
	if p.DestName != nil {
		dest.Name = *p.DestName
	}
	s.nav.SetPartyDestination(dest)
}

func sameDestination(p *party.Party, dest *routing.Destination) bool {
	if dest == nil || !p.HasDestination() {
		return false
	}
	return math.Abs(*p.DestLat-dest.Lat) < 1e-9 && math.Abs(*p.DestLng-dest.Lng) < 1e-9
}
