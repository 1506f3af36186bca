package sos

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/motocraft35/moto-asistan-sub000/internal/shared/geo"

	"github.com/patrickmn/go-cache"
)

// nearbyRadiusM is how close an active signal must be to the rider before the
// overlay raises a notification for it.
const nearbyRadiusM = 5000.0

// Notifier receives rider-facing alerts about nearby signals.
type Notifier interface {
	Notify(text string)
}

// PositionSource supplies the rider's last known position.
type PositionSource interface {
	Last() *Position
}

// Position is the subset of a location fix the overlay needs.
type Position struct {
	Lat float64
	Lng float64
}

// Overlay mirrors the authority's active signals on the rider's device. Each
// poll refreshes the cache; entries carry a TTL of two poll intervals so a
// resolved or missing signal ages out even if a poll cycle fails.
type Overlay struct {
	baseURL  string
	token    string
	http     *http.Client
	interval time.Duration

	signals  *cache.Cache
	position PositionSource
	notifier Notifier
}

func NewOverlay(baseURL, token string, interval time.Duration, position PositionSource, notifier Notifier) *Overlay {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Overlay{
		baseURL:  baseURL,
		token:    token,
		http:     &http.Client{Timeout: interval},
		interval: interval,
		signals:  cache.New(2*interval, interval),
		position: position,
		notifier: notifier,
	}
}

// Run polls the authority until ctx is cancelled.
func (o *Overlay) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.poll(ctx)
		}
	}
}

// Active returns the cached signals, oldest first.
func (o *Overlay) Active() []Signal {
	items := o.signals.Items()
	signals := make([]Signal, 0, len(items))
	for _, item := range items {
		signals = append(signals, item.Object.(Signal))
	}
	sort.Slice(signals, func(i, j int) bool { return signals[i].RaisedAt.Before(signals[j].RaisedAt) })
	return signals
}

func (o *Overlay) poll(ctx context.Context) {
	signals, err := o.fetch(ctx)
	if err != nil {
		// keep the cached view; TTL expiry bounds how stale it can get
		log.Printf("sos overlay: %v", err)
		return
	}

	seen := map[string]struct{}{}
	for _, sig := range signals {
		seen[sig.ID] = struct{}{}
		if _, known := o.signals.Get(sig.ID); !known {
			o.notifyNearby(sig)
		}
		o.signals.SetDefault(sig.ID, sig)
	}
	for id := range o.signals.Items() {
		if _, ok := seen[id]; !ok {
			o.signals.Delete(id)
		}
	}
}

func (o *Overlay) fetch(ctx context.Context) ([]Signal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/sos/", nil)
	if err != nil {
		return nil, err
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authority unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authority returned status %d", resp.StatusCode)
	}

	var signals []Signal
	if err := json.NewDecoder(resp.Body).Decode(&signals); err != nil {
		return nil, fmt.Errorf("authority response malformed: %w", err)
	}
	return signals, nil
}

func (o *Overlay) notifyNearby(sig Signal) {
	if o.notifier == nil || o.position == nil {
		return
	}
	pos := o.position.Last()
	if pos == nil {
		return
	}
	d := geo.DistanceM(geo.Point{Lat: pos.Lat, Lng: pos.Lng}, geo.Point{Lat: sig.Lat, Lng: sig.Lng})
	if d > nearbyRadiusM {
		return
	}
	o.notifier.Notify(fmt.Sprintf("SOS nearby: %s signal %.1f km away", sig.Type, d/1000))
}
