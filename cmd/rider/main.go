package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/motocraft35/moto-asistan-sub000/internal/config"
	"github.com/motocraft35/moto-asistan-sub000/internal/location"
	"github.com/motocraft35/moto-asistan-sub000/internal/navigation"
	"github.com/motocraft35/moto-asistan-sub000/internal/partysync"
	"github.com/motocraft35/moto-asistan-sub000/internal/routing"
	"github.com/motocraft35/moto-asistan-sub000/internal/sos"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig func() config.Config
	samples    io.Reader
	notify     func(chan<- os.Signal, ...os.Signal)
	run        func(context.Context, config.Config, io.Reader, <-chan os.Signal) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig: config.Load,
		samples:    os.Stdin,
		notify:     signal.Notify,
		run:        Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, deps.samples, signals); err != nil {
		log.Printf("rider engine exited with error: %v", err)
	}
}

// logAnnouncer renders guidance as log lines; a device build would route these
// to text-to-speech.
type logAnnouncer struct{}

func (logAnnouncer) Announce(text string) { log.Printf("GUIDANCE: %s", text) }

type logNotifier struct{}

func (logNotifier) Notify(text string) { log.Printf("NOTICE: %s", text) }

// trackerPositions adapts the tracker's fix to the SOS overlay.
type trackerPositions struct{ tracker *location.Tracker }

func (t trackerPositions) Last() *sos.Position {
	s := t.tracker.Last()
	if s == nil {
		return nil
	}
	return &sos.Position{Lat: s.Lat, Lng: s.Lng}
}

// Run wires the rider-side engine together and blocks until a termination
// signal or ctx cancellation.
func Run(ctx context.Context, cfg config.Config, samples io.Reader, signals <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	routeTimeout := time.Duration(cfg.RouteTimeoutSec) * time.Second
	provider := routing.NewClient(cfg.OSRMBaseURL, cfg.OSRMProfile, routeTimeout)
	navigator := navigation.New(provider, routeTimeout, logAnnouncer{}, logNotifier{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		navigator.Run(ctx)
	}()

	tracker := location.NewTracker(location.NewReaderSource(samples))

	var firstFix sync.Once
	err := tracker.Subscribe(ctx, func(s location.Sample) {
		navigator.HandleSample(s)
		if cfg.DestLat != 0 || cfg.DestLng != 0 {
			firstFix.Do(func() {
				navigator.NavigateTo(routing.Destination{Lat: cfg.DestLat, Lng: cfg.DestLng, Name: cfg.DestName}, false)
			})
		}
	})
	if err != nil {
		return err
	}
	defer tracker.Unsubscribe()

	authority := partysync.NewClient(cfg.AuthorityURL, cfg.AuthorityToken, routeTimeout)

	userID, err := authority.WhoAmI(ctx)
	if err != nil {
		log.Printf("could not resolve rider identity, party sync degraded: %v", err)
	}

	if cfg.InviteCode != "" {
		if _, err := authority.Join(ctx, cfg.InviteCode, cfg.DisplayName); err != nil {
			log.Printf("party join failed: %v", err)
		}
	}

	syncer := partysync.NewSyncer(authority, navigator, tracker, userID, time.Duration(cfg.PartyPollSec)*time.Second)
	wg.Add(1)
	go func() {
		defer wg.Done()
		syncer.Run(ctx)
	}()

	overlay := sos.NewOverlay(cfg.AuthorityURL, cfg.AuthorityToken, time.Duration(cfg.SOSPollSec)*time.Second, trackerPositions{tracker}, logNotifier{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		overlay.Run(ctx)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	}

	cancel()
	wg.Wait()
	return nil
}
