package sos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fixedPosition struct{ pos Position }

func (f fixedPosition) Last() *Position { return &f.pos }

type captureNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (c *captureNotifier) Notify(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
}

func (c *captureNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.texts)
}

type signalServer struct {
	mu      sync.Mutex
	signals []Signal
	fail    bool
}

func (s *signalServer) set(signals []Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = signals
}

func (s *signalServer) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *signalServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	_ = json.NewEncoder(w).Encode(s.signals)
}

func TestOverlayTracksActiveSignals(t *testing.T) {
	authority := &signalServer{}
	srv := httptest.NewServer(authority)
	defer srv.Close()

	notifier := &captureNotifier{}
	overlay := NewOverlay(srv.URL, "", time.Second, fixedPosition{Position{Lat: 39.07, Lng: 26.88}}, notifier)

	sig := Signal{ID: "sig-1", UserID: "rider-2", Type: TypeMechanical, Lat: 39.075, Lng: 26.885, Status: StatusActive, RaisedAt: time.Now()}
	authority.set([]Signal{sig})
	overlay.poll(context.Background())

	if active := overlay.Active(); len(active) != 1 || active[0].ID != "sig-1" {
		t.Fatalf("expected cached signal, got %+v", active)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one nearby notification, got %d", notifier.count())
	}

	// a second poll with the same signal must not re-notify
	overlay.poll(context.Background())
	if notifier.count() != 1 {
		t.Fatalf("duplicate notification for known signal")
	}

	// resolved upstream: the signal drops out of the list and out of the cache
	authority.set(nil)
	overlay.poll(context.Background())
	if active := overlay.Active(); len(active) != 0 {
		t.Fatalf("expected empty overlay after resolve, got %+v", active)
	}
}

func TestOverlayKeepsCacheOnAuthorityError(t *testing.T) {
	authority := &signalServer{}
	srv := httptest.NewServer(authority)
	defer srv.Close()

	overlay := NewOverlay(srv.URL, "", time.Second, nil, nil)

	authority.set([]Signal{{ID: "sig-1", UserID: "rider-2", Type: TypeMedical, Lat: 39.07, Lng: 26.88, Status: StatusActive, RaisedAt: time.Now()}})
	overlay.poll(context.Background())
	if len(overlay.Active()) != 1 {
		t.Fatalf("expected cached signal")
	}

	authority.setFail(true)
	overlay.poll(context.Background())
	if len(overlay.Active()) != 1 {
		t.Fatalf("authority error must not drop the cached view")
	}
}

func TestOverlaySkipsFarSignals(t *testing.T) {
	authority := &signalServer{}
	srv := httptest.NewServer(authority)
	defer srv.Close()

	notifier := &captureNotifier{}
	overlay := NewOverlay(srv.URL, "", time.Second, fixedPosition{Position{Lat: 39.07, Lng: 26.88}}, notifier)

	// Ankara is far outside the notification radius
	authority.set([]Signal{{ID: "sig-far", UserID: "rider-2", Type: TypeAccident, Lat: 39.93, Lng: 32.86, Status: StatusActive, RaisedAt: time.Now()}})
	overlay.poll(context.Background())

	if len(overlay.Active()) != 1 {
		t.Fatalf("far signal still belongs on the overlay")
	}
	if notifier.count() != 0 {
		t.Fatalf("far signal must not notify")
	}
}
