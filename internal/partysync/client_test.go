package partysync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/motocraft35/moto-asistan-sub000/internal/party"
)

func TestClientCurrentPartyNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parties/" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("null"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	p, err := c.CurrentParty(context.Background())
	if err != nil || p != nil {
		t.Fatalf("expected nil party, got %+v err %v", p, err)
	}
}

func TestClientCurrentParty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("missing bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"party-1","name":"Ride","leader_id":"rider-1","invite_code":"AB23CD"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-1", time.Second)
	p, err := c.CurrentParty(context.Background())
	if err != nil {
		t.Fatalf("current party: %v", err)
	}
	if p == nil || p.ID != "party-1" || p.LeaderID != "rider-1" {
		t.Fatalf("unexpected party: %+v", p)
	}
}

func TestClientAuthorityUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	if _, err := c.CurrentParty(context.Background()); !errors.Is(err, ErrAuthorityUnavailable) {
		t.Fatalf("expected ErrAuthorityUnavailable, got %v", err)
	}

	srv.Close()
	if _, err := c.CurrentParty(context.Background()); !errors.Is(err, ErrAuthorityUnavailable) {
		t.Fatalf("expected ErrAuthorityUnavailable on connection failure, got %v", err)
	}
}

func TestClientPermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	if _, err := c.SetDestination(context.Background(), "party-1", 39.07, 26.88, ""); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestClientMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	if _, err := c.CurrentParty(context.Background()); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestClientWhoAmI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/jwt/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id":"rider-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second)
	userID, err := c.WhoAmI(context.Background())
	if err != nil || userID != "rider-1" {
		t.Fatalf("whoami: %q err %v", userID, err)
	}
}

func TestClientJoinAndHeartbeat(t *testing.T) {
	var joined, beat bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/parties/join":
			joined = true
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"party-1","invite_code":"AB23CD"}`))
		case "/parties/heartbeat":
			beat = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	p, err := c.Join(context.Background(), "AB23CD", "Kemal")
	if err != nil || p.ID != "party-1" {
		t.Fatalf("join: %+v err %v", p, err)
	}
	if err := c.Heartbeat(context.Background(), party.HeartbeatRequest{Lat: 39.07, Lng: 26.88}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if !joined || !beat {
		t.Fatalf("expected both endpoints hit")
	}
}
