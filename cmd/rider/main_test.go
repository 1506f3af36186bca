package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/motocraft35/moto-asistan-sub000/internal/config"
)

func testAuthority(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/jwt/verify":
			_, _ = w.Write([]byte(`{"user_id":"rider-1"}`))
		case "/parties/":
			_, _ = w.Write([]byte("null"))
		case "/parties/heartbeat":
			w.WriteHeader(http.StatusNoContent)
		case "/sos/":
			_, _ = w.Write([]byte("[]"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(authorityURL string) config.Config {
	return config.Config{
		OSRMBaseURL:     "http://localhost:1",
		OSRMProfile:     "driving",
		AuthorityURL:    authorityURL,
		RouteTimeoutSec: 1,
		PartyPollSec:    1,
		SOSPollSec:      1,
	}
}

func TestRunHandlesSignal(t *testing.T) {
	authority := testAuthority(t)
	signals := make(chan os.Signal, 1)

	go func() {
		time.Sleep(50 * time.Millisecond)
		signals <- syscall.SIGINT
	}()

	samples := strings.NewReader(`{"lat":39.07,"lng":26.88}` + "\n")
	if err := Run(context.Background(), testConfig(authority.URL), samples, signals); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestRunContextCancel(t *testing.T) {
	authority := testAuthority(t)
	signals := make(chan os.Signal, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if err := Run(ctx, testConfig(authority.URL), strings.NewReader(""), signals); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
}

func TestRealMainHandlesErrors(t *testing.T) {
	calledNotify := false
	calledRun := false
	deps := mainDeps{
		loadConfig: func() config.Config { return config.Config{} },
		samples:    strings.NewReader(""),
		notify: func(ch chan<- os.Signal, _ ...os.Signal) {
			calledNotify = true
			close(ch)
		},
		run: func(context.Context, config.Config, io.Reader, <-chan os.Signal) error {
			calledRun = true
			return context.Canceled
		},
	}

	realMain(deps)
	if !calledNotify {
		t.Fatalf("expected notify to be called")
	}
	if !calledRun {
		t.Fatalf("expected run to be called")
	}
}

func TestDefaultDeps(t *testing.T) {
	deps := defaultDeps()
	if deps.loadConfig == nil || deps.samples == nil || deps.notify == nil || deps.run == nil {
		t.Fatalf("expected default deps to be set")
	}
}

func TestMainUsesOverrides(t *testing.T) {
	oldProvider := mainDepsProvider
	oldRunner := mainRunner
	defer func() {
		mainDepsProvider = oldProvider
		mainRunner = oldRunner
	}()

	called := false
	mainDepsProvider = func() mainDeps { return mainDeps{} }
	mainRunner = func(mainDeps) { called = true }

	main()
	if !called {
		t.Fatalf("expected main runner to be called")
	}
}
