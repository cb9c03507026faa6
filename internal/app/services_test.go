package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/config"
)

func testConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.RoomService.BaseURL = baseURL
	cfg.RoomService.Timeout = config.Duration(time.Second)
	cfg.RoomService.RateLimitRPS = 100
	cfg.Database.Path = ":memory:"
	cfg.API.Host = "127.0.0.1"
	cfg.API.Port = 0 // ephemeral
	cfg.Ledger.CleanupInterval = config.Duration(time.Hour)
	cfg.Ledger.RetentionDays = 1
	cfg.ShutdownTimeout = config.Duration(time.Second)
	return cfg
}

func TestStartSkipsRehydrationWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected room service call: %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.SkipRehydrate = true

	s, err := NewServices(cfg)
	if err != nil {
		t.Fatalf("NewServices failed: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.Registry.Len() != 0 {
		t.Errorf("registry has %d rooms, want empty", s.Registry.Len())
	}
}

func TestStartRehydratesByDefault(t *testing.T) {
	var listCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/rooms" {
			atomic.AddInt32(&listCalls, 1)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"id":"r1","status":"Available"}]`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s, err := NewServices(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewServices failed: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := atomic.LoadInt32(&listCalls); got != 1 {
		t.Errorf("room list fetched %d times, want 1", got)
	}
	if s.Registry.Len() != 1 {
		t.Errorf("registry has %d rooms, want 1", s.Registry.Len())
	}
}
