package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/clock"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/lifecycle"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/registry"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/room"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/scheduler"
)

type fakeService struct {
	mu   sync.Mutex
	fail error
}

func (f *fakeService) UpdateStatus(ctx context.Context, roomID string, status room.Status, until *time.Time) (room.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return room.Room{}, f.fail
	}
	return room.Room{ID: roomID, Status: status, TransientUntil: until}, nil
}

func (f *fakeService) ListRooms(ctx context.Context) ([]room.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry, *fakeService, *clock.Fake) {
	t.Helper()

	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := &fakeService{}
	reg := registry.New()
	sched := scheduler.New(clk)
	ctrl := lifecycle.New(svc, reg, sched, nil, nil, clk)

	s := NewServer("127.0.0.1", 0, ctrl, reg, nil)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)

	return ts, reg, svc, clk
}

func postStatus(t *testing.T, ts *httptest.Server, roomID string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+"/rooms/"+roomID+"/status", "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestStatusChange(t *testing.T) {
	ts, reg, _, clk := newTestServer(t)
	reg.Put(room.Room{ID: "r1", Status: room.StatusAvailable})

	until := clk.Now().Add(30 * time.Minute)
	resp := postStatus(t, ts, "r1", map[string]any{"status": "Cleaning", "until": until})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200", resp.StatusCode)
	}

	var got room.Room
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Status != room.StatusCleaning || got.TransientUntil == nil {
		t.Errorf("response room = %+v", got)
	}
}

func TestStatusChangeErrors(t *testing.T) {
	ts, reg, svc, clk := newTestServer(t)
	until := clk.Now().Add(time.Hour)
	reg.Put(room.Room{ID: "avail", Status: room.StatusAvailable})
	reg.Put(room.Room{ID: "maint", Status: room.StatusMaintenance, TransientUntil: &until})

	tests := []struct {
		name     string
		roomID   string
		body     map[string]any
		fail     error
		wantCode int
	}{
		{
			name:     "unknown_room",
			roomID:   "ghost",
			body:     map[string]any{"status": "Booked"},
			wantCode: http.StatusNotFound,
		},
		{
			name:     "invalid_transition",
			roomID:   "maint",
			body:     map[string]any{"status": "Cleaning", "until": until},
			wantCode: http.StatusConflict,
		},
		{
			name:     "schedule_in_past",
			roomID:   "avail",
			body:     map[string]any{"status": "Cleaning", "until": clk.Now().Add(-time.Minute)},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "unknown_status",
			roomID:   "avail",
			body:     map[string]any{"status": "Occupied"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "persistence_failure",
			roomID:   "avail",
			body:     map[string]any{"status": "Booked"},
			fail:     fmt.Errorf("upstream down"),
			wantCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.mu.Lock()
			svc.fail = tt.fail
			svc.mu.Unlock()

			resp := postStatus(t, ts, tt.roomID, tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.wantCode)
			}

			var payload map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				t.Fatal(err)
			}
			if payload["message"] == "" {
				t.Error("error responses must carry a message")
			}
		})
	}
}

func TestListAndGetRooms(t *testing.T) {
	ts, reg, _, _ := newTestServer(t)
	reg.Put(room.Room{ID: "r2", Status: room.StatusBooked})
	reg.Put(room.Room{ID: "r1", Status: room.StatusAvailable})

	resp, err := http.Get(ts.URL + "/rooms")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var rooms []room.Room
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 2 || rooms[0].ID != "r1" {
		t.Errorf("unexpected list: %+v", rooms)
	}

	resp, err = http.Get(ts.URL + "/rooms/r2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /rooms/r2 = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/rooms/ghost")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /rooms/ghost = %d, want 404", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}
