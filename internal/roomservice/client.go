// Package roomservice is the HTTP client for the external Room Service
// API, the system of record for room status.
package roomservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/room"
)

// Client talks to the Room Service REST API. Outbound calls are rate
// limited so a resync burst cannot flood the backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Room Service client.
func NewClient(baseURL, token string, timeout time.Duration, rateLimitRPS float64) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if rateLimitRPS == 0 {
		rateLimitRPS = 10.0
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rateLimitRPS), int(rateLimitRPS)),
	}
}

// statusUpdate is the PUT /rooms/{id}/status body. The endpoint is
// idempotent for identical (status, transientUntil) pairs.
type statusUpdate struct {
	Status         room.Status `json:"status"`
	TransientUntil *time.Time  `json:"transientUntil,omitempty"`
}

// errorPayload is the error body the Room Service returns.
type errorPayload struct {
	Message string `json:"message"`
}

// UpdateStatus persists a new (status, transientUntil) pair for a room and
// returns the updated record.
func (c *Client) UpdateStatus(ctx context.Context, roomID string, status room.Status, until *time.Time) (room.Room, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return room.Room{}, err
	}

	body, err := json.Marshal(statusUpdate{Status: status, TransientUntil: until})
	if err != nil {
		return room.Room{}, fmt.Errorf("failed to encode status update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rooms/%s/status", c.baseURL, url.PathEscape(roomID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return room.Room{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return room.Room{}, fmt.Errorf("room service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return room.Room{}, c.decodeError(resp)
	}

	var updated room.Room
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return room.Room{}, fmt.Errorf("failed to decode room record: %w", err)
	}

	log.Debug().
		Str("room_id", roomID).
		Str("status", string(status)).
		Msg("Room status persisted")
	return updated, nil
}

// ListRooms fetches the full room set, used at process start and by
// resync.
func (c *Client) ListRooms(ctx context.Context) ([]room.Room, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rooms", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("room service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	var rooms []room.Room
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("failed to decode room list: %w", err)
	}

	log.Debug().Int("rooms", len(rooms)).Msg("Fetched room list")
	return rooms, nil
}

// Close closes idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return fmt.Errorf("room service: %s (HTTP %d)", payload.Message, resp.StatusCode)
	}
	return fmt.Errorf("room service: HTTP %d", resp.StatusCode)
}
