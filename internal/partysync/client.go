package partysync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/motocraft35/moto-asistan-sub000/internal/party"
)

var (
	// ErrAuthorityUnavailable covers network failures and 5xx responses. The
	// caller keeps its last-known party state.
	ErrAuthorityUnavailable = errors.New("party authority unavailable")
	// ErrPermissionDenied maps 401/403 responses, e.g. a non-leader patch.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrMalformedResponse means the authority answered with undecodable JSON.
	ErrMalformedResponse = errors.New("malformed authority response")
)

// Client talks to the party authority over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// CurrentParty returns the rider's party, or nil when they are not in one.
func (c *Client) CurrentParty(ctx context.Context) (*party.Party, error) {
	var p *party.Party
	if err := c.do(ctx, http.MethodGet, "/parties/", nil, &p); err != nil {
		return nil, err
	}
	if p != nil && p.ID == "" {
		return nil, nil
	}
	return p, nil
}

// WhoAmI resolves the rider's user id from the bearer token.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	var out struct {
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/jwt/verify", nil, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

func (c *Client) Join(ctx context.Context, inviteCode, displayName string) (*party.Party, error) {
	req := party.JoinRequest{InviteCode: inviteCode, DisplayName: displayName}
	var p party.Party
	if err := c.do(ctx, http.MethodPost, "/parties/join", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Leave(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/parties/leave", nil, nil)
}

func (c *Client) Heartbeat(ctx context.Context, req party.HeartbeatRequest) error {
	return c.do(ctx, http.MethodPost, "/parties/heartbeat", req, nil)
}

// SetDestination publishes the shared destination. Leader only.
func (c *Client) SetDestination(ctx context.Context, partyID string, lat, lng float64, name string) (*party.Party, error) {
	req := party.PatchRequest{PartyID: partyID, DestLat: &lat, DestLng: &lng}
	if name != "" {
		req.DestName = &name
	}
	var p party.Party
	if err := c.do(ctx, http.MethodPatch, "/parties/", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ClearDestination removes the shared destination. Leader only.
func (c *Client) ClearDestination(ctx context.Context, partyID string) (*party.Party, error) {
	req := party.PatchRequest{PartyID: partyID, ClearDestination: true}
	var p party.Party
	if err := c.do(ctx, http.MethodPatch, "/parties/", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrAuthorityUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrPermissionDenied, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("authority rejected %s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
