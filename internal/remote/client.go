// Package remote is the client for the system of record that owns sessions,
// devices and alerts. This core is a read model over it: all fetches are
// plain reads, all mutations are intent calls that the remote may have
// already applied (repeating a terminate on a terminated session is not an
// error).
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/guardview/guardview/internal/model"
)

// Config holds the remote API client configuration.
type Config struct {
	// BaseURL is the root URL of the remote security API. The "/api/v1"
	// suffix is appended automatically if missing.
	BaseURL string

	// HTTPClient is an optional custom HTTP client. If nil, a default
	// client with a 10s timeout is used.
	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if !strings.HasSuffix(c.BaseURL, "/api/v1") {
		c.BaseURL = c.BaseURL + "/api/v1"
	}
}

// Client calls the remote security API.
type Client struct {
	cfg Config
}

// NewClient creates a new remote API client.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

// DashboardSnapshot is the remote-owned part of the dashboard: the
// recommendation list and review schedule. Counts and scores are always
// derived locally.
type DashboardSnapshot struct {
	Recommendations    []model.Recommendation `json:"recommendations"`
	LastSecurityReview *time.Time             `json:"lastSecurityReview,omitempty"`
	NextSecurityReview *time.Time             `json:"nextSecurityReview,omitempty"`
}

// FetchSessions retrieves all sessions of the current user.
func (c *Client) FetchSessions(ctx context.Context) ([]model.Session, error) {
	var out []model.Session
	if err := c.get(ctx, "/security/sessions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchDevices retrieves all registered devices.
func (c *Client) FetchDevices(ctx context.Context) ([]model.Device, error) {
	var out []model.Device
	if err := c.get(ctx, "/security/devices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchAlerts retrieves all security alerts.
func (c *Client) FetchAlerts(ctx context.Context) ([]model.SecurityAlert, error) {
	var out []model.SecurityAlert
	if err := c.get(ctx, "/security/alerts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchDashboard retrieves the remote dashboard snapshot.
func (c *Client) FetchDashboard(ctx context.Context) (*DashboardSnapshot, error) {
	var out DashboardSnapshot
	if err := c.get(ctx, "/security/dashboard", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TerminateSession ends a session, optionally recording a reason.
func (c *Client) TerminateSession(ctx context.Context, id, reason string) error {
	var body interface{}
	if reason != "" {
		body = map[string]string{"reason": reason}
	}
	return c.post(ctx, "/security/sessions/"+id+"/terminate", body)
}

// TrustSession marks a session trusted or untrusted.
func (c *Client) TrustSession(ctx context.Context, id string, trusted bool) error {
	return c.post(ctx, "/security/sessions/"+id+"/trust", map[string]bool{"trusted": trusted})
}

// TrustDevice marks a device trusted or untrusted.
func (c *Client) TrustDevice(ctx context.Context, id string, trusted bool) error {
	return c.post(ctx, "/security/devices/"+id+"/trust", map[string]bool{"trusted": trusted})
}

// RemoveDevice deletes a device registration.
func (c *Client) RemoveDevice(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/security/devices/"+id, nil, nil)
}

// MarkAlertRead marks an alert as read.
func (c *Client) MarkAlertRead(ctx context.Context, id string) error {
	return c.post(ctx, "/security/alerts/"+id+"/read", nil)
}

// ResolveAlert resolves an alert, optionally with a note.
func (c *Client) ResolveAlert(ctx context.Context, id, note string) error {
	var body interface{}
	if note != "" {
		body = map[string]string{"note": note}
	}
	return c.post(ctx, "/security/alerts/"+id+"/resolve", body)
}

// DismissAlert dismisses an alert.
func (c *Client) DismissAlert(ctx context.Context, id string) error {
	return c.post(ctx, "/security/alerts/"+id+"/dismiss", nil)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("remote: failed to marshal request: %w", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("remote: failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return &TransientError{Err: parseAPIError(resp.StatusCode, body)}
	case resp.StatusCode >= 400:
		return parseAPIError(resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("remote: failed to parse response: %w", err)
		}
	}
	return nil
}
