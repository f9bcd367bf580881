package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dan9191/loan-ledger/internal/config"
	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/Dan9191/loan-ledger/internal/repository"
	"github.com/sirupsen/logrus"
)

// ErrNotJSON is returned when the store answers with something other than JSON
var ErrNotJSON = errors.New("store did not return JSON")

// Client talks to the storage server over HTTP
type Client struct {
	baseURL    string
	client     *http.Client
	retries    int
	retryDelay time.Duration
	log        *logrus.Logger
}

var _ repository.Store = (*Client)(nil)

// NewClient initializes a new store client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.StoreURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retries:    cfg.FetchRetries,
		retryDelay: cfg.FetchRetryDelay,
		log:        log,
	}
}

// Snapshot fetches the whole store, retrying transient failures
func (c *Client) Snapshot(ctx context.Context) (models.Snapshot, error) {
	var lastErr error
	attempts := max(1, c.retries)
	for attempt := 1; attempt <= attempts; attempt++ {
		snap, err := c.fetchSnapshot(ctx)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		c.log.Warnf("Snapshot attempt %d/%d failed: %v", attempt, attempts, err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return models.Snapshot{}, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
	return models.Snapshot{}, fmt.Errorf("failed to fetch snapshot: %w", lastErr)
}

func (c *Client) fetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/data", nil)
	if err != nil {
		return snap, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return snap, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return snap, ErrNotJSON
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound && method == http.MethodDelete:
		return repository.ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s: unexpected status code: %d", method, path, resp.StatusCode)
	}
	c.log.Debugf("%s %s ok", method, path)
	return nil
}

func (c *Client) SaveUsers(ctx context.Context, users []models.User) error {
	return c.send(ctx, http.MethodPost, "/api/users", users)
}

func (c *Client) SaveLoans(ctx context.Context, loans []models.LoanRecord) error {
	return c.send(ctx, http.MethodPost, "/api/loans", loans)
}

func (c *Client) SaveNotifications(ctx context.Context, notifications []models.Notification) error {
	return c.send(ctx, http.MethodPost, "/api/notifications", notifications)
}

// SaveConfig posts {"<key>": value} to /api/<key>
func (c *Client) SaveConfig(ctx context.Context, key models.ConfigKey, value int64) error {
	return c.send(ctx, http.MethodPost, "/api/"+string(key), map[string]int64{string(key): value})
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), nil)
}
