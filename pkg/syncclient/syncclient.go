// Package syncclient is an embeddable client for the pages sync API.
// Local edits queue in a persistent outbox and reconcile with the
// server on a fixed interval.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/haierkeys/holarchy-browser-service/pkg/fileurl"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Record is one queued local edit, in the server's change-record shape.
// ID may be a server id or a provisional string id for records created
// offline.
type Record struct {
	ID        any    `json:"id,omitempty"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content,omitempty"`
	Rev       int64  `json:"rev,omitempty"`
	Deleted   int64  `json:"deleted,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// Page is a record as the server returns it.
type Page struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Rev       int64  `json:"rev"`
	Deleted   int64  `json:"deleted"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type changesResponse struct {
	ServerTime string `json:"serverTime"`
	Changes    []Page `json:"changes"`
}

type pushResponse struct {
	OK         bool   `json:"ok"`
	ServerTime string `json:"serverTime"`
}

// Config configures a Client.
type Config struct {
	// BaseURL is the server root, e.g. http://localhost:9000.
	BaseURL string
	// StateFile persists the outbox and the pull low-water-mark.
	StateFile string
	// Interval between reconcile ticks. Default 10s.
	Interval time.Duration
	// OnRemoteChanges receives every page pulled from the server.
	OnRemoteChanges func([]Page)

	HTTPClient *http.Client
}

type clientState struct {
	Outbox   []Record `json:"outbox"`
	LastSync string   `json:"lastSync"`
}

// Client keeps the outbox and runs the reconcile loop.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger

	mu    sync.Mutex
	state clientState
}

// New loads persisted state from cfg.StateFile, starting empty when the
// file is absent or unreadable.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("syncclient: BaseURL is required")
	}
	if cfg.StateFile == "" {
		return nil, errors.New("syncclient: StateFile is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	c := &Client{cfg: cfg, http: httpClient, log: log}
	raw, err := os.ReadFile(cfg.StateFile)
	if err == nil {
		if jerr := json.Unmarshal(raw, &c.state); jerr != nil {
			log.Warn("sync state unreadable, starting fresh",
				zap.String("path", cfg.StateFile))
			c.state = clientState{}
		}
	}
	return c, nil
}

// caller holds c.mu
func (c *Client) saveLocked() error {
	raw, err := json.MarshalIndent(&c.state, "", "  ")
	if err != nil {
		return err
	}
	if err := fileurl.CreatePath(c.cfg.StateFile, os.FileMode(0755)); err != nil {
		return err
	}
	tmp := c.cfg.StateFile + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.cfg.StateFile)
}

// stampLayout is RFC 3339 with milliseconds, the resolution the server
// compares timestamps at.
const stampLayout = "2006-01-02T15:04:05.000Z07:00"

// Enqueue appends a local edit to the outbox and persists it.
func (c *Client) Enqueue(rec Record) error {
	if rec.UpdatedAt == "" {
		rec.UpdatedAt = time.Now().UTC().Format(stampLayout)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Outbox = append(c.state.Outbox, rec)
	return errors.Wrap(c.saveLocked(), "persist outbox")
}

// Pending reports the number of unconfirmed outbox entries.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.state.Outbox)
}

// LastSync returns the persisted pull low-water-mark.
func (c *Client) LastSync() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.LastSync
}

func (c *Client) push(ctx context.Context, batch []Record) (string, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/sync/changes", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("push rejected: %s: %s", resp.Status, raw)
	}
	var pr pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", err
	}
	return pr.ServerTime, nil
}

func (c *Client) pull(ctx context.Context, since string) (*changesResponse, error) {
	u := c.cfg.BaseURL + "/api/sync/changes"
	if since != "" {
		u += "?since=" + url.QueryEscape(since)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pull rejected: %s", resp.Status)
	}
	var cr changesResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, err
	}
	return &cr, nil
}

// Reconcile pushes the outbox, then pulls changes past the
// low-water-mark. Any failure leaves the outbox intact for the next
// tick; a re-push of already-applied records is harmless because their
// timestamps are no longer strictly newer.
func (c *Client) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	batch := make([]Record, len(c.state.Outbox))
	copy(batch, c.state.Outbox)
	since := c.state.LastSync
	c.mu.Unlock()

	if len(batch) > 0 {
		if _, err := c.push(ctx, batch); err != nil {
			c.log.Warn("outbox push failed, will retry", zap.Error(err))
			return err
		}
		c.mu.Lock()
		// Only drop what this push confirmed; edits queued meanwhile stay.
		c.state.Outbox = c.state.Outbox[len(batch):]
		if err := c.saveLocked(); err != nil {
			c.mu.Unlock()
			return errors.Wrap(err, "persist outbox")
		}
		c.mu.Unlock()
	}

	res, err := c.pull(ctx, since)
	if err != nil {
		c.log.Warn("incremental pull failed, will retry", zap.Error(err))
		return err
	}
	if c.cfg.OnRemoteChanges != nil && len(res.Changes) > 0 {
		c.cfg.OnRemoteChanges(res.Changes)
	}

	c.mu.Lock()
	c.state.LastSync = res.ServerTime
	err = c.saveLocked()
	c.mu.Unlock()
	return errors.Wrap(err, "persist low-water-mark")
}

// Run reconciles on the configured interval until ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = c.Reconcile(ctx)
		case <-ctx.Done():
			return
		}
	}
}
