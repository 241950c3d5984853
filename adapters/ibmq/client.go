// Package ibmq talks to the hosted quantum runtime over its REST API.
// It implements the campaign's service, optimizer and executor
// collaborators against real hardware backends.
package ibmq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"qparity/internal/campaign"
	"qparity/internal/circuit"
	"qparity/internal/config"
	"qparity/internal/logging"
)

// ErrNoBackend is returned when no operational hardware backend is
// available to the account.
var ErrNoBackend = errors.New("no operational backend available")

// Config holds runtime API connection settings. Token and Instance come
// from the environment or the config file; the client refuses to start
// without a token.
type Config struct {
	BaseURL      string // e.g. https://quantum.example.com/runtime
	Token        string // bearer token
	Instance     string // account instance identifier
	PollInterval time.Duration
}

// Client is a runtime API client. HTTPClient may be replaced for tests.
type Client struct {
	HTTPClient *http.Client
	Config     Config

	log *slog.Logger
}

// NewClient validates the configuration and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("missing runtime API token: set %s or the token field in the config file", config.EnvToken)
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("missing runtime API base URL")
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Client{
		HTTPClient: http.DefaultClient,
		Config:     cfg,
		log:        logging.New("ibmq"),
	}, nil
}

// Connect verifies the credentials with a backend listing. A failure
// here is fatal to the campaign.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.listBackends(ctx); err != nil {
		return fmt.Errorf("connect to runtime service: %w", err)
	}
	return nil
}

type backendInfo struct {
	Name        string `json:"name"`
	Operational bool   `json:"operational"`
	PendingJobs int    `json:"pending_jobs"`
	Simulator   bool   `json:"simulator"`
}

// Backend is one hardware device as reported by the service.
type Backend struct {
	name    string
	pending int
}

func (b Backend) Name() string { return b.name }

// PendingJobs reports the queue depth at selection time.
func (b Backend) PendingJobs() int { return b.pending }

// SelectBackend walks the priority list and accepts the first
// operational device with a queue shorter than maxPending. When no
// preferred device qualifies it falls back to the least busy
// operational non-simulator.
func (c *Client) SelectBackend(ctx context.Context, priority []string, maxPending int) (campaign.Backend, error) {
	infos, err := c.listBackends(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]backendInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	for _, name := range priority {
		info, ok := byName[name]
		if !ok {
			continue
		}
		if !info.Operational {
			c.log.Info("skipping backend", "name", name, "reason", "not operational")
			continue
		}
		if info.PendingJobs >= maxPending {
			c.log.Info("skipping backend", "name", name, "pending", info.PendingJobs)
			continue
		}
		c.log.Info("selected backend", "name", name, "pending", info.PendingJobs)
		return Backend{name: info.Name, pending: info.PendingJobs}, nil
	}

	// Least busy operational hardware device.
	var best *backendInfo
	for i := range infos {
		info := &infos[i]
		if !info.Operational || info.Simulator {
			continue
		}
		if best == nil || info.PendingJobs < best.PendingJobs {
			best = info
		}
	}
	if best == nil {
		return nil, ErrNoBackend
	}
	c.log.Info("selected least busy backend", "name", best.Name, "pending", best.PendingJobs)
	return Backend{name: best.Name, pending: best.PendingJobs}, nil
}

// ListBackends returns the raw device listing for display.
func (c *Client) ListBackends(ctx context.Context) ([]BackendStatus, error) {
	infos, err := c.listBackends(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BackendStatus, 0, len(infos))
	for _, info := range infos {
		out = append(out, BackendStatus(info))
	}
	return out, nil
}

// BackendStatus is one row of the device listing.
type BackendStatus struct {
	Name        string
	Operational bool
	PendingJobs int
	Simulator   bool
}

func (c *Client) listBackends(ctx context.Context) ([]backendInfo, error) {
	var infos []backendInfo
	if err := c.get(ctx, "/v1/backends", &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// Optimize asks the service to transpile the program for the target
// backend at the given optimization level.
func (c *Client) Optimize(ctx context.Context, p *circuit.Program, backend campaign.Backend, level int) (campaign.PhysicalProgram, error) {
	reqBody := map[string]any{
		"qasm":               p.QASM(),
		"backend":            backend.Name(),
		"optimization_level": level,
	}
	var resp struct {
		QASM string `json:"qasm"`
	}
	if err := c.post(ctx, "/v1/transpile", reqBody, &resp); err != nil {
		return campaign.PhysicalProgram{}, fmt.Errorf("transpile for %s: %w", backend.Name(), err)
	}
	return campaign.PhysicalProgram{
		QASM:    resp.QASM,
		Width:   p.Width,
		Backend: backend.Name(),
		Source:  p,
	}, nil
}

// Submit enqueues a physical program and returns a handle to the queued
// job.
func (c *Client) Submit(ctx context.Context, p campaign.PhysicalProgram, shots int) (campaign.Job, error) {
	reqBody := map[string]any{
		"backend": p.Backend,
		"qasm":    p.QASM,
		"shots":   shots,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/jobs", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, errors.New("service returned an empty job id")
	}
	return &Job{client: c, id: resp.ID}, nil
}

// Retrieve reattaches to a previously submitted job by identifier.
func (c *Client) Retrieve(ctx context.Context, jobID string) (campaign.Job, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.get(ctx, "/v1/jobs/"+jobID, &resp); err != nil {
		return nil, fmt.Errorf("retrieve job %s: %w", jobID, err)
	}
	return &Job{client: c, id: jobID}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.Config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Config.Token)
	if c.Config.Instance != "" {
		req.Header.Set("Service-CRN", c.Config.Instance)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("authentication failed (%s): check %s and %s",
			resp.Status, config.EnvToken, config.EnvInstance)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, string(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
