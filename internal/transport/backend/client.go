package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain"
	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/domain/result"
	"github.com/kailas-cloud/searchgate/internal/metrics"
)

const maxErrorBody = 4 << 10

// Config holds the index backend settings.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout caps one HTTP exchange. The session build budget usually ends first.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the retrieval and ranking backend over HTTP/JSON.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a backend client.
func NewClient(cfg *Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    hc,
		logger:  logger,
	}
}

// RetrieveAndRank runs the query against the backend. Every failure wraps
// domain.ErrBackendUnavailable.
func (c *Client) RetrieveAndRank(ctx context.Context, p query.Params) (*result.Set, error) {
	body, err := json.Marshal(toRequest(p))
	if err != nil {
		return nil, fmt.Errorf("encode retrieve request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/retrieve", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build retrieve request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("retrieve: %w: %w", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	metrics.BackendRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieve status %d: %s: %w",
			resp.StatusCode, readDetail(resp.Body), domain.ErrBackendUnavailable)
	}

	var set retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode retrieve response: %w: %w", domain.ErrBackendUnavailable, err)
	}
	if set.Items == nil {
		set.Items = []result.Item{}
	}

	c.logger.Debug("Backend retrieve done",
		zap.Int("items", len(set.Items)),
		zap.Bool("partial", set.Partial),
		zap.Duration("duration", time.Since(start)),
	)
	return &set, nil
}

// HealthCheck verifies backend availability.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health: %w: %w", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d: %w", resp.StatusCode, domain.ErrBackendUnavailable)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// readDetail extracts the message of a JSON error body, or the raw text.
func readDetail(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
