// Package hotels proxies availability searches to the Hotelbeds booking API
// and reshapes the answer into the listing format the site renders.
package hotels

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Hotelbeds test environment.
	DefaultBaseURL = "https://api.test.hotelbeds.com/hotel-api/1.0"
	// DefaultTimeout bounds one upstream round trip.
	DefaultTimeout = 10 * time.Second

	maxUpstreamBody = 8 << 20
)

// ErrMissingCredentials is returned by NewClient without an API key or secret.
var ErrMissingCredentials = errors.New("hotels: api key and secret are required")

// UpstreamError carries a non-2xx answer from Hotelbeds.
type UpstreamError struct {
	Status int
	Body   json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("hotels: upstream returned status %d", e.Status)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Secret  string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client searches hotel availability.
type Client struct {
	baseURL string
	key     string
	secret  string
	http    *http.Client
	now     func() time.Time
}

// NewClient builds a Client. Empty BaseURL and Timeout select the defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.Secret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.APIKey,
		secret:  cfg.Secret,
		http:    hc,
		now:     time.Now,
	}, nil
}

// Signature returns the X-Signature value for the given instant:
// hex(sha256(key + secret + unixSeconds)).
func Signature(key, secret string, at time.Time) string {
	sum := sha256.Sum256([]byte(key + secret + strconv.FormatInt(at.Unix(), 10)))
	return hex.EncodeToString(sum[:])
}

// Search validates req, queries Hotelbeds and returns the reshaped hotels.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Hotel, error) {
	req, err := req.normalized()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req.upstream())
	if err != nil {
		return nil, fmt.Errorf("hotels: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hotels", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hotels: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Api-key", c.key)
	httpReq.Header.Set("X-Signature", Signature(c.key, c.secret, c.now()))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("hotels: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("hotels: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstreamErr := &UpstreamError{Status: resp.StatusCode}
		if json.Valid(raw) {
			upstreamErr.Body = raw
		}
		return nil, upstreamErr
	}

	var decoded availabilityResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("hotels: decode response: %w", err)
	}
	return decoded.reshape(), nil
}
