// Package reddit is a thin client for Reddit's public JSON listings.
//
// It covers exactly what the collector needs: subreddit post listings,
// per-post comment trees, and user profiles. Responses are mapped straight
// into the model package; no authentication is required for the public
// endpoints.
package reddit

import (
	"context"
	"time"

	"resty.dev/v3"
)

const (
	defaultBaseURL   = "https://www.reddit.com"
	defaultUserAgent = "reddit-film-communities/0.1 (research collector)"

	// pageSize is the maximum listing page Reddit serves per request.
	pageSize = 100
)

// Config controls the HTTP client. Zero values fall back to defaults.
type Config struct {
	// BaseURL overrides the Reddit endpoint, mainly for tests.
	BaseURL string

	// UserAgent identifies the collector. Reddit throttles generic agents
	// aggressively, so always send a descriptive one.
	UserAgent string
}

// Client talks to the public Reddit JSON API.
type Client struct {
	client  *resty.Client
	baseURL string
}

// NewClient creates a client. A nil config uses the defaults.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	client := resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         10 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	})
	client.SetHeader("User-Agent", userAgent)

	return &Client{
		client:  client,
		baseURL: baseURL,
	}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.client.R().WithContext(ctx)
}
