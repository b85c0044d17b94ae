// Package tasty is a small client for the brokerage REST API: sessions,
// positions, balances, futures master data and dxLink quote tokens.
package tasty

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"fxrisk/config"
	"fxrisk/logger"
)

// ErrUnexpectedStatus is wrapped by every error caused by a response status
// other than the one an endpoint documents.
var ErrUnexpectedStatus = errors.New("tasty: unexpected status")

// ErrNoSession is returned by authenticated calls made before Login.
var ErrNoSession = errors.New("tasty: no session")

// userAgentTransport wraps an existing RoundTripper and sets a custom
// User-Agent header on all outgoing requests.
type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.agent != "" {
		req.Header.Set("User-Agent", t.agent)
	}
	if t.base != nil {
		return t.base.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// Client talks to the REST API. Requests are paced by a token bucket and
// carry the session token obtained by Login.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Log

	mu    sync.RWMutex
	token string
}

func NewClient(cfg config.APIConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: userAgentTransport{agent: cfg.UserAgent},
			Timeout:   cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger(),
	}

	c.log.WithComponent("tasty").WithFields(logger.Fields{
		"base_url":            c.baseURL,
		"requests_per_second": rps,
		"timeout":             cfg.Timeout.String(),
	}).Info("rest client initialized")
	return c
}

// SessionToken returns the token of the current session, or "".
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// envelope is the {"data": ...} wrapper of every response.
type envelope[T any] struct {
	Data T `json:"data"`
}

type itemList[T any] struct {
	Items []T `json:"items"`
}

// do sends one request and decodes the data member of the response into
// out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, authed bool, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authed {
		token := c.SessionToken()
		if token == "" {
			return ErrNoSession
		}
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.WithComponent("tasty").WithFields(logger.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("unexpected response status")
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
