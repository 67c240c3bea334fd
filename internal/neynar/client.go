package neynar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	baseURL   = "https://api.neynar.com/v2/farcaster/user/bulk"
	userAgent = "timbra-proofs/1.0"
)

// Sentinel errors.
var (
	// ErrRateLimited is returned when the API rate limit is exceeded after retries.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey is returned when the API key is rejected.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrUserNotFound is returned when no Farcaster user exists for a fid.
	ErrUserNotFound = errors.New("farcaster user not found")
)

// Client is a Neynar API client with caching and rate limiting.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string

	// In-memory cache keyed by fid. Identities are effectively immutable
	// for the lifetime of a process.
	cache   map[int64]User
	cacheMu sync.RWMutex
}

// NewClient creates a new Neynar API client from the provided configuration.
func NewClient(cfg *Config) *Client {
	return &Client{
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		cache:   make(map[int64]User),
	}
}

// GetUser fetches the Farcaster user for a fid. Results are cached in
// memory. Returns ErrUserNotFound if the fid is not registered.
func (c *Client) GetUser(ctx context.Context, fid int64) (*User, error) {
	// Check cache
	c.cacheMu.RLock()
	if cached, ok := c.cache[fid]; ok {
		c.cacheMu.RUnlock()
		return &cached, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{
		"fids": {strconv.FormatInt(fid, 10)},
	}

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetching user %d: %w", fid, err)
	}

	var resp bulkUsersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing user response: %w", err)
	}

	for _, user := range resp.Users {
		if user.Fid == fid {
			// Cache result
			c.cacheMu.Lock()
			c.cache[fid] = user
			c.cacheMu.Unlock()

			u := user
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// doRequest performs an HTTP GET request with retry on rate limit.
// Retries up to 3 times with exponential backoff (1s, 2s, 4s).
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "?" + params.Encode()

	delays := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	var lastErr error

	for attempt := 0; attempt <= len(delays); attempt++ {
		// Wait before retry (skip on first attempt)
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delays[attempt-1]):
			}
		}

		body, err := c.doSingleRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}

		// Check if we should retry
		if errors.Is(err, ErrRateLimited) {
			lastErr = err
			continue
		}

		// Non-retryable error
		return nil, err
	}

	return nil, lastErr
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusUnauthorized, http.StatusPaymentRequired:
		return nil, ErrInvalidAPIKey
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	default:
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error %s: %s", apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
}
