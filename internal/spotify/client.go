// Package spotify fetches the Spotify Web API resources that proofs attest.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// fetchTimeout bounds a single upstream request. A hung Spotify call must
// not hold the generation endpoint open indefinitely.
const fetchTimeout = 10 * time.Second

// ErrUpstreamTimeout is returned when Spotify does not answer within the
// fetch timeout. Callers should surface this as a gateway-class failure
// rather than an internal error.
var ErrUpstreamTimeout = errors.New("spotify request timed out")

// Client wraps the Spotify API client with fetch methods for the
// attestable endpoints.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// NewWithToken creates a client from a raw bearer access token, as supplied
// by the mini-app in the generate request. Extra options (such as a base
// URL override in tests) are passed through to the underlying client.
func NewWithToken(ctx context.Context, accessToken string, opts ...spotify.ClientOption) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
	httpClient := oauth2.NewClient(ctx, source)
	httpClient.Timeout = fetchTimeout

	return New(spotify.New(httpClient, opts...))
}

// CurrentUserID returns the Spotify account id owning the access token.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", wrapUpstream("current user", err)
	}
	return user.ID, nil
}

// Fetch retrieves the named resource and returns its JSON representation.
// A currently-playing fetch with no active playback returns the zero
// playback object rather than an error.
func (c *Client) Fetch(ctx context.Context, endpoint Endpoint) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	var result any
	switch endpoint {
	case EndpointCurrentlyPlaying:
		playing, err := c.api.PlayerCurrentlyPlaying(ctx)
		if err != nil {
			return nil, wrapUpstream(string(endpoint), err)
		}
		result = playing
	case EndpointTopTracksShort, EndpointTopTracksMedium, EndpointTopTracksLong:
		tracks, err := c.api.CurrentUsersTopTracks(ctx, spotify.Timerange(endpoint.timeRange()), spotify.Limit(50))
		if err != nil {
			return nil, wrapUpstream(string(endpoint), err)
		}
		result = tracks
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, endpoint)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding %s response: %w", endpoint, err)
	}
	return payload, nil
}

// wrapUpstream classifies an upstream failure, mapping timeouts onto
// ErrUpstreamTimeout.
func wrapUpstream(what string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("fetching %s: %w", what, ErrUpstreamTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("fetching %s: %w", what, ErrUpstreamTimeout)
	}
	return fmt.Errorf("fetching %s: %w", what, err)
}
