package spotify

import (
	"errors"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// ErrUnknownEndpoint is returned when an endpoint name is not on the
// allow-list. Callers must reject the request before any upstream call.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Endpoint is a logical name for a Spotify resource that can be attested.
type Endpoint string

// Attestable endpoints.
const (
	EndpointCurrentlyPlaying Endpoint = "currently-playing"
	EndpointTopTracksShort   Endpoint = "top-tracks/short_term"
	EndpointTopTracksMedium  Endpoint = "top-tracks/medium_term"
	EndpointTopTracksLong    Endpoint = "top-tracks/long_term"
)

// Endpoints returns the allow-list in a stable order.
func Endpoints() []Endpoint {
	return []Endpoint{
		EndpointCurrentlyPlaying,
		EndpointTopTracksShort,
		EndpointTopTracksMedium,
		EndpointTopTracksLong,
	}
}

// ParseEndpoint maps a request-supplied name onto the allow-list.
func ParseEndpoint(name string) (Endpoint, error) {
	switch Endpoint(name) {
	case EndpointCurrentlyPlaying, EndpointTopTracksShort, EndpointTopTracksMedium, EndpointTopTracksLong:
		return Endpoint(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, name)
}

// IsTopTracks reports whether the endpoint is one of the top-tracks ranges.
func (e Endpoint) IsTopTracks() bool {
	switch e {
	case EndpointTopTracksShort, EndpointTopTracksMedium, EndpointTopTracksLong:
		return true
	}
	return false
}

// timeRange returns the Spotify time range for a top-tracks endpoint.
func (e Endpoint) timeRange() spotify.Range {
	switch e {
	case EndpointTopTracksShort:
		return spotify.ShortTermRange
	case EndpointTopTracksMedium:
		return spotify.MediumTermRange
	default:
		return spotify.LongTermRange
	}
}
