package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zmb3/spotify/v2"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Endpoint
		wantErr bool
	}{
		{"currently playing", "currently-playing", EndpointCurrentlyPlaying, false},
		{"top tracks short", "top-tracks/short_term", EndpointTopTracksShort, false},
		{"top tracks medium", "top-tracks/medium_term", EndpointTopTracksMedium, false},
		{"top tracks long", "top-tracks/long_term", EndpointTopTracksLong, false},
		{"unknown", "not-a-real-endpoint", "", true},
		{"empty", "", "", true},
		{"case sensitive", "Currently-Playing", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndpoint(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownEndpoint) {
					t.Errorf("ParseEndpoint(%q) error = %v, want ErrUnknownEndpoint", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEndpoint(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseEndpoint(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// fakeSpotify runs an httptest server imitating the two API resources.
func fakeSpotify(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want Bearer test-token", got)
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/me/player/currently-playing"):
			w.Write([]byte(`{"is_playing":true,"progress_ms":42000,"item":{"name":"Song A","duration_ms":215000,"popularity":61}}`))
		case strings.HasSuffix(r.URL.Path, "/me/top/tracks"):
			if got := r.URL.Query().Get("time_range"); got != "short_term" {
				t.Errorf("time_range = %q, want short_term", got)
			}
			w.Write([]byte(`{"items":[{"name":"Song A","duration_ms":215000,"popularity":61}],"total":1,"limit":50}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestFetchCurrentlyPlaying(t *testing.T) {
	server, _ := fakeSpotify(t)
	client := NewWithToken(context.Background(), "test-token", spotify.WithBaseURL(server.URL+"/"))

	payload, err := client.Fetch(context.Background(), EndpointCurrentlyPlaying)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	var playing struct {
		IsPlaying bool `json:"is_playing"`
		Item      struct {
			Name string `json:"name"`
		} `json:"item"`
	}
	if err := json.Unmarshal(payload, &playing); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if !playing.IsPlaying {
		t.Error("is_playing = false, want true")
	}
	if playing.Item.Name != "Song A" {
		t.Errorf("item name = %q, want Song A", playing.Item.Name)
	}
}

func TestFetchTopTracks(t *testing.T) {
	server, _ := fakeSpotify(t)
	client := NewWithToken(context.Background(), "test-token", spotify.WithBaseURL(server.URL+"/"))

	payload, err := client.Fetch(context.Background(), EndpointTopTracksShort)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	var page struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
	}
	if err := json.Unmarshal(payload, &page); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "Song A" {
		t.Errorf("items = %+v, want one track named Song A", page.Items)
	}
}

func TestFetchUnknownEndpointSkipsNetwork(t *testing.T) {
	server, requests := fakeSpotify(t)
	client := NewWithToken(context.Background(), "test-token", spotify.WithBaseURL(server.URL+"/"))

	_, err := client.Fetch(context.Background(), Endpoint("not-a-real-endpoint"))
	if !errors.Is(err, ErrUnknownEndpoint) {
		t.Errorf("Fetch() error = %v, want ErrUnknownEndpoint", err)
	}
	if got := requests.Load(); got != 0 {
		t.Errorf("upstream requests = %d, want 0", got)
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	client := NewWithToken(context.Background(), "test-token", spotify.WithBaseURL(server.URL+"/"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Fetch(ctx, EndpointCurrentlyPlaying)
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("Fetch() error = %v, want ErrUpstreamTimeout", err)
	}
}

func TestCurrentUserID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/me") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc123","display_name":"Tester"}`))
	}))
	t.Cleanup(server.Close)

	client := NewWithToken(context.Background(), "test-token", spotify.WithBaseURL(server.URL+"/"))

	id, err := client.CurrentUserID(context.Background())
	if err != nil {
		t.Fatalf("CurrentUserID() error = %v", err)
	}
	if id != "abc123" {
		t.Errorf("CurrentUserID() = %q, want abc123", id)
	}
}
