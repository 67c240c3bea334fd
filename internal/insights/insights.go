// Package insights derives listening summaries from top-tracks payloads.
// Summaries are convenience metadata for the mini-app UI; they are computed
// after signing and are never part of the attested bytes.
package insights

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// numProfiles is the number of listening-profile buckets to detect.
const numProfiles = 3

// maxTopArtists caps the artist leaderboard.
const maxTopArtists = 5

// ArtistCount is an artist with the number of top tracks they appear on.
type ArtistCount struct {
	Name       string `json:"name"`
	TrackCount int    `json:"trackCount"`
}

// Profile is a cluster of tracks with similar duration and popularity.
type Profile struct {
	Name          string `json:"name"`
	TrackCount    int    `json:"trackCount"`
	AvgDurationMs int    `json:"avgDurationMs"`
	AvgPopularity int    `json:"avgPopularity"`
}

// TopTracksSummary describes a user's top-tracks payload.
type TopTracksSummary struct {
	TrackCount int           `json:"trackCount"`
	TopArtists []ArtistCount `json:"topArtists,omitempty"`
	Profiles   []Profile     `json:"profiles,omitempty"`
}

// track is the subset of the Spotify track object the summary needs.
type track struct {
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	Popularity int    `json:"popularity"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

// topTracksPayload is the subset of the Spotify top-items page shape.
type topTracksPayload struct {
	Items []track `json:"items"`
}

// trackObservation wraps a track to implement clusters.Observation.
type trackObservation struct {
	track  *track
	coords clusters.Coordinates
}

func (o trackObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o trackObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// SummarizeTopTracks builds a summary from a raw top-tracks payload.
// Payloads with fewer tracks than profile buckets get artist counts only.
func SummarizeTopTracks(payload json.RawMessage) (*TopTracksSummary, error) {
	var page topTracksPayload
	if err := json.Unmarshal(payload, &page); err != nil {
		return nil, fmt.Errorf("parsing top tracks payload: %w", err)
	}

	summary := &TopTracksSummary{
		TrackCount: len(page.Items),
		TopArtists: topArtists(page.Items),
	}
	if len(page.Items) >= numProfiles {
		summary.Profiles = detectProfiles(page.Items)
	}
	return summary, nil
}

// topArtists counts tracks per artist and returns the leaders.
func topArtists(tracks []track) []ArtistCount {
	counts := make(map[string]int)
	for _, t := range tracks {
		for _, a := range t.Artists {
			if a.Name != "" {
				counts[a.Name]++
			}
		}
	}
	if len(counts) == 0 {
		return nil
	}

	ranked := make([]ArtistCount, 0, len(counts))
	for name, n := range counts {
		ranked = append(ranked, ArtistCount{Name: name, TrackCount: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TrackCount != ranked[j].TrackCount {
			return ranked[i].TrackCount > ranked[j].TrackCount
		}
		return ranked[i].Name < ranked[j].Name
	})

	if len(ranked) > maxTopArtists {
		ranked = ranked[:maxTopArtists]
	}
	return ranked
}

// detectProfiles groups tracks by (duration, popularity) similarity using
// k-means clustering. Returns nil if clustering fails.
func detectProfiles(tracks []track) []Profile {
	maxDuration := 1
	for _, t := range tracks {
		if t.DurationMs > maxDuration {
			maxDuration = t.DurationMs
		}
	}

	// Build observations with coordinates normalized to [0,1]
	observations := make([]trackObservation, len(tracks))
	for i := range tracks {
		t := &tracks[i]
		observations[i] = trackObservation{
			track: t,
			coords: clusters.Coordinates{
				float64(t.DurationMs) / float64(maxDuration),
				float64(t.Popularity) / 100,
			},
		}
	}

	var obs clusters.Observations
	for _, o := range observations {
		obs = append(obs, o)
	}

	km := kmeans.New()
	result, err := km.Partition(obs, numProfiles)
	if err != nil {
		return nil
	}

	var profiles []Profile
	for _, cluster := range result {
		if len(cluster.Observations) == 0 {
			continue
		}

		var durationSum, popularitySum int
		for _, o := range cluster.Observations {
			t := o.(trackObservation).track
			durationSum += t.DurationMs
			popularitySum += t.Popularity
		}
		n := len(cluster.Observations)

		profile := Profile{
			TrackCount:    n,
			AvgDurationMs: durationSum / n,
			AvgPopularity: popularitySum / n,
		}
		profile.Name = profileName(profile.AvgPopularity)
		profiles = append(profiles, profile)
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].TrackCount > profiles[j].TrackCount
	})
	return profiles
}

// profileName labels a cluster by its average popularity.
func profileName(avgPopularity int) string {
	switch {
	case avgPopularity >= 65:
		return "mainstream"
	case avgPopularity >= 35:
		return "familiar"
	default:
		return "deep cuts"
	}
}
