package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/timbra/timbra-proofs/internal/insights"
	"github.com/timbra/timbra-proofs/internal/neynar"
	"github.com/timbra/timbra-proofs/internal/proof"
	"github.com/timbra/timbra-proofs/internal/spotify"
)

// Handlers contains the HTTP handlers for the proof API.
type Handlers struct {
	signer    *proof.Signer
	verifier  *proof.Verifier
	store     proof.Store
	farcaster *neynar.Client // nil when fid verification is disabled

	// newSpotify builds a Spotify client from a request's access token.
	// Tests point it at a fake server.
	newSpotify func(ctx context.Context, accessToken string) *spotify.Client
}

// NewHandlers creates a new Handlers instance. farcaster may be nil.
func NewHandlers(signer *proof.Signer, verifier *proof.Verifier, store proof.Store, farcaster *neynar.Client, newSpotify func(ctx context.Context, accessToken string) *spotify.Client) *Handlers {
	if newSpotify == nil {
		newSpotify = func(ctx context.Context, accessToken string) *spotify.Client {
			return spotify.NewWithToken(ctx, accessToken)
		}
	}
	return &Handlers{
		signer:     signer,
		verifier:   verifier,
		store:      store,
		farcaster:  farcaster,
		newSpotify: newSpotify,
	}
}

type generateRequest struct {
	UserID      string  `json:"userId"`
	Fid         *int64  `json:"fid"`
	SpotifyID   *string `json:"spotifyId"`
	Endpoint    string  `json:"endpoint"`
	AccessToken string  `json:"accessToken"`
}

type generateResponse struct {
	Success  bool                       `json:"success"`
	Data     *proof.Record              `json:"data"`
	Insights *insights.TopTracksSummary `json:"insights,omitempty"`
}

type validateRequest struct {
	VerifiableData *proof.Record `json:"verifiableData"`
}

type validateMetadata struct {
	ProofID   string  `json:"proofId"`
	Timestamp int64   `json:"timestamp"`
	Endpoint  string  `json:"endpoint"`
	UserID    string  `json:"userId"`
	Fid       *int64  `json:"fid,omitempty"`
	SpotifyID *string `json:"spotifyId,omitempty"`
}

type validateResponse struct {
	Success  bool              `json:"success"`
	Valid    bool              `json:"valid"`
	Message  string            `json:"message"`
	Metadata *validateMetadata `json:"metadata,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// GenerateProof handles POST /api/proofs/generate.
func (h *Handlers) GenerateProof(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch {
	case req.UserID == "":
		respondError(w, http.StatusBadRequest, "missing required field: userId")
		return
	case req.Endpoint == "":
		respondError(w, http.StatusBadRequest, "missing required field: endpoint")
		return
	case req.AccessToken == "":
		respondError(w, http.StatusBadRequest, "missing required field: accessToken")
		return
	}

	// Resolve the endpoint before anything touches the network.
	endpoint, err := spotify.ParseEndpoint(req.Endpoint)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown endpoint: "+req.Endpoint)
		return
	}

	ctx := r.Context()

	// When a fid is claimed and Neynar is configured, the fid must exist.
	if req.Fid != nil && h.farcaster != nil {
		if _, err := h.farcaster.GetUser(ctx, *req.Fid); err != nil {
			if errors.Is(err, neynar.ErrUserNotFound) {
				respondError(w, http.StatusBadRequest, "unknown fid")
				return
			}
			log.Printf("verifying fid %d: %v", *req.Fid, err)
			respondError(w, http.StatusBadGateway, "failed to verify farcaster identity")
			return
		}
	}

	client := h.newSpotify(ctx, req.AccessToken)

	// A claimed spotifyId must belong to the account the token grants.
	if req.SpotifyID != nil && *req.SpotifyID != "" {
		ownerID, err := client.CurrentUserID(ctx)
		if err != nil {
			respondUpstreamError(w, "fetching spotify profile", err)
			return
		}
		if ownerID != *req.SpotifyID {
			respondError(w, http.StatusBadRequest, "spotifyId does not match access token")
			return
		}
	}

	payload, err := client.Fetch(ctx, endpoint)
	if err != nil {
		respondUpstreamError(w, "fetching spotify data", err)
		return
	}

	record, err := h.signer.Create(req.UserID, req.Fid, req.SpotifyID, string(endpoint), payload)
	if err != nil {
		log.Printf("creating proof: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create proof")
		return
	}

	// The proof is only returned as stored; an unstored success would leave
	// the GET validate-by-id path dangling.
	if err := h.store.Save(ctx, record); err != nil {
		log.Printf("storing proof %s: %v", record.ProofID, err)
		respondError(w, http.StatusInternalServerError, "failed to store proof")
		return
	}

	resp := generateResponse{Success: true, Data: record}
	if endpoint.IsTopTracks() {
		summary, err := insights.SummarizeTopTracks(payload)
		if err != nil {
			log.Printf("summarizing top tracks for proof %s: %v", record.ProofID, err)
		} else {
			resp.Insights = summary
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// ValidateProof handles POST /api/proofs/validate.
func (h *Handlers) ValidateProof(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.VerifiableData == nil {
		respondError(w, http.StatusBadRequest, "missing required field: verifiableData")
		return
	}

	h.writeVerdict(w, req.VerifiableData)
}

// ValidateProofByID handles GET /api/proofs/validate?proofId=.
func (h *Handlers) ValidateProofByID(w http.ResponseWriter, r *http.Request) {
	proofID := r.URL.Query().Get("proofId")
	if proofID == "" {
		respondError(w, http.StatusBadRequest, "missing required parameter: proofId")
		return
	}

	record, err := h.store.GetByID(r.Context(), proofID)
	if errors.Is(err, proof.ErrNotFound) {
		respondError(w, http.StatusNotFound, "proof not found")
		return
	}
	if err != nil {
		log.Printf("loading proof %s: %v", proofID, err)
		respondError(w, http.StatusInternalServerError, "failed to load proof")
		return
	}

	h.writeVerdict(w, record)
}

// writeVerdict validates a record and writes the shared response shape of
// both validate routes. Verification failing is a normal outcome, not an
// error status.
func (h *Handlers) writeVerdict(w http.ResponseWriter, record *proof.Record) {
	valid, err := h.verifier.Validate(record)
	if err != nil {
		if errors.Is(err, proof.ErrMalformedRecord) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("validating proof: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to validate proof")
		return
	}

	resp := validateResponse{Success: true, Valid: valid}
	if valid {
		resp.Message = "proof is valid"
		resp.Metadata = &validateMetadata{
			ProofID:   record.ProofID,
			Timestamp: record.Timestamp,
			Endpoint:  record.Endpoint,
			UserID:    record.UserID,
			Fid:       record.Fid,
			SpotifyID: record.SpotifyID,
		}
	} else {
		resp.Message = "proof verification failed"
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondUpstreamError maps a Spotify failure onto a status code: timeouts
// are gateway failures, everything else is internal.
func respondUpstreamError(w http.ResponseWriter, what string, err error) {
	log.Printf("%s: %v", what, err)
	if errors.Is(err, spotify.ErrUpstreamTimeout) {
		respondError(w, http.StatusBadGateway, "spotify request timed out")
		return
	}
	respondError(w, http.StatusInternalServerError, "spotify request failed")
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Success: false, Error: message})
}
