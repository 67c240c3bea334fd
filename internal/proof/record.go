// Package proof implements creation, validation, and storage of
// tamper-evident listening records. A record binds a raw Spotify payload
// to a Farcaster/Spotify identity and a timestamp under an ed25519
// signature, so that third parties can check the record without access to
// the user's credentials or the service's signing key.
package proof

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrMalformedRecord is returned when a record is structurally invalid
	// (nil, or missing a required field). Records that are well-formed but
	// fail verification are not an error; Validate reports false instead.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrMissingKey is returned when a Signer or Verifier is constructed
	// without key material. There is no default key; signing is disabled
	// rather than silently unsafe.
	ErrMissingKey = errors.New("missing signing key")
)

// Record is a verifiable listening record. Field names match the JSON
// shape the Timbra mini-app exchanges with the proof endpoints.
type Record struct {
	ProofID   string          `json:"proofId"`
	UserID    string          `json:"userId"`
	Fid       *int64          `json:"fid,omitempty"`
	SpotifyID *string         `json:"spotifyId,omitempty"`
	Endpoint  string          `json:"endpoint"`
	Timestamp int64           `json:"timestamp"` // epoch millis
	Payload   json.RawMessage `json:"payload"`
	Proof     string          `json:"proof"` // serialized Envelope
}

// checkStructure verifies the required fields are present. It does not
// inspect the proof envelope; that is Validate's job.
func (r *Record) checkStructure() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrMalformedRecord)
	}
	if r.ProofID == "" {
		return fmt.Errorf("%w: missing proofId", ErrMalformedRecord)
	}
	if r.UserID == "" {
		return fmt.Errorf("%w: missing userId", ErrMalformedRecord)
	}
	if r.Endpoint == "" {
		return fmt.Errorf("%w: missing endpoint", ErrMalformedRecord)
	}
	if r.Timestamp <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrMalformedRecord)
	}
	if r.Proof == "" {
		return fmt.Errorf("%w: missing proof", ErrMalformedRecord)
	}
	return nil
}

// Clone returns a deep copy of the record. Stored records are immutable;
// the store hands out copies so callers can never mutate what was saved.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.Fid != nil {
		fid := *r.Fid
		out.Fid = &fid
	}
	if r.SpotifyID != nil {
		id := *r.SpotifyID
		out.SpotifyID = &id
	}
	if r.Payload != nil {
		out.Payload = append(json.RawMessage(nil), r.Payload...)
	}
	return &out
}
