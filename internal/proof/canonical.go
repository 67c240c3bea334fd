package proof

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// signedFields is the canonical tuple covered by the signature. The struct
// marshals with a fixed field order, fid and spotifyId are always present
// (null when absent), and the payload is canonicalized before embedding, so
// signer and verifier derive byte-identical input from the same record.
type signedFields struct {
	Endpoint  string          `json:"endpoint"`
	Timestamp int64           `json:"timestamp"`
	UserID    string          `json:"userId"`
	Fid       *int64          `json:"fid"`
	SpotifyID *string         `json:"spotifyId"`
	Payload   json.RawMessage `json:"payload"`
}

// canonicalJSON re-encodes raw JSON into a canonical form: object keys
// sorted (encoding/json sorts map keys), no insignificant whitespace, and
// deterministic number formatting. Empty input canonicalizes to null so
// "nothing currently playing" payloads remain signable.
func canonicalJSON(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}

	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	canonical, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return canonical, nil
}

// signingBytes builds the byte string the signature covers.
func signingBytes(endpoint string, timestamp int64, userID string, fid *int64, spotifyID *string, payload json.RawMessage) ([]byte, error) {
	canonical, err := canonicalJSON(payload)
	if err != nil {
		return nil, err
	}

	msg, err := json.Marshal(signedFields{
		Endpoint:  endpoint,
		Timestamp: timestamp,
		UserID:    userID,
		Fid:       fid,
		SpotifyID: spotifyID,
		Payload:   canonical,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding signed fields: %w", err)
	}
	return msg, nil
}
