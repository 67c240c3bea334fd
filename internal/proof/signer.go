package proof

import (
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// envelopeVersion identifies the attestation format. Bump when the
	// canonical encoding or envelope shape changes.
	envelopeVersion = 1

	algorithmEd25519 = "ed25519"
)

// Envelope is the attestation carried in Record.Proof, serialized as JSON.
// It embeds the signer's public key so a record can be checked offline;
// the Verifier additionally requires that key to match its trusted key.
type Envelope struct {
	Version   int    `json:"version"`
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"publicKey"` // base64
	Signature string `json:"signature"` // base64
	SignedAt  int64  `json:"signedAt"`  // epoch millis, equals Record.Timestamp
}

// Signer creates verifiable records under an ed25519 private key.
type Signer struct {
	priv ed25519.PrivateKey
	now  func() time.Time
}

// NewSigner creates a Signer from an ed25519 private key.
func NewSigner(key ed25519.PrivateKey) (*Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: want %d-byte ed25519 private key, got %d bytes", ErrMissingKey, ed25519.PrivateKeySize, len(key))
	}
	return &Signer{priv: key, now: time.Now}, nil
}

// NewSignerFromSeed creates a Signer from a 32-byte ed25519 seed.
func NewSignerFromSeed(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: want %d-byte seed, got %d bytes", ErrMissingKey, ed25519.SeedSize, len(seed))
	}
	return NewSigner(ed25519.NewKeyFromSeed(seed))
}

// PublicKey returns the public counterpart of the signing key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}

// Verifier returns a Verifier trusting this signer's public key.
func (s *Signer) Verifier() *Verifier {
	return &Verifier{pub: s.PublicKey()}
}

// Create builds a signed record attesting that payload was fetched from the
// named endpoint for the given identity at the current time. The endpoint
// is a logical resource name; callers are responsible for resolving it
// against their allow-list before fetching. Each call assigns a fresh
// random proof id.
func (s *Signer) Create(userID string, fid *int64, spotifyID *string, endpoint string, payload json.RawMessage) (*Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing userId", ErrMalformedRecord)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: missing endpoint", ErrMalformedRecord)
	}

	timestamp := s.now().UnixMilli()

	msg, err := signingBytes(endpoint, timestamp, userID, fid, spotifyID, payload)
	if err != nil {
		return nil, fmt.Errorf("building signing input: %w", err)
	}

	envelope, err := json.Marshal(Envelope{
		Version:   envelopeVersion,
		Algorithm: algorithmEd25519,
		PublicKey: base64.StdEncoding.EncodeToString(s.PublicKey()),
		Signature: base64.StdEncoding.EncodeToString(ed25519.Sign(s.priv, msg)),
		SignedAt:  timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding proof envelope: %w", err)
	}

	return &Record{
		ProofID:   uuid.NewString(),
		UserID:    userID,
		Fid:       fid,
		SpotifyID: spotifyID,
		Endpoint:  endpoint,
		Timestamp: timestamp,
		Payload:   payload,
		Proof:     string(envelope),
	}, nil
}

// Verifier checks records against a trusted ed25519 public key.
type Verifier struct {
	pub ed25519.PublicKey
}

// NewVerifier creates a Verifier trusting the given public key.
func NewVerifier(pub ed25519.PublicKey) (*Verifier, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: want %d-byte ed25519 public key, got %d bytes", ErrMissingKey, ed25519.PublicKeySize, len(pub))
	}
	return &Verifier{pub: pub}, nil
}

// Validate re-derives the canonical encoding from the record's fields and
// checks the proof envelope against it. Any alteration of an attested field
// after signing makes it return false.
//
// A well-formed record that fails to verify (bad signature, untrusted key,
// malformed envelope or payload) yields (false, nil). An error is returned
// only for structurally invalid input, per checkStructure. Validation has
// no side effects and the same record always yields the same verdict.
func (v *Verifier) Validate(r *Record) (bool, error) {
	if err := r.checkStructure(); err != nil {
		return false, err
	}

	var envelope Envelope
	if err := json.Unmarshal([]byte(r.Proof), &envelope); err != nil {
		return false, nil
	}
	if envelope.Version != envelopeVersion || envelope.Algorithm != algorithmEd25519 {
		return false, nil
	}
	if envelope.SignedAt != r.Timestamp {
		return false, nil
	}

	pub, err := base64.StdEncoding.DecodeString(envelope.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false, nil
	}
	// The embedded key must be the trusted one, otherwise anyone could
	// re-sign a tampered record with their own key.
	if subtle.ConstantTimeCompare(pub, v.pub) != 1 {
		return false, nil
	}

	sig, err := base64.StdEncoding.DecodeString(envelope.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false, nil
	}

	msg, err := signingBytes(r.Endpoint, r.Timestamp, r.UserID, r.Fid, r.SpotifyID, r.Payload)
	if err != nil {
		// Unparseable payload cannot have been signed.
		return false, nil
	}

	return ed25519.Verify(v.pub, msg, sig), nil
}
