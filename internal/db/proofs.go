package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/timbra/timbra-proofs/internal/proof"
)

// Schema is the DDL for the proofs table. EnsureSchema applies it at
// startup; records are insert-only, there is no update or delete path.
const Schema = `
CREATE TABLE IF NOT EXISTS proofs (
	proof_id   TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	fid        BIGINT,
	spotify_id TEXT,
	endpoint   TEXT NOT NULL,
	ts         BIGINT NOT NULL,
	payload    JSONB,
	proof      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS proofs_user_id_idx ON proofs (user_id);
CREATE INDEX IF NOT EXISTS proofs_fid_idx ON proofs (fid) WHERE fid IS NOT NULL;
`

// EnsureSchema creates the proofs table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("applying proofs schema: %w", err)
	}
	return nil
}

// ProofRepository persists proof records. It implements proof.Store.
type ProofRepository struct {
	pool *pgxpool.Pool
}

// Save inserts a record. The insert must succeed before the generation
// endpoint may report success to the caller.
func (r *ProofRepository) Save(ctx context.Context, record *proof.Record) error {
	query := `
		INSERT INTO proofs (proof_id, user_id, fid, spotify_id, endpoint, ts, payload, proof)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	payload := []byte(record.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}

	_, err := r.pool.Exec(ctx, query,
		record.ProofID,
		record.UserID,
		record.Fid,
		record.SpotifyID,
		record.Endpoint,
		record.Timestamp,
		payload,
		record.Proof,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("inserting proof %s: %w", record.ProofID, proof.ErrDuplicate)
		}
		return fmt.Errorf("inserting proof: %w", err)
	}
	return nil
}

// GetByID retrieves a record by proof id.
func (r *ProofRepository) GetByID(ctx context.Context, proofID string) (*proof.Record, error) {
	query := `
		SELECT proof_id, user_id, fid, spotify_id, endpoint, ts, payload, proof
		FROM proofs
		WHERE proof_id = $1
	`
	var (
		record  proof.Record
		payload []byte
	)
	err := r.pool.QueryRow(ctx, query, proofID).Scan(
		&record.ProofID,
		&record.UserID,
		&record.Fid,
		&record.SpotifyID,
		&record.Endpoint,
		&record.Timestamp,
		&payload,
		&record.Proof,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, proof.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying proof: %w", err)
	}

	record.Payload = payload
	return &record, nil
}
