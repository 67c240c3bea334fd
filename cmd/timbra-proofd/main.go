// Command timbra-proofd runs the Timbra proof API server.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/timbra/timbra-proofs/internal/db"
	"github.com/timbra/timbra-proofs/internal/neynar"
	"github.com/timbra/timbra-proofs/internal/proof"
	"github.com/timbra/timbra-proofs/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// The signing key is mandatory; without it the service must not start.
	keyHex := os.Getenv("TIMBRA_SIGNING_KEY")
	if keyHex == "" {
		return fmt.Errorf("please set TIMBRA_SIGNING_KEY (hex-encoded 32-byte ed25519 seed)")
	}
	seed, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("decoding TIMBRA_SIGNING_KEY: %w", err)
	}
	signer, err := proof.NewSignerFromSeed(seed)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}

	ctx := context.Background()

	// Proof storage: Postgres when configured, in-memory otherwise.
	var store proof.Store
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		database, err := db.New(ctx, databaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		store = database.Proofs()
	} else {
		log.Println("DATABASE_URL not set; proofs are stored in memory and lost on restart")
		store = proof.NewMemoryStore()
	}

	// Optional Farcaster identity verification.
	var farcaster *neynar.Client
	if cfg, err := neynar.LoadConfig(); err == nil {
		farcaster = neynar.NewClient(cfg)
	} else {
		log.Println("NEYNAR_API_KEY not set; fid verification disabled")
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = web.DefaultAddr
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:      addr,
		Signer:    signer,
		Verifier:  signer.Verifier(),
		Store:     store,
		Farcaster: farcaster,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}
