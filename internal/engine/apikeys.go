package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkline/internal/domain"
	"checkline/internal/events"
	"checkline/internal/repo"
)

// MintedAPIKey pairs the stored record with the plaintext key. The
// plaintext is only available at mint time; only the hash is stored.
type MintedAPIKey struct {
	Record domain.APIKey
	Plain  string
}

func (e Engine) CreateAPIKey(ctx context.Context, actorID, name string) (MintedAPIKey, error) {
	if strings.TrimSpace(actorID) == "" {
		return MintedAPIKey{}, errors.New("actor_id is required")
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return MintedAPIKey{}, fmt.Errorf("generate key: %w", err)
	}
	plain := "clk_" + hex.EncodeToString(raw)
	key := domain.APIKey{
		ID:        e.newID(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(plain),
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return MintedAPIKey{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
		return MintedAPIKey{}, err
	}
	if err := e.Events.Append(ctx, tx, "apikey.created", "apikey", key.ID, actorID, events.EventPayload{"name": name}); err != nil {
		return MintedAPIKey{}, err
	}
	if err := tx.Commit(); err != nil {
		return MintedAPIKey{}, err
	}
	return MintedAPIKey{Record: key, Plain: plain}, nil
}
