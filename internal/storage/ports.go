// Package storage persists the budget state document.
//
// The whole state is one JSON document that is rewritten on every change, so
// every backend stores and returns opaque bytes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/core"
)

// ErrNoDocument is returned by Load when nothing has been saved yet.
var ErrNoDocument = errors.New("no state document")

// Store persists the state document.
type Store interface {
	// Load returns the saved document or ErrNoDocument.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the saved document.
	Save(ctx context.Context, data []byte) error
	Close() error
}

// LoadState reads and decodes the document from store. A missing or
// malformed document yields a fresh state; only read failures are errors.
func LoadState(ctx context.Context, store Store, now time.Time) (*core.State, error) {
	data, err := store.Load(ctx)
	if errors.Is(err, ErrNoDocument) {
		slog.InfoContext(ctx, "No saved state, starting fresh")
		return core.NewState(now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	state, fresh := core.DecodeState(data, now)
	if fresh {
		slog.WarnContext(ctx, "Saved state is unreadable, starting fresh", "bytes", len(data))
	}
	return state, nil
}
