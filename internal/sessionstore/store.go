package sessionstore

import (
	"context"
	"errors"

	"clubworx-backend/internal/scrapers/clubworx"
)

var ErrNotFound = errors.New("sessionstore: session not found")

// Store persists exported clubworx sessions keyed by account.
//
// note: fault injection point
type Store interface {
	// Get returns ErrNotFound if nothing is stored under key, a stored value
	// that cannot be restored returns clubworx.ErrInvalidSessionData.
	Get(ctx context.Context, key string) (clubworx.SessionData, error)
	Put(ctx context.Context, key string, data clubworx.SessionData) error
	// Delete is a no-op if nothing is stored under key.
	Delete(ctx context.Context, key string) error
}
