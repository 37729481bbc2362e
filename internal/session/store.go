package session

import (
	"context"
	"time"

	"tally/internal/domain"
)

// Store persists session records keyed by session id.
type Store interface {
	Save(ctx context.Context, id string, identity domain.Identity, ttl time.Duration) error
	// Load reports false when the session is unknown or has expired.
	Load(ctx context.Context, id string) (domain.Identity, bool, error)
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
}
