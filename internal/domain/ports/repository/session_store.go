package repository

import (
	"context"

	"feedback-analysis-service/internal/domain/model"
)

// CacheStats is a snapshot of the tiered session store.
type CacheStats struct {
	LocalSize       int               `json:"local_cache_size"`
	RemoteAvailable bool              `json:"remote_available"`
	Remote          map[string]string `json:"remote,omitempty"`
}

// SessionStore is the port for tiered session storage. The local in-process
// tier is authoritative for the lifetime of the creating process; the remote
// tier is a best-effort mirror whose absence never fails an operation.
type SessionStore interface {
	// Init establishes the remote tier once. A connection failure degrades
	// the store to local-only mode and is not returned to the caller.
	Init(ctx context.Context)

	Set(ctx context.Context, session *model.Session) error

	// Get returns domain.ErrNotFound when the session is absent in both
	// tiers. Fields the remote tier cannot represent are merged back from
	// the local copy.
	Get(ctx context.Context, id string) (*model.Session, error)

	// Delete removes the session from both tiers, best-effort.
	Delete(ctx context.Context, id string) error

	Stats(ctx context.Context) CacheStats
}
