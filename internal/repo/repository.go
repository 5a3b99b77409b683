package repo

import (
	"context"
	"errors"
	"time"

	"github.com/upmesh/upmesh/internal/domain"
)

// ErrDuplicateURL is returned by WebsiteStore.Add when an active website
// with the same URL already exists.
var ErrDuplicateURL = errors.New("website url already registered")

// ErrDuplicateKey is returned by ValidatorStore.Add when the public key is
// already registered.
var ErrDuplicateKey = errors.New("validator public key already registered")

// Ports (interfaces) — swap in any DB adapter later.

type WebsiteStore interface {
	Add(ctx context.Context, w *domain.Website) error
	// GetByID returns nil, nil when the id is unknown. Disabled websites
	// are still returned here so history stays reachable by direct lookup.
	GetByID(ctx context.Context, id domain.WebsiteID) (*domain.Website, error)
	// GetActiveByURL resolves a probe target to a non-disabled website.
	// Returns nil, nil on miss.
	GetActiveByURL(ctx context.Context, url string) (*domain.Website, error)
	// ListActive returns every non-disabled website (all accounts). Used as
	// the probe-target feed and by the alerter.
	ListActive(ctx context.Context) ([]domain.Website, error)
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Website, error)
	// Disable soft-deletes. Existing ticks are retained.
	Disable(ctx context.Context, id domain.WebsiteID, userID string) error
}

type ValidatorStore interface {
	// Register is the administrative registration operation; reports never
	// create validators implicitly.
	Register(ctx context.Context, v *domain.Validator) error
	// FindByPublicKey is a pure lookup: a miss returns nil, nil, never an
	// error. Turning a miss into a rejection is the ingestion boundary's job.
	FindByPublicKey(ctx context.Context, publicKey string) (*domain.Validator, error)
	TouchLastSeen(ctx context.Context, id domain.ValidatorID, at time.Time) error
}

type TickStore interface {
	// Append inserts one immutable tick. Ticks are never updated or deleted
	// individually.
	Append(ctx context.Context, t *domain.Tick) error
	// ListByWebsite returns the website's ticks in arbitrary order; callers
	// sort or pick the latest themselves.
	ListByWebsite(ctx context.Context, id domain.WebsiteID) ([]domain.Tick, error)
	// EvictOlderThan deletes ticks with CreatedAt before cutoff and reports
	// how many went. Retention only; never used on the request path.
	EvictOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
