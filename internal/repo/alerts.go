package repo

import (
	"context"
	"time"

	"github.com/upmesh/upmesh/internal/domain"
)

// AlertRecord holds the last derived status we notified about for a website
// and when we last sent a notification (used for cooldown).
type AlertRecord struct {
	WebsiteID  domain.WebsiteID
	LastStatus domain.TickStatus
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, id domain.WebsiteID) (*AlertRecord, error)
	// Set upserts the record. A zero sentAt stores NULL for last_sent_at.
	Set(ctx context.Context, id domain.WebsiteID, status domain.TickStatus, sentAt time.Time) error
}
