package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upmesh/upmesh/internal/domain"
	"github.com/upmesh/upmesh/internal/repo"
)

// Rejection reasons. The HTTP boundary maps these to status codes; anything
// else coming out of Ingest is a storage failure (500).
var (
	ErrValidation        = errors.New("validation error")
	ErrWebsiteNotFound   = errors.New("website not found")
	ErrValidatorNotFound = errors.New("validator not found")
)

// Report is what a validator submits for one probe outcome. Status is
// accepted for wire compatibility but ignored: Code is authoritative.
// LatencyMS is the measured round-trip in milliseconds; absent means 0.
type Report struct {
	URL       string  `json:"url"`
	Status    string  `json:"status"`
	Code      int     `json:"code"`
	Validator string  `json:"validator"`
	LatencyMS float64 `json:"latency,omitempty"`
}

// Service is the ingestion boundary: it validates a report, binds it to a
// registered website and validator, classifies it, and appends a tick.
type Service struct {
	log        *zap.Logger
	websites   repo.WebsiteStore
	validators repo.ValidatorStore
	ticks      repo.TickStore
	now        func() time.Time
}

func New(log *zap.Logger, ws repo.WebsiteStore, vs repo.ValidatorStore, ts repo.TickStore) *Service {
	return &Service{
		log:        log,
		websites:   ws,
		validators: vs,
		ticks:      ts,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ingest turns one report into one stored tick, or rejects it without
// touching storage. No idempotence: a duplicate report makes a duplicate
// tick; status derivation only looks at the latest row anyway.
func (s *Service) Ingest(ctx context.Context, r Report) (*domain.Tick, error) {
	if err := validate(r); err != nil {
		return nil, err
	}

	website, err := s.websites.GetActiveByURL(ctx, r.URL)
	if err != nil {
		return nil, fmt.Errorf("resolve website: %w", err)
	}
	if website == nil {
		return nil, ErrWebsiteNotFound
	}

	validator, err := s.validators.FindByPublicKey(ctx, r.Validator)
	if err != nil {
		return nil, fmt.Errorf("resolve validator: %w", err)
	}
	if validator == nil {
		return nil, ErrValidatorNotFound
	}

	// CreatedAt comes from the collector clock at commit time; validator
	// clocks never order history.
	tick := &domain.Tick{
		WebsiteID:   website.ID,
		ValidatorID: validator.ID,
		Status:      domain.Classify(r.Code),
		LatencyMS:   r.LatencyMS,
		CreatedAt:   s.now(),
	}
	if err := s.ticks.Append(ctx, tick); err != nil {
		return nil, fmt.Errorf("append tick: %w", err)
	}

	if err := s.validators.TouchLastSeen(ctx, validator.ID, tick.CreatedAt); err != nil {
		// best effort; the tick is already committed
		s.log.Warn("touch_last_seen_failed",
			zap.String("validator_id", string(validator.ID)),
			zap.Error(err),
		)
	}

	s.log.Info("tick_ingested",
		zap.String("website_id", string(website.ID)),
		zap.String("validator_id", string(validator.ID)),
		zap.String("status", string(tick.Status)),
		zap.Int("code", r.Code),
		zap.Float64("latency_ms", tick.LatencyMS),
	)
	return tick, nil
}

func validate(r Report) error {
	switch {
	case r.URL == "":
		return fmt.Errorf("%w: url is required", ErrValidation)
	case r.Validator == "":
		return fmt.Errorf("%w: validator is required", ErrValidation)
	case r.Code < 0:
		return fmt.Errorf("%w: code must be >= 0", ErrValidation)
	case r.LatencyMS < 0:
		return fmt.Errorf("%w: latency must be >= 0", ErrValidation)
	}
	return nil
}
