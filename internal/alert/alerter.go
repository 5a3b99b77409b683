package alert

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upmesh/upmesh/internal/domain"
	"github.com/upmesh/upmesh/internal/notify"
	"github.com/upmesh/upmesh/internal/repo"
)

type Config struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
	PollInterval    time.Duration
}

// Alerter periodically derives the current status of every active website
// from its ticks and notifies on Good -> Bad transitions (and optionally on
// recovery). Websites with no ticks yet are skipped until the first report.
type Alerter struct {
	log      *zap.Logger
	websites repo.WebsiteStore
	ticks    repo.TickStore
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      Config
}

func NewAlerter(
	log *zap.Logger,
	websites repo.WebsiteStore,
	ticks repo.TickStore,
	alertDB repo.AlertStore,
	notifier notify.Notifier,
	cfg Config,
) *Alerter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	return &Alerter{
		log:      log,
		websites: websites,
		ticks:    ticks,
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	t := time.NewTicker(a.cfg.PollInterval)
	defer t.Stop()

	// initial pass
	_ = a.scanOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_ = a.scanOnce(ctx)
		}
	}
}

func (a *Alerter) scanOnce(ctx context.Context) error {
	sites, err := a.websites.ListActive(ctx)
	if err != nil {
		return err
	}

	now := time.Now()

	for _, w := range sites {
		ticks, err := a.ticks.ListByWebsite(ctx, w.ID)
		if err != nil {
			a.log.Warn("alerter: list ticks failed", zap.String("website_id", string(w.ID)), zap.Error(err))
			continue
		}
		latest := domain.LatestTick(ticks)
		if latest == nil {
			// No reports yet; nothing to alert on.
			continue
		}
		status := latest.Status

		rec, _ := a.alertDB.Get(ctx, w.ID)

		// Has the derived status changed compared to what we last recorded?
		stateChanged := rec == nil || rec.LastStatus != status

		// Cooldown only matters for Bad alerts (suppresses noisy repeats).
		cooled := true
		if rec != nil && rec.LastSentAt != nil {
			cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
		}

		downAlert := stateChanged && status == domain.StatusBad && cooled
		recoveryAlert := stateChanged && status == domain.StatusGood && a.cfg.AlertOnRecovery // bypass cooldown

		if downAlert || recoveryAlert {
			title := "🔴 Website DOWN"
			if status == domain.StatusGood {
				title = "🟢 Website RECOVERED"
			}

			text := fmt.Sprintf(
				"URL: %s\nStatus: %s\nLatency: %.0f ms\nReported: %s",
				w.URL, status, latest.LatencyMS, latest.CreatedAt.Format(time.RFC3339),
			)

			// Best-effort send and record the send time.
			if err := a.notifier.Send(ctx, title, text); err != nil {
				a.log.Warn("alerter: notify failed", zap.String("url", w.URL), zap.Error(err))
			}
			_ = a.alertDB.Set(ctx, w.ID, status, now)
			continue
		}

		// If the status changed but we did not send (Bad within cooldown, or
		// recovery alerts disabled), still record the new status without a
		// send time so the next transition is detected correctly.
		if stateChanged {
			_ = a.alertDB.Set(ctx, w.ID, status, time.Time{})
		}
	}

	return nil
}
