package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/upmesh/upmesh/internal/alert"
	"github.com/upmesh/upmesh/internal/config"
	"github.com/upmesh/upmesh/internal/httpapi"
	apimw "github.com/upmesh/upmesh/internal/httpapi/middleware"
	"github.com/upmesh/upmesh/internal/ingest"
	"github.com/upmesh/upmesh/internal/logging"
	"github.com/upmesh/upmesh/internal/notify"
	"github.com/upmesh/upmesh/internal/repo"
	"github.com/upmesh/upmesh/internal/repo/memory"
	"github.com/upmesh/upmesh/internal/repo/postgres"
)

// stores bundles the four persistence ports; both adapters satisfy all of
// them with a single value.
type stores struct {
	websites   repo.WebsiteStore
	validators repo.ValidatorStore
	ticks      repo.TickStore
	alerts     repo.AlertStore
}

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, "collector.log")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	var st stores
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_init", zap.Error(err))
		}
		defer pg.Close()
		st = stores{websites: pg, validators: pg, ticks: pg, alerts: pg}
		logger.Info("store_postgres")
	} else {
		mem := memory.New()
		st = stores{websites: mem, validators: mem, ticks: mem, alerts: mem}
		logger.Info("store_memory")
	}

	svc := ingest.New(logger, st.websites, st.validators, st.ticks)
	api := httpapi.NewServer(logger, st.websites, st.validators, st.ticks, svc)

	if cfg.SlackWebhook != "" {
		al := alert.NewAlerter(logger, st.websites, st.ticks, st.alerts,
			notify.Multi{notify.NewSlack(cfg.SlackWebhook)},
			alert.Config{
				AlertOnRecovery: cfg.AlertOnRecovery,
				Cooldown:        cfg.AlertCooldown,
				PollInterval:    cfg.AlertPollInterval,
			})
		go func() { _ = al.Run(ctx) }()
		logger.Info("alerter_started")
	}

	if cfg.TickRetentionDays > 0 {
		go evictionLoop(ctx, logger, st.ticks, cfg.TickRetentionDays)
	}

	router := api.Router(
		apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys},
		cfg.AllowedOrigins,
		cfg.PublicRPM, cfg.PublicBurst,
		cfg.AdminRPM, cfg.AdminBurst,
	)

	logger.Info("collector_listen", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatal(err)
	}
}
