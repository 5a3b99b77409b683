package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/upmesh/upmesh/internal/config"
	"github.com/upmesh/upmesh/internal/logging"
	"github.com/upmesh/upmesh/internal/probe"
	"github.com/upmesh/upmesh/internal/report"
)

func main() {
	var (
		cfgPath  = flag.String("config", "validator.yaml", "path to the validator config file")
		logDir   = flag.String("logs", "logs", "directory for log files")
		server   = flag.String("server", "", "collector base URL (overrides config)")
		interval = flag.Int("interval", 0, "probe interval in seconds (overrides config)")
	)
	flag.Parse()

	logger, err := logging.NewLogger(*logDir, "validator.log")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	cfg, err := config.LoadValidator(*cfgPath)
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *interval > 0 {
		cfg.IntervalSeconds = *interval
	}

	client := report.NewClient(cfg.Server, cfg.PublicKey, logger)

	var source probe.TargetSource
	if cfg.TargetsFromServer {
		source = client.TargetFeed()
	} else {
		source = probe.StaticTargets(cfg.Targets)
	}

	engine := probe.NewEngine(
		logger,
		probe.NewHTTPChecker(cfg.Timeout()),
		client,
		source,
		probe.Config{
			Interval:       cfg.Interval(),
			Timeout:        cfg.Timeout(),
			Overlap:        probe.OverlapPolicy(cfg.Overlap),
			ReportFailures: cfg.ShouldReportFailures(),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("validator_start",
		zap.String("server", cfg.Server),
		zap.Duration("interval", cfg.Interval()),
		zap.Bool("targets_from_server", cfg.TargetsFromServer),
	)
	engine.Run(ctx)
}
