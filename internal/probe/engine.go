package probe

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OverlapPolicy decides what happens when a probe for a URL is still in
// flight when the next interval fires.
type OverlapPolicy string

const (
	// OverlapAllow dispatches regardless; slow targets accumulate
	// concurrent probes. This matches the original fire-and-forget agent.
	OverlapAllow OverlapPolicy = "allow"
	// OverlapSkip skips a URL whose previous probe hasn't finished.
	OverlapSkip OverlapPolicy = "skip"
)

// TargetSource supplies the URLs to probe each iteration. A static slice
// and a collector-backed feed both implement it.
type TargetSource interface {
	Targets(ctx context.Context) ([]string, error)
}

// StaticTargets is a fixed, construction-time target list.
type StaticTargets []string

func (s StaticTargets) Targets(ctx context.Context) ([]string, error) {
	return s, nil
}

// Reporter delivers one probe outcome to the collector.
type Reporter interface {
	Report(ctx context.Context, out Outcome) error
}

// Config is the engine's explicit configuration; the engine holds no
// process-wide state beyond what is passed here.
type Config struct {
	Interval       time.Duration
	Timeout        time.Duration
	Overlap        OverlapPolicy
	ReportFailures bool // forward transport failures as code-0 reports
}

// Engine probes every target once per interval and hands each outcome to
// the Reporter. Dispatch is fire-and-forget: the ticker re-arms whether or
// not previous probes finished, so overlap is possible under OverlapAllow.
type Engine struct {
	log      *zap.Logger
	checker  Checker
	reporter Reporter
	source   TargetSource
	cfg      Config

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewEngine(log *zap.Logger, checker Checker, reporter Reporter, source TargetSource, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Overlap == "" {
		cfg.Overlap = OverlapAllow
	}
	return &Engine{
		log:      log,
		checker:  checker,
		reporter: reporter,
		source:   source,
		cfg:      cfg,
		inFlight: make(map[string]bool),
	}
}

// Run fires an immediate pass, then one per interval. Stops when ctx is
// cancelled. The scheduling loop never blocks on in-flight probes.
func (e *Engine) Run(ctx context.Context) {
	t := time.NewTicker(e.cfg.Interval)
	defer t.Stop()

	e.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			e.log.Info("probe_engine_stopped")
			return
		case <-t.C:
			e.runOnce(ctx)
		}
	}
}

func (e *Engine) runOnce(ctx context.Context) {
	targets, err := e.source.Targets(ctx)
	if err != nil {
		e.log.Warn("target_list_error", zap.Error(err))
		return
	}
	for _, url := range targets {
		if e.cfg.Overlap == OverlapSkip && !e.acquire(url) {
			e.log.Debug("probe_skipped_in_flight", zap.String("url", url))
			continue
		}
		// one goroutine per URL: a failed or slow probe never blocks the rest
		go e.probeOne(ctx, url)
	}
}

func (e *Engine) probeOne(ctx context.Context, url string) {
	if e.cfg.Overlap == OverlapSkip {
		defer e.release(url)
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out := e.checker.Check(cctx, url)

	if out.Err != "" {
		e.log.Warn("probe_failed",
			zap.String("url", url),
			zap.String("error", out.Err),
		)
		if !e.cfg.ReportFailures {
			return
		}
	} else {
		e.log.Info("probe_done",
			zap.String("url", url),
			zap.Int("code", out.StatusCode),
			zap.Float64("latency_ms", out.LatencyMS),
		)
	}

	if err := e.reporter.Report(ctx, out); err != nil {
		// no retry queue: the tick is lost for this interval and the next
		// interval's probe supersedes it
		e.log.Warn("report_failed", zap.String("url", url), zap.Error(err))
	}
}

func (e *Engine) acquire(url string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[url] {
		return false
	}
	e.inFlight[url] = true
	return true
}

func (e *Engine) release(url string) {
	e.mu.Lock()
	delete(e.inFlight, url)
	e.mu.Unlock()
}
