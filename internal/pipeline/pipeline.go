// Package pipeline wires the brokerage client, the quote stream, the risk
// calculator and the collaborators (store, archive, notifier) into the
// runnable jobs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"fxrisk/config"
	"fxrisk/internal/dxlink"
	"fxrisk/internal/metrics"
	"fxrisk/internal/models"
	"fxrisk/internal/notify"
	"fxrisk/internal/store"
	"fxrisk/internal/tasty"
	"fxrisk/logger"
)

const (
	JobRisk       = "risk"
	JobMasterdata = "masterdata"
	JobNAV        = "nav"
)

// API is the subset of the brokerage client the jobs use.
type API interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	Positions(ctx context.Context, account string) ([]models.InstrumentPosition, error)
	Balances(ctx context.Context, account string) (tasty.Balance, error)
	QuoteToken(ctx context.Context) (tasty.QuoteToken, error)
	FuturesInstruments(ctx context.Context) ([]models.FutureInstrument, error)
	FutureOptionChain(ctx context.Context, root string) ([]models.OptionChainEntry, error)
}

// Archive receives the risk results of a run. It is optional.
type Archive interface {
	WriteRiskRows(ctx context.Context, runID string, at time.Time, rows []models.RiskRow) (string, error)
	WriteExposure(ctx context.Context, runID string, at time.Time, summary models.ExposureSummary) (string, error)
}

// StreamFunc collects one quote snapshot for symbols.
type StreamFunc func(ctx context.Context, token tasty.QuoteToken, symbols []string) (*dxlink.Snapshot, error)

type Runner struct {
	cfg      *config.Config
	api      API
	store    *store.Store
	archive  Archive
	notifier notify.Notifier
	stream   StreamFunc
	now      func() time.Time
	runID    string
	log      *logger.Log
}

// Option customises a Runner.
type Option func(*Runner)

func WithArchive(a Archive) Option { return func(r *Runner) { r.archive = a } }

func WithNotifier(n notify.Notifier) Option { return func(r *Runner) { r.notifier = n } }

func WithStream(fn StreamFunc) Option { return func(r *Runner) { r.stream = fn } }

func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

func NewRunner(cfg *config.Config, api API, st *store.Store, runID string, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		api:      api,
		store:    st,
		notifier: notify.Nop{},
		now:      time.Now,
		runID:    runID,
		log:      logger.GetLogger(),
	}
	r.stream = r.dxlinkSnapshot
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes job inside an authenticated brokerage session.
func (r *Runner) Run(ctx context.Context, job string) (*RiskReport, error) {
	log := r.log.WithComponent("pipeline").WithFields(logger.Fields{"job": job, "run_id": r.runID})
	start := time.Now()

	if err := r.api.Login(ctx, r.cfg.API.Username, r.cfg.API.Password); err != nil {
		metrics.ObserveRun(job, "error")
		return nil, fmt.Errorf("login: %w", err)
	}
	defer func() {
		// the run context may already be cancelled
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.API.Timeout)
		defer cancel()
		if err := r.api.Logout(logoutCtx); err != nil {
			log.WithError(err).Warn("logout failed")
		}
	}()

	var (
		report *RiskReport
		err    error
	)
	switch job {
	case JobRisk:
		report, err = r.risk(ctx)
	case JobMasterdata:
		err = r.masterdata(ctx)
	case JobNAV:
		err = r.nav(ctx)
	default:
		err = fmt.Errorf("unknown job %q", job)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ObserveRun(job, outcome)
	logger.LogPerformanceEntry(log, "pipeline", job, time.Since(start), logger.Fields{"outcome": outcome})
	return report, err
}

func (r *Runner) dxlinkSnapshot(ctx context.Context, token tasty.QuoteToken, symbols []string) (*dxlink.Snapshot, error) {
	cfg := r.cfg.Stream
	if cfg.URL == "" {
		cfg.URL = token.DxlinkURL
	}
	session, err := dxlink.NewSession(cfg, nil, token.Token, symbols)
	if err != nil {
		return nil, err
	}
	return session.Run(ctx)
}

// notify posts content; delivery failures are logged only.
func (r *Runner) notify(ctx context.Context, content string) {
	if err := r.notifier.Notify(ctx, content); err != nil {
		r.log.WithComponent("pipeline").WithError(err).Warn("notification failed")
	}
}
