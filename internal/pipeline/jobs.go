package pipeline

import (
	"context"
	"fmt"

	"fxrisk/internal/inventory"
	"fxrisk/internal/metrics"
	"fxrisk/internal/models"
	"fxrisk/internal/notify"
	"fxrisk/internal/risk"
	"fxrisk/logger"
)

// RiskReport is what a risk run produced.
type RiskReport struct {
	risk.Result
	Snapshot *SnapshotSummary
	Table    string
}

type SnapshotSummary struct {
	Reason   string
	Symbols  int
	Received int
	Missing  []string
}

func (r *Runner) risk(ctx context.Context) (*RiskReport, error) {
	log := r.log.WithComponent("risk").WithField("run_id", r.runID)

	positions, err := r.api.Positions(ctx, r.cfg.API.Account)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	fx := inventory.FilterFX(positions)

	futures, err := r.store.Futures(ctx)
	if err != nil {
		return nil, err
	}
	chain, err := r.store.OptionChain(ctx)
	if err != nil {
		return nil, err
	}
	if len(futures) == 0 {
		log.Warn("futures master data is empty; run the masterdata job first")
	}

	inv := inventory.Build(fx, futures, chain)
	if err := r.store.ReplacePositions(ctx, inv); err != nil {
		log.WithError(err).Error("failed to store inventory")
	}
	symbols := inventory.StreamerSymbols(inv)
	logger.LogDataFlowEntry(log, "positions", "inventory", len(inv), "fx_positions")

	token, err := r.api.QuoteToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch quote token: %w", err)
	}

	snap, err := r.stream(ctx, token, symbols)
	if err != nil {
		return nil, fmt.Errorf("quote snapshot: %w", err)
	}
	if snap.Err != nil {
		log.WithError(snap.Err).Warn("quote stream ended early; pricing partial snapshot")
	}
	metrics.EmitSnapshot(r.log, metrics.SnapshotStats{
		RunID:    r.runID,
		Reason:   string(snap.Reason),
		Symbols:  snap.Symbols,
		Received: snap.Symbols - len(snap.Missing),
		Missing:  len(snap.Missing),
		Quotes:   len(snap.Quotes),
		Duration: snap.Duration,
	})

	loc, err := r.cfg.Risk.DeskLocation()
	if err != nil {
		return nil, err
	}
	result := risk.Compute(inv, snap.QuoteMap(), risk.EvaluationInstant(r.now(), loc))
	metrics.EmitRisk(r.log, metrics.RiskStats{
		RunID:      r.runID,
		Rows:       len(result.Rows),
		Unpriced:   result.Unpriced,
		Currencies: len(result.Summary),
	})

	report := &RiskReport{
		Result: result,
		Snapshot: &SnapshotSummary{
			Reason:   string(snap.Reason),
			Symbols:  snap.Symbols,
			Received: snap.Symbols - len(snap.Missing),
			Missing:  snap.Missing,
		},
		Table: risk.RenderSummary(result.Summary),
	}
	r.publish(ctx, report)
	return report, nil
}

// publish hands the results to the collaborators. Their failures never
// discard the computed report.
func (r *Runner) publish(ctx context.Context, report *RiskReport) {
	log := r.log.WithComponent("risk").WithField("run_id", r.runID)

	if err := r.store.SaveRiskRows(ctx, r.runID, report.At, report.Rows); err != nil {
		log.WithError(err).Error("failed to store risk rows")
	}
	if err := r.store.SaveExposure(ctx, r.runID, report.At, report.Summary); err != nil {
		log.WithError(err).Error("failed to store exposure summary")
	}

	if r.archive != nil {
		if _, err := r.archive.WriteRiskRows(ctx, r.runID, report.At, report.Rows); err != nil {
			log.WithError(err).Error("failed to archive risk rows")
		}
		if _, err := r.archive.WriteExposure(ctx, r.runID, report.At, report.Summary); err != nil {
			log.WithError(err).Error("failed to archive exposure summary")
		}
	}

	title := "FX delta " + report.At.Format("2006-01-02 15:04 MST")
	if report.Snapshot != nil && len(report.Snapshot.Missing) > 0 {
		title += fmt.Sprintf(" (%d/%d symbols quoted)", report.Snapshot.Received, report.Snapshot.Symbols)
	}
	r.notify(ctx, notify.ExposureMessage(title, report.Table))
}

func (r *Runner) masterdata(ctx context.Context) error {
	log := r.log.WithComponent("masterdata").WithField("run_id", r.runID)

	futures, err := r.api.FuturesInstruments(ctx)
	if err != nil {
		return fmt.Errorf("fetch futures instruments: %w", err)
	}
	if err := r.store.ReplaceFutures(ctx, futures); err != nil {
		return err
	}
	log.WithField("rows", len(futures)).Info("futures master data refreshed")
	r.notify(ctx, "Masterdata Futures job done")

	var chain []models.OptionChainEntry
	for _, root := range r.cfg.API.OptionRoots {
		entries, err := r.api.FutureOptionChain(ctx, root)
		if err != nil {
			return fmt.Errorf("fetch option chain %s: %w", root, err)
		}
		log.WithFields(logger.Fields{"root": root, "rows": len(entries)}).Debug("option chain fetched")
		chain = append(chain, entries...)
	}
	if err := r.store.ReplaceOptionChain(ctx, chain); err != nil {
		return err
	}
	log.WithField("rows", len(chain)).Info("FX option chains refreshed")
	r.notify(ctx, "Masterdata FX Futures Options job done")
	return nil
}

func (r *Runner) nav(ctx context.Context) error {
	balance, err := r.api.Balances(ctx, r.cfg.API.Account)
	if err != nil {
		return fmt.Errorf("fetch balances: %w", err)
	}
	nav, ok := balance.NetLiquidatingValue.Get()
	if !ok {
		return fmt.Errorf("balances carried no net liquidating value")
	}
	if err := r.store.AppendNAV(ctx, r.now(), nav); err != nil {
		return err
	}
	r.log.WithComponent("nav").WithFields(logger.Fields{"run_id": r.runID, "nav": nav}).Info("nav recorded")
	r.notify(ctx, notify.NAVMessage(nav))
	return nil
}
