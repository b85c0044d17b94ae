// Package store persists inventory, master data and risk results in sqlite
// through gorm. Every snapshot table is replaced wholesale on write; only the
// nav table accumulates history.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fxrisk/internal/models"
	"fxrisk/logger"
)

const batchSize = 200

type Store struct {
	db  *gorm.DB
	log *logger.Entry
}

// Open connects to the sqlite database at path (":memory:" is accepted) and
// migrates every table.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// sqlite has a single writer and ":memory:" is per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&positionRecord{},
		&futureRecord{},
		&optionChainRecord{},
		&riskRowRecord{},
		&exposureRecord{},
		&navRecord{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{
		db:  db,
		log: logger.GetLogger().WithComponent("store").WithFields(logger.Fields{"path": path}),
	}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// replace swaps the whole content of model's table for records inside one
// transaction.
func replace[T any](ctx context.Context, s *Store, table string, records []T) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var zero T
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&zero).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, batchSize).Error; err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logger.Fields{"table": table, "rows": len(records)}).Debug("table replaced")
	return nil
}

func (s *Store) ReplacePositions(ctx context.Context, positions []models.InstrumentPosition) error {
	records := make([]positionRecord, len(positions))
	for i, p := range positions {
		records[i] = positionRecord{InstrumentPosition: p}
	}
	return replace(ctx, s, "fx_positions", records)
}

func (s *Store) Positions(ctx context.Context) ([]models.InstrumentPosition, error) {
	var records []positionRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load fx_positions: %w", err)
	}
	out := make([]models.InstrumentPosition, len(records))
	for i, r := range records {
		out[i] = r.InstrumentPosition
	}
	return out, nil
}

func (s *Store) ReplaceFutures(ctx context.Context, futures []models.FutureInstrument) error {
	records := make([]futureRecord, len(futures))
	for i, f := range futures {
		records[i] = futureRecord{FutureInstrument: f}
	}
	return replace(ctx, s, "masterdatafutures", records)
}

func (s *Store) Futures(ctx context.Context) ([]models.FutureInstrument, error) {
	var records []futureRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load masterdatafutures: %w", err)
	}
	out := make([]models.FutureInstrument, len(records))
	for i, r := range records {
		out[i] = r.FutureInstrument
	}
	return out, nil
}

func (s *Store) ReplaceOptionChain(ctx context.Context, chain []models.OptionChainEntry) error {
	records := make([]optionChainRecord, len(chain))
	for i, o := range chain {
		records[i] = optionChainRecord{OptionChainEntry: o}
	}
	return replace(ctx, s, "fxoptchain", records)
}

func (s *Store) OptionChain(ctx context.Context) ([]models.OptionChainEntry, error) {
	var records []optionChainRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load fxoptchain: %w", err)
	}
	out := make([]models.OptionChainEntry, len(records))
	for i, r := range records {
		out[i] = r.OptionChainEntry
	}
	return out, nil
}

// SaveRiskRows stores the priced rows of one run.
func (s *Store) SaveRiskRows(ctx context.Context, runID string, at time.Time, rows []models.RiskRow) error {
	records := make([]riskRowRecord, len(rows))
	for i, row := range rows {
		records[i] = newRiskRowRecord(runID, at, row)
	}
	return replace(ctx, s, "risk_rows", records)
}

// RiskRows returns the stored rows of the last run.
func (s *Store) RiskRows(ctx context.Context) ([]models.RiskRow, error) {
	var records []riskRowRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load risk_rows: %w", err)
	}
	out := make([]models.RiskRow, len(records))
	for i, r := range records {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *Store) SaveExposure(ctx context.Context, runID string, at time.Time, summary models.ExposureSummary) error {
	records := make([]exposureRecord, len(summary))
	for i, row := range summary {
		records[i] = exposureRecord{RunID: runID, EvaluatedAt: at.UTC(), Currency: row.Currency, TotalBCDelta: row.TotalBCDelta}
	}
	return replace(ctx, s, "exposure_summary", records)
}

func (s *Store) Exposure(ctx context.Context) (models.ExposureSummary, error) {
	var records []exposureRecord
	if err := s.db.WithContext(ctx).Order("ccy").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load exposure_summary: %w", err)
	}
	out := make(models.ExposureSummary, len(records))
	for i, r := range records {
		out[i] = models.ExposureRow{Currency: r.Currency, TotalBCDelta: r.TotalBCDelta}
	}
	return out, nil
}

// NAVPoint is one net liquidating value observation.
type NAVPoint struct {
	Timestamp time.Time
	NAV       float64
}

func (s *Store) AppendNAV(ctx context.Context, at time.Time, nav float64) error {
	record := navRecord{Timestamp: at.UTC(), NAV: nav}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("append nav: %w", err)
	}
	return nil
}

// NAVHistory returns every stored observation, oldest first.
func (s *Store) NAVHistory(ctx context.Context) ([]NAVPoint, error) {
	var records []navRecord
	if err := s.db.WithContext(ctx).Order("timestamp, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load nav: %w", err)
	}
	out := make([]NAVPoint, len(records))
	for i, r := range records {
		out[i] = NAVPoint{Timestamp: r.Timestamp, NAV: r.NAV}
	}
	return out, nil
}
