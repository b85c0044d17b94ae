package store

import (
	"time"

	"fxrisk/internal/models"
)

type positionRecord struct {
	ID uint `gorm:"primaryKey"`
	models.InstrumentPosition
}

func (positionRecord) TableName() string { return "fx_positions" }

type futureRecord struct {
	ID uint `gorm:"primaryKey"`
	models.FutureInstrument
}

func (futureRecord) TableName() string { return "masterdatafutures" }

type optionChainRecord struct {
	ID uint `gorm:"primaryKey"`
	models.OptionChainEntry
}

func (optionChainRecord) TableName() string { return "fxoptchain" }

type riskRowRecord struct {
	ID          uint      `gorm:"primaryKey"`
	RunID       string    `gorm:"column:run_id;index"`
	EvaluatedAt time.Time `gorm:"column:evaluated_at"`
	models.InstrumentPosition

	OptionBid  models.Float `gorm:"column:option_bid"`
	OptionAsk  models.Float `gorm:"column:option_ask"`
	OptionBidQ models.Float `gorm:"column:option_bid_size"`
	OptionAskQ models.Float `gorm:"column:option_ask_size"`
	FutureBid  models.Float `gorm:"column:future_bid"`
	FutureAsk  models.Float `gorm:"column:future_ask"`
	FutureBidQ models.Float `gorm:"column:future_bid_size"`
	FutureAskQ models.Float `gorm:"column:future_ask_size"`

	MidOption models.Float `gorm:"column:mid_option"`
	MidFuture models.Float `gorm:"column:mid_future"`
	T         models.Float `gorm:"column:t"`
	IV        models.Float `gorm:"column:iv"`
	Delta     models.Float `gorm:"column:delta"`
	PosDelta  models.Float `gorm:"column:pos_delta"`
	BCDelta   models.Float `gorm:"column:bc_delta"`
	Currency  string       `gorm:"column:ccy"`
}

func (riskRowRecord) TableName() string { return "risk_rows" }

func newRiskRowRecord(runID string, at time.Time, row models.RiskRow) riskRowRecord {
	return riskRowRecord{
		RunID:              runID,
		EvaluatedAt:        at.UTC(),
		InstrumentPosition: row.InstrumentPosition,
		OptionBid:          row.Option.BidPrice,
		OptionAsk:          row.Option.AskPrice,
		OptionBidQ:         row.Option.BidSize,
		OptionAskQ:         row.Option.AskSize,
		FutureBid:          row.Future.BidPrice,
		FutureAsk:          row.Future.AskPrice,
		FutureBidQ:         row.Future.BidSize,
		FutureAskQ:         row.Future.AskSize,
		MidOption:          row.MidOption,
		MidFuture:          row.MidFuture,
		T:                  row.T,
		IV:                 row.ImpliedVolatility,
		Delta:              row.Delta,
		PosDelta:           row.PosDelta,
		BCDelta:            row.BCDelta,
		Currency:           row.Currency,
	}
}

func (r riskRowRecord) toModel() models.RiskRow {
	return models.RiskRow{
		InstrumentPosition: r.InstrumentPosition,
		Option:             models.Leg{BidPrice: r.OptionBid, AskPrice: r.OptionAsk, BidSize: r.OptionBidQ, AskSize: r.OptionAskQ},
		Future:             models.Leg{BidPrice: r.FutureBid, AskPrice: r.FutureAsk, BidSize: r.FutureBidQ, AskSize: r.FutureAskQ},
		MidOption:          r.MidOption,
		MidFuture:          r.MidFuture,
		T:                  r.T,
		ImpliedVolatility:  r.IV,
		Delta:              r.Delta,
		PosDelta:           r.PosDelta,
		BCDelta:            r.BCDelta,
		Currency:           r.Currency,
	}
}

type exposureRecord struct {
	ID           uint      `gorm:"primaryKey"`
	RunID        string    `gorm:"column:run_id"`
	EvaluatedAt  time.Time `gorm:"column:evaluated_at"`
	Currency     string    `gorm:"column:ccy"`
	TotalBCDelta float64   `gorm:"column:total_bc_delta"`
}

func (exposureRecord) TableName() string { return "exposure_summary" }

type navRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"column:timestamp;index"`
	NAV       float64   `gorm:"column:nav"`
}

func (navRecord) TableName() string { return "nav" }
