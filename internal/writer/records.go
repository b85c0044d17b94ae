package writer

import (
	"time"

	"fxrisk/internal/models"
)

type riskRecord struct {
	RunID                string   `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	EvaluatedAt          int64    `parquet:"name=evaluated_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Symbol               string   `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	UnderlyingSymbol     string   `parquet:"name=underlying_symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	InstrumentType       string   `parquet:"name=instrument_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	QuantityDirection    string   `parquet:"name=quantity_direction, type=BYTE_ARRAY, convertedtype=UTF8"`
	StreamerSymbol       string   `parquet:"name=streamer_symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	OptionStreamerSymbol string   `parquet:"name=option_streamer_symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	ExpiresAt            *int64   `parquet:"name=expires_at, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`
	Quantity             *float64 `parquet:"name=quantity, type=DOUBLE, repetitiontype=OPTIONAL"`
	ContractSize         *float64 `parquet:"name=contract_size, type=DOUBLE, repetitiontype=OPTIONAL"`
	StrikePrice          *float64 `parquet:"name=strike_price, type=DOUBLE, repetitiontype=OPTIONAL"`
	OptionBid            *float64 `parquet:"name=option_bid, type=DOUBLE, repetitiontype=OPTIONAL"`
	OptionAsk            *float64 `parquet:"name=option_ask, type=DOUBLE, repetitiontype=OPTIONAL"`
	FutureBid            *float64 `parquet:"name=future_bid, type=DOUBLE, repetitiontype=OPTIONAL"`
	FutureAsk            *float64 `parquet:"name=future_ask, type=DOUBLE, repetitiontype=OPTIONAL"`
	MidOption            *float64 `parquet:"name=mid_option, type=DOUBLE, repetitiontype=OPTIONAL"`
	MidFuture            *float64 `parquet:"name=mid_future, type=DOUBLE, repetitiontype=OPTIONAL"`
	T                    *float64 `parquet:"name=t, type=DOUBLE, repetitiontype=OPTIONAL"`
	IV                   *float64 `parquet:"name=iv, type=DOUBLE, repetitiontype=OPTIONAL"`
	Delta                *float64 `parquet:"name=delta, type=DOUBLE, repetitiontype=OPTIONAL"`
	PosDelta             *float64 `parquet:"name=pos_delta, type=DOUBLE, repetitiontype=OPTIONAL"`
	BCDelta              *float64 `parquet:"name=bc_delta, type=DOUBLE, repetitiontype=OPTIONAL"`
	Currency             string   `parquet:"name=ccy, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func newRiskRecord(runID string, at time.Time, row models.RiskRow) riskRecord {
	rec := riskRecord{
		RunID:                runID,
		EvaluatedAt:          at.UTC().UnixMilli(),
		Symbol:               row.Symbol,
		UnderlyingSymbol:     row.UnderlyingSymbol,
		InstrumentType:       string(row.InstrumentType),
		QuantityDirection:    string(row.QuantityDirection),
		StreamerSymbol:       row.StreamerSymbol,
		OptionStreamerSymbol: row.OptionStreamerSymbol,
		Quantity:             row.Quantity.Ptr(),
		ContractSize:         row.ContractSize.Ptr(),
		StrikePrice:          row.StrikePrice.Ptr(),
		OptionBid:            row.Option.BidPrice.Ptr(),
		OptionAsk:            row.Option.AskPrice.Ptr(),
		FutureBid:            row.Future.BidPrice.Ptr(),
		FutureAsk:            row.Future.AskPrice.Ptr(),
		MidOption:            row.MidOption.Ptr(),
		MidFuture:            row.MidFuture.Ptr(),
		T:                    row.T.Ptr(),
		IV:                   row.ImpliedVolatility.Ptr(),
		Delta:                row.Delta.Ptr(),
		PosDelta:             row.PosDelta.Ptr(),
		BCDelta:              row.BCDelta.Ptr(),
		Currency:             row.Currency,
	}
	if row.ExpiresAt != nil {
		ms := row.ExpiresAt.UTC().UnixMilli()
		rec.ExpiresAt = &ms
	}
	return rec
}

type exposureRecord struct {
	RunID        string  `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	EvaluatedAt  int64   `parquet:"name=evaluated_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Currency     string  `parquet:"name=ccy, type=BYTE_ARRAY, convertedtype=UTF8"`
	TotalBCDelta float64 `parquet:"name=total_bc_delta, type=DOUBLE"`
}
