package models

import "time"

// InstrumentKind mirrors the brokerage instrument-type field.
type InstrumentKind string

const (
	KindFuture       InstrumentKind = "Future"
	KindFutureOption InstrumentKind = "Future Option"
)

// Direction is the quantity direction of a held position.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// InstrumentPosition is one held position as produced by the inventory
// builder. StreamerSymbol identifies the instrument (for options, the
// underlying future) on the quote feed; OptionStreamerSymbol identifies the
// option itself and is only set for option rows or minifuture fallbacks.
type InstrumentPosition struct {
	Symbol               string         `json:"symbol" gorm:"column:symbol"`
	UnderlyingSymbol     string         `json:"underlying-symbol" gorm:"column:underlying_symbol"`
	InstrumentType       InstrumentKind `json:"instrument-type" gorm:"column:instrument_type"`
	Quantity             Float          `json:"quantity" gorm:"column:quantity"`
	QuantityDirection    Direction      `json:"quantity-direction" gorm:"column:quantity_direction"`
	ContractSize         Float          `json:"contract-size" gorm:"column:contract_size"`
	StrikePrice          Float          `json:"strike-price" gorm:"column:strike_price"`
	ExpiresAt            *time.Time     `json:"expires-at,omitempty" gorm:"column:expires_at"`
	StreamerSymbol       string         `json:"streamer-symbol" gorm:"column:streamer_symbol"`
	OptionStreamerSymbol string         `json:"option-streamer-symbol" gorm:"column:option_streamer_symbol"`
}

// IsOption reports whether the position is a futures option.
func (p InstrumentPosition) IsOption() bool { return p.InstrumentType == KindFutureOption }

// IsFuture reports whether the position is an outright future.
func (p InstrumentPosition) IsFuture() bool { return p.InstrumentType == KindFuture }

// FutureInstrument is a row of futures master data.
type FutureInstrument struct {
	Symbol         string `json:"symbol" gorm:"column:symbol"`
	StreamerSymbol string `json:"streamer-symbol" gorm:"column:streamer_symbol"`
	ContractSize   Float  `json:"contract-size" gorm:"column:contract_size"`
}

// OptionChainEntry is a row of a futures option chain.
type OptionChainEntry struct {
	Symbol         string `json:"symbol" gorm:"column:symbol"`
	StreamerSymbol string `json:"streamer-symbol" gorm:"column:streamer_symbol"`
	StrikePrice    Float  `json:"strike-price" gorm:"column:strike_price"`
}
