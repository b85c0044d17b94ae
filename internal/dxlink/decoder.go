package dxlink

import (
	"bytes"
	"encoding/json"
	"fmt"

	"fxrisk/internal/models"
)

// quoteStride is the number of values per Quote event in COMPACT format.
var quoteStride = len(quoteFields)

// FeedBatch is one (event kind, flat values) pair of a COMPACT payload.
type FeedBatch struct {
	Kind   string
	Values []any
}

// DecodeFeedData splits the data member of a FEED_DATA message,
// ["Quote", [v0, v1, ...], "Quote", [...]], into batches.
func DecodeFeedData(raw json.RawMessage) ([]FeedBatch, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: feed data is not an array: %v", ErrProtocol, err)
	}
	if len(items)%2 != 0 {
		return nil, fmt.Errorf("%w: feed data has %d items, want kind/values pairs", ErrProtocol, len(items))
	}

	batches := make([]FeedBatch, 0, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		var kind string
		if err := json.Unmarshal(items[i], &kind); err != nil {
			return nil, fmt.Errorf("%w: feed kind at %d: %v", ErrProtocol, i, err)
		}
		dec := json.NewDecoder(bytes.NewReader(items[i+1]))
		dec.UseNumber()
		var values []any
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("%w: values for %s: %v", ErrProtocol, kind, err)
		}
		batches = append(batches, FeedBatch{Kind: kind, Values: values})
	}
	return batches, nil
}

// DecodeQuotes walks values in strides of six (eventType, eventSymbol,
// bidPrice, askPrice, bidSize, askSize). A trailing partial stride is
// dropped, as is any stride without a symbol. Numeric fields that do not
// parse are missing.
func DecodeQuotes(feedKind string, values []any) []models.QuoteRecord {
	n := len(values) / quoteStride
	out := make([]models.QuoteRecord, 0, n)
	for i := 0; i+quoteStride <= len(values); i += quoteStride {
		v := values[i : i+quoteStride]
		symbol, ok := v[1].(string)
		if !ok || symbol == "" {
			continue
		}
		eventKind, _ := v[0].(string)
		out = append(out, models.QuoteRecord{
			FeedKind:       feedKind,
			EventKind:      eventKind,
			StreamerSymbol: symbol,
			BidPrice:       models.ParseFloat(v[2]),
			AskPrice:       models.ParseFloat(v[3]),
			BidSize:        models.ParseFloat(v[4]),
			AskSize:        models.ParseFloat(v[5]),
		})
	}
	return out
}

// QuoteBook keeps the latest record per streamer symbol. Records come back
// in the order their symbol was first seen.
type QuoteBook struct {
	order  []string
	latest map[string]models.QuoteRecord
}

func NewQuoteBook() *QuoteBook {
	return &QuoteBook{latest: make(map[string]models.QuoteRecord)}
}

func (b *QuoteBook) Put(rec models.QuoteRecord) {
	if _, seen := b.latest[rec.StreamerSymbol]; !seen {
		b.order = append(b.order, rec.StreamerSymbol)
	}
	b.latest[rec.StreamerSymbol] = rec
}

func (b *QuoteBook) Get(symbol string) (models.QuoteRecord, bool) {
	rec, ok := b.latest[symbol]
	return rec, ok
}

func (b *QuoteBook) Len() int {
	return len(b.order)
}

func (b *QuoteBook) Records() []models.QuoteRecord {
	out := make([]models.QuoteRecord, 0, len(b.order))
	for _, s := range b.order {
		out = append(out, b.latest[s])
	}
	return out
}
