package dxlink

import (
	"encoding/json"
	"errors"
	"testing"

	"fxrisk/internal/models"
)

func TestDecodeQuotesStride(t *testing.T) {
	values := []any{
		"Quote", "/6EZ24:XCME", json.Number("1.1012"), json.Number("1.1014"), json.Number("10"), json.Number("12"),
		"Quote", "./6EZ24P1100:XCME", "NaN", 0.0021, 5, 7,
		"Quote", "/6JZ24:XCME", 0.0065,
	}
	got := DecodeQuotes("Quote", values)
	if len(got) != 2 {
		t.Fatalf("decoded %d records, want 2 (partial tail dropped)", len(got))
	}
	if got[0].StreamerSymbol != "/6EZ24:XCME" || got[0].EventKind != "Quote" || got[0].FeedKind != "Quote" {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if v, ok := got[0].AskPrice.Get(); !ok || v != 1.1014 {
		t.Fatalf("ask = %v", got[0].AskPrice)
	}
	if got[1].BidPrice.Valid {
		t.Fatalf("NaN bid should be missing")
	}
	if v, _ := got[1].AskSize.Get(); v != 7 {
		t.Fatalf("ask size = %v", got[1].AskSize)
	}
}

func TestDecodeQuotesSkipsUnnamedRecords(t *testing.T) {
	values := []any{"Quote", nil, 1.0, 1.0, 1, 1, "Quote", "A", 1.0, 1.0, 1, 1}
	got := DecodeQuotes("Quote", values)
	if len(got) != 1 || got[0].StreamerSymbol != "A" {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeFeedData(t *testing.T) {
	raw := json.RawMessage(`["Quote",["Quote","A",1.5,1.6,1,2],"Quote",["Quote","B",2.5,2.6,3,4]]`)
	batches, err := DecodeFeedData(raw)
	if err != nil {
		t.Fatalf("DecodeFeedData: %v", err)
	}
	if len(batches) != 2 || batches[1].Kind != "Quote" || len(batches[1].Values) != 6 {
		t.Fatalf("unexpected batches: %+v", batches)
	}

	for _, bad := range []string{`"Quote"`, `["Quote"]`, `[1,[]]`, `["Quote",{"a":1}]`} {
		if _, err := DecodeFeedData(json.RawMessage(bad)); !errors.Is(err, ErrProtocol) {
			t.Errorf("DecodeFeedData(%s) err = %v, want ErrProtocol", bad, err)
		}
	}
}

func TestQuoteBook(t *testing.T) {
	book := NewQuoteBook()
	book.Put(models.QuoteRecord{StreamerSymbol: "B", BidPrice: models.Some(1)})
	book.Put(models.QuoteRecord{StreamerSymbol: "A", BidPrice: models.Some(2)})
	book.Put(models.QuoteRecord{StreamerSymbol: "B", BidPrice: models.Some(3)})

	if book.Len() != 2 {
		t.Fatalf("len = %d", book.Len())
	}
	recs := book.Records()
	if recs[0].StreamerSymbol != "B" || recs[1].StreamerSymbol != "A" {
		t.Fatalf("order = %+v", recs)
	}
	if rec, ok := book.Get("B"); !ok || rec.BidPrice.Float64 != 3 {
		t.Fatalf("B = %+v", rec)
	}
}

func TestTracker(t *testing.T) {
	tr := NewTracker([]string{"A", "B", "A", ""})
	if tr.Len() != 2 {
		t.Fatalf("len = %d", tr.Len())
	}
	if tr.IsComplete() {
		t.Fatal("complete before any quote")
	}
	if !tr.MarkReceived("B") || tr.MarkReceived("B") {
		t.Fatal("MarkReceived should report only the first receipt")
	}
	if tr.MarkReceived("Z") {
		t.Fatal("symbol outside the set was tracked")
	}
	if m := tr.Missing(); len(m) != 1 || m[0] != "A" {
		t.Fatalf("missing = %v", m)
	}
	tr.MarkReceived("A")
	if !tr.IsComplete() || tr.Missing() != nil {
		t.Fatalf("expected complete, missing = %v", tr.Missing())
	}

	if !NewTracker(nil).IsComplete() {
		t.Fatal("empty tracker should be complete")
	}
}

func TestStateString(t *testing.T) {
	if StateFeedConfiguring.String() != "FEED_CONFIGURING" || State(99).String() != "UNKNOWN" {
		t.Fatal("unexpected state names")
	}
}
