package risk

import (
	"math"
	"strings"
	"testing"
	"time"

	"fxrisk/internal/models"
	"fxrisk/internal/pricing"
)

var evalAt = time.Date(2024, 9, 2, 8, 0, 0, 0, DefaultDeskLocation)

func expiryIn(years float64) *time.Time {
	t := evalAt.Add(time.Duration(years * secondsPerYear * float64(time.Second)))
	return &t
}

func quote(symbol string, bid, ask models.Float) models.QuoteRecord {
	return models.QuoteRecord{FeedKind: "Quote", EventKind: "Quote", StreamerSymbol: symbol, BidPrice: bid, AskPrice: ask, BidSize: models.Some(1), AskSize: models.Some(1)}
}

func optionPosition(symbol string, dir models.Direction, strike float64, expiry *time.Time) models.InstrumentPosition {
	return models.InstrumentPosition{
		Symbol:               symbol,
		UnderlyingSymbol:     "/6EZ4",
		InstrumentType:       models.KindFutureOption,
		Quantity:             models.Some(2),
		QuantityDirection:    dir,
		ContractSize:         models.Some(125000),
		StrikePrice:          models.Some(strike),
		ExpiresAt:            expiry,
		StreamerSymbol:       "/6EZ24:XCME",
		OptionStreamerSymbol: "./6EZ24C1120:XCME",
	}
}

func TestJoin(t *testing.T) {
	positions := []models.InstrumentPosition{
		optionPosition("./6EZ4 EUUZ4 241206C1.12", models.Long, 1.12, expiryIn(0.25)),
		{Symbol: "/6JZ4", UnderlyingSymbol: "/6JZ4", InstrumentType: models.KindFuture, StreamerSymbol: "/6JZ24:XCME"},
	}
	quotes := map[string]models.QuoteRecord{
		"./6EZ24C1120:XCME": quote("./6EZ24C1120:XCME", models.Some(0.0100), models.Some(0.0110)),
		"/6EZ24:XCME":       quote("/6EZ24:XCME", models.Some(1.0999), models.Some(1.1001)),
	}

	rows := Join(positions, quotes)
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if v, ok := rows[0].MidOption.Get(); !ok || math.Abs(v-0.0105) > 1e-12 {
		t.Fatalf("mid option = %v", rows[0].MidOption)
	}
	if v, ok := rows[0].MidFuture.Get(); !ok || math.Abs(v-1.1) > 1e-12 {
		t.Fatalf("mid future = %v", rows[0].MidFuture)
	}
	if rows[1].MidFuture.Valid || rows[1].Future.BidPrice.Valid {
		t.Fatalf("unmatched future leg should be missing: %+v", rows[1].Future)
	}
	if positions[1].StreamerSymbol != "/6JZ24:XCME" {
		t.Fatal("inputs were modified")
	}
}

func TestCalculatorMissingBidPropagates(t *testing.T) {
	pos := optionPosition("./6EZ4 EUUZ4 241206C1.12", models.Long, 1.12, expiryIn(0.25))
	quotes := map[string]models.QuoteRecord{
		"./6EZ24C1120:XCME": quote("./6EZ24C1120:XCME", models.None(), models.Some(0.011)),
		"/6EZ24:XCME":       quote("/6EZ24:XCME", models.Some(1.10), models.Some(1.10)),
	}

	res := Compute([]models.InstrumentPosition{pos}, quotes, evalAt)
	row := res.Rows[0]
	if row.MidOption.Valid {
		t.Fatalf("mid option should be missing, got %v", row.MidOption)
	}
	if row.ImpliedVolatility.Valid || row.Delta.Valid || row.PosDelta.Valid || row.BCDelta.Valid {
		t.Fatalf("missing mid must propagate: iv=%v delta=%v pos=%v bc=%v", row.ImpliedVolatility, row.Delta, row.PosDelta, row.BCDelta)
	}
	if v, ok := row.T.Get(); !ok || math.Abs(v-0.25) > 1e-9 {
		t.Fatalf("T = %v", row.T)
	}
	if res.Unpriced != 1 {
		t.Fatalf("unpriced = %d", res.Unpriced)
	}
	if total, ok := res.Summary.Total("6E"); !ok || total != 0 {
		t.Fatalf("6E total = %v, %v", total, ok)
	}
}

func TestCalculatorPricesOptions(t *testing.T) {
	const f, k, years, sigma = 1.10, 1.12, 0.25, 0.08
	callPrice := pricing.Price(f, k, years, sigma, pricing.Call)

	long := optionPosition("./6EZ4 EUUZ4 241206C1.12", models.Long, k, expiryIn(years))
	short := long
	short.QuantityDirection = models.Short

	rows := Join([]models.InstrumentPosition{long, short}, map[string]models.QuoteRecord{
		"./6EZ24C1120:XCME": quote("./6EZ24C1120:XCME", models.Some(callPrice), models.Some(callPrice)),
		"/6EZ24:XCME":       quote("/6EZ24:XCME", models.Some(f), models.Some(f)),
	})
	rows = NewCalculator(evalAt).Apply(rows)

	iv, ok := rows[0].ImpliedVolatility.Get()
	if !ok || iv != 8.0 {
		t.Fatalf("iv = %v", rows[0].ImpliedVolatility)
	}
	wantDelta := math.Round(pricing.Delta(f, k, years, sigma, pricing.Call)*100) / 100
	if d, _ := rows[0].Delta.Get(); d != wantDelta {
		t.Fatalf("delta = %v, want %v", d, wantDelta)
	}
	if p, _ := rows[0].PosDelta.Get(); p != wantDelta {
		t.Fatalf("long pos delta = %v", p)
	}
	if p, _ := rows[1].PosDelta.Get(); p != -wantDelta {
		t.Fatalf("short pos delta = %v", p)
	}
	if bc, _ := rows[0].BCDelta.Get(); math.Abs(bc-wantDelta*2*125000) > 1e-6 {
		t.Fatalf("bc delta = %v", bc)
	}
	if rows[0].Currency != "6E" {
		t.Fatalf("currency = %q", rows[0].Currency)
	}
}

func TestCalculatorUnbracketedPrice(t *testing.T) {
	pos := optionPosition("./6EZ4 EUUZ4 241206P1.12", models.Long, 1.12, expiryIn(0.25))
	rows := NewCalculator(evalAt).Apply(Join([]models.InstrumentPosition{pos}, map[string]models.QuoteRecord{
		"./6EZ24C1120:XCME": quote("./6EZ24C1120:XCME", models.Some(0.5), models.Some(0.5)),
		"/6EZ24:XCME":       quote("/6EZ24:XCME", models.Some(1.1), models.Some(1.1)),
	}))
	if rows[0].ImpliedVolatility.Valid || rows[0].Delta.Valid {
		t.Fatalf("unbracketed price should leave iv and delta missing: %+v", rows[0])
	}
}

func TestPosDeltaRules(t *testing.T) {
	tests := []struct {
		name string
		pos  models.InstrumentPosition
		want models.Float
	}{
		{"long future", models.InstrumentPosition{InstrumentType: models.KindFuture, QuantityDirection: models.Long}, models.Some(1)},
		{"short future", models.InstrumentPosition{InstrumentType: models.KindFuture, QuantityDirection: models.Short}, models.Some(-1)},
		{"other kind", models.InstrumentPosition{InstrumentType: "Equity", QuantityDirection: models.Long}, models.Some(0)},
		{"option without quotes", models.InstrumentPosition{InstrumentType: models.KindFutureOption, QuantityDirection: models.Long}, models.None()},
		{"option with no direction", models.InstrumentPosition{InstrumentType: models.KindFutureOption}, models.Some(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := NewCalculator(evalAt).Apply([]models.RiskRow{{InstrumentPosition: tt.pos}})
			if rows[0].PosDelta != tt.want {
				t.Fatalf("pos delta = %v, want %v", rows[0].PosDelta, tt.want)
			}
		})
	}
}

func TestBCDeltaCoercion(t *testing.T) {
	rows := NewCalculator(evalAt).Apply([]models.RiskRow{
		{InstrumentPosition: models.InstrumentPosition{InstrumentType: models.KindFuture, QuantityDirection: models.Short, Quantity: models.ParseFloat("3"), ContractSize: models.ParseFloat("12500000")}},
		{InstrumentPosition: models.InstrumentPosition{InstrumentType: models.KindFuture, QuantityDirection: models.Long, Quantity: models.ParseFloat("n/a"), ContractSize: models.Some(1)}},
	})
	if v, _ := rows[0].BCDelta.Get(); v != -37500000 {
		t.Fatalf("bc delta = %v", rows[0].BCDelta)
	}
	if rows[1].BCDelta.Valid {
		t.Fatalf("non-numeric quantity should yield missing bc delta")
	}
}

func TestCurrencyCode(t *testing.T) {
	cases := map[string]string{
		"/6EZ4":       "6E",
		"/M6EZ4":      "6E",
		"/6JZ4":       "6J",
		"./6BZ4 BPZ4": "6B",
		"/ESZ4":       "",
		"":            "",
	}
	for in, want := range cases {
		if got := CurrencyCode(in); got != want {
			t.Errorf("CurrencyCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAggregate(t *testing.T) {
	rows := []models.RiskRow{
		{Currency: "6J", BCDelta: models.Some(-25000)},
		{Currency: "6E", BCDelta: models.Some(100000)},
		{Currency: "6E", BCDelta: models.Some(-40000)},
		{Currency: "6E", BCDelta: models.None()},
		{Currency: "", BCDelta: models.Some(5)},
	}
	summary := Aggregate(rows)
	want := models.ExposureSummary{
		{Currency: "6E", TotalBCDelta: 60000},
		{Currency: "6J", TotalBCDelta: -25000},
	}
	if len(summary) != len(want) {
		t.Fatalf("summary = %+v", summary)
	}
	for i := range want {
		if summary[i] != want[i] {
			t.Fatalf("summary[%d] = %+v, want %+v", i, summary[i], want[i])
		}
	}
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(models.ExposureSummary{
		{Currency: "6E", TotalBCDelta: 60000},
		{Currency: "6J", TotalBCDelta: -25000},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if !strings.Contains(lines[0], "CCY") || !strings.Contains(lines[0], "total_bc_delta") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "6E") || !strings.HasSuffix(strings.TrimRight(lines[1], " "), "60000.00") {
		t.Fatalf("row = %q", lines[1])
	}
	if !strings.HasSuffix(strings.TrimRight(lines[2], " "), "-25000.00") {
		t.Fatalf("row = %q", lines[2])
	}
}

func TestEvaluationInstant(t *testing.T) {
	now := time.Date(2024, 9, 2, 14, 0, 0, 0, time.UTC)
	at := EvaluationInstant(now, nil)
	if !at.Equal(now) {
		t.Fatal("evaluation instant must be the same moment")
	}
	if _, off := at.Zone(); off != -6*3600 {
		t.Fatalf("offset = %d", off)
	}
	if TimeToExpiry(nil, at).Valid {
		t.Fatal("missing expiry should give missing T")
	}
}
