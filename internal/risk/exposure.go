package risk

import (
	"bytes"
	"fmt"
	"sort"
	"text/tabwriter"

	"fxrisk/internal/models"
)

// Aggregate sums bc_delta per currency code. Rows with a missing bc_delta
// are left out of the sum; a currency whose rows are all missing still gets
// a row with a zero total. Rows without a currency code are dropped.
func Aggregate(rows []models.RiskRow) models.ExposureSummary {
	totals := make(map[string]float64)
	for _, row := range rows {
		if row.Currency == "" {
			continue
		}
		v, ok := row.BCDelta.Get()
		if !ok {
			v = 0
		}
		totals[row.Currency] += v
	}

	summary := make(models.ExposureSummary, 0, len(totals))
	for ccy, total := range totals {
		summary = append(summary, models.ExposureRow{Currency: ccy, TotalBCDelta: total})
	}
	sort.Slice(summary, func(i, j int) bool { return summary[i].Currency < summary[j].Currency })
	return summary
}

// RenderSummary formats the summary as a right aligned plain text table with
// a CCY and total_bc_delta header.
func RenderSummary(summary models.ExposureSummary) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "CCY\ttotal_bc_delta\t\n")
	for _, row := range summary {
		fmt.Fprintf(w, "%s\t%.2f\t\n", row.Currency, row.TotalBCDelta)
	}
	_ = w.Flush()
	return buf.String()
}

// Unpriced counts option rows left without an implied volatility.
func Unpriced(rows []models.RiskRow) int {
	n := 0
	for _, row := range rows {
		if row.IsOption() && !row.ImpliedVolatility.Valid {
			n++
		}
	}
	return n
}
