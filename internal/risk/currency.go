package risk

import "regexp"

// currencyPattern matches a CME FX futures root: the digit 6 followed by one
// word character, e.g. 6E (EUR), 6J (JPY), 6B (GBP). The first match in the
// underlying symbol wins, so "/6EZ4", "/M6EZ4" and "./6JZ4 JPUZ4" resolve to
// 6E, 6E and 6J.
var currencyPattern = regexp.MustCompile(`6\w`)

// CurrencyCode extracts the currency code from an underlying symbol. It
// returns "" when the symbol carries no code; such rows are left out of the
// exposure summary.
func CurrencyCode(underlying string) string {
	return currencyPattern.FindString(underlying)
}
