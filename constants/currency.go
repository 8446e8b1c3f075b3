package constants

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CurrencyEUR is the canonical code every Euro spelling collapses to.
const CurrencyEUR = "EUR"

// euroSpellings are the lower-cased, NFKC-folded Euro forms models emit.
var euroSpellings = map[string]struct{}{
	"€":     {},
	"eur":   {},
	"eur.":  {},
	"euro":  {},
	"euros": {},
	"eur €": {},
	"€ eur": {},
}

// CanonicalizeCurrency maps known Euro spellings to "EUR". Any other value is
// returned unchanged and ok is false.
func CanonicalizeCurrency(input string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(norm.NFKC.String(input)))
	if normalized == "" {
		return input, false
	}
	if _, found := euroSpellings[normalized]; found {
		return CurrencyEUR, true
	}
	return input, false
}
