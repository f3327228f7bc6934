package domain

import "strings"

// Intent is a category of user request, driving which agents the dispatcher
// runs for a query.
type Intent string

const (
	IntentSummary    Intent = "SUMMARY"
	IntentTax        Intent = "TAX"
	IntentCompliance Intent = "COMPLIANCE"
	IntentCategory   Intent = "CATEGORY"
	IntentUnknown    Intent = "UNKNOWN"
)

// KnownIntents lists every intent the dispatcher understands.
var KnownIntents = []Intent{
	IntentSummary,
	IntentTax,
	IntentCompliance,
	IntentCategory,
	IntentUnknown,
}

// ParseIntent resolves free text to a known intent, or IntentUnknown.
func ParseIntent(s string) Intent {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, in := range KnownIntents {
		if upper == string(in) {
			return in
		}
	}
	return IntentUnknown
}
