package domain

import "strings"

// Transaction is one normalized transaction as supplied by upstream
// extraction. It is a stateless value: agents read it, none of them mutate
// it in place. Amount sign convention is caller-defined (debits may be
// negative).
type Transaction struct {
	Description string  `json:"description,omitempty"`
	Merchant    string  `json:"merchant,omitempty"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date,omitempty"`
	// TransactionDate is an alternate date field name some upstream sources
	// emit; When() prefers Date and falls back to this.
	TransactionDate string `json:"transaction_date,omitempty"`
	// Category is optional; the classification engine fills it when absent.
	Category Category `json:"category,omitempty"`
}

// When returns the best available date string for the transaction, which
// may be empty.
func (t Transaction) When() string {
	if t.Date != "" {
		return t.Date
	}
	return t.TransactionDate
}

// SearchText returns the uppercased description+merchant text used by the
// keyword rule engines.
func (t Transaction) SearchText() string {
	return strings.ToUpper(t.Description) + " " + strings.ToUpper(t.Merchant)
}
