package receipts

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/classify"
	"github.com/dvloznov/expense-insights/internal/domain"
)

// Expense is the normalized expense derived from one receipt record.
type Expense struct {
	FileID   string          `json:"file_id"`
	Merchant string          `json:"merchant"`
	Date     string          `json:"date"`
	Total    float64         `json:"total"`
	Items    []ReceiptItem   `json:"items"`
	Category domain.Category `json:"category"`
	RawText  string          `json:"raw_text"`
}

// Extractor turns raw receipt records into normalized expenses. Category
// resolution goes through the shared classifier, so keyword rules win and
// the model is only consulted for unmatched merchants.
type Extractor struct {
	classifier *classify.Engine
	log        zerolog.Logger
}

// NewExtractor creates an extractor over the given classifier.
func NewExtractor(classifier *classify.Engine, log zerolog.Logger) *Extractor {
	return &Extractor{classifier: classifier, log: log}
}

// Extract normalizes one record. The receipt's own total_amount wins when
// present; otherwise the item prices are summed.
func (e *Extractor) Extract(ctx context.Context, rec Record) Expense {
	parsed := SafeParse(rec.Parsed)

	total := ItemTotal(parsed.Items)
	if parsed.TotalAmount != nil {
		total = *parsed.TotalAmount
	}
	total = math.Round(total*100) / 100

	date := ""
	if parsed.Date != nil {
		date = *parsed.Date
	}

	exp := Expense{
		FileID:   rec.FileID,
		Merchant: parsed.Merchant(),
		Date:     date,
		Total:    total,
		Items:    parsed.Items,
		RawText:  rec.RawText,
	}
	exp.Category = e.classifier.Classify(ctx, domain.Transaction{
		Description: itemText(parsed.Items),
		Merchant:    exp.Merchant,
		Amount:      -total,
		Date:        date,
	})
	return exp
}

// ExtractAll normalizes records in order.
func (e *Extractor) ExtractAll(ctx context.Context, recs []Record) []Expense {
	out := make([]Expense, len(recs))
	for i, rec := range recs {
		out[i] = e.Extract(ctx, rec)
	}
	return out
}

func itemText(items []ReceiptItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.Description != "" {
			parts = append(parts, it.Description)
		}
	}
	return strings.Join(parts, " ")
}

// Transactions converts expenses into the transaction shape the analytics
// agents consume. Spend is negative by convention.
func Transactions(exps []Expense) []domain.Transaction {
	out := make([]domain.Transaction, len(exps))
	for i, exp := range exps {
		out[i] = domain.Transaction{
			Description: exp.Merchant,
			Merchant:    exp.Merchant,
			Amount:      -exp.Total,
			Date:        exp.Date,
			Category:    exp.Category,
		}
	}
	return out
}
