// Package summary turns a transaction list into charts-ready aggregates and
// a model-written narrative. All aggregates are derived deterministically;
// only the narrative needs the model.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/classify"
	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/llm"
)

// EmptyReportText is returned when there is nothing to summarize. An empty
// input is a valid request, not an error.
const EmptyReportText = "No transactions available to summarize."

const narrativePlaceholder = "Summary unavailable."

const narrativeSystemPrompt = "You are a helpful financial analyst. " +
	"Explain clearly and briefly, focusing on actionable insights."

// dateLayouts are tried in order when grouping by month.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// Agent computes spending summaries.
type Agent struct {
	classifier *classify.Engine
	completer  llm.Completer
	log        zerolog.Logger
}

// NewAgent creates a summary agent.
func NewAgent(classifier *classify.Engine, completer llm.Completer, log zerolog.Logger) *Agent {
	return &Agent{classifier: classifier, completer: completer, log: log}
}

// DecodeRows converts loosely-typed JSON rows into transactions. It fails
// fast when no row carries an amount field at all (caller contract
// violation) and silently drops individual rows whose amount cannot be
// coerced to a number.
func DecodeRows(rows []map[string]any) ([]domain.Transaction, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	sawAmountField := false
	txs := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		raw, ok := row["amount"]
		if ok {
			sawAmountField = true
		}
		amount, ok := coerceAmount(raw)
		if !ok {
			continue
		}
		txs = append(txs, domain.Transaction{
			Description:     stringField(row, "description"),
			Merchant:        stringField(row, "merchant"),
			Amount:          amount,
			Date:            stringField(row, "date"),
			TransactionDate: stringField(row, "transaction_date"),
			Category:        domain.Category(stringField(row, "category")),
		})
	}
	if !sawAmountField {
		return nil, fmt.Errorf("DecodeRows: every transaction must have an 'amount' field")
	}
	return txs, nil
}

func stringField(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func coerceAmount(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Summarize is the main entrypoint. Empty input yields an empty report with
// a fixed message, never an error.
func (a *Agent) Summarize(ctx context.Context, txs []domain.Transaction) domain.SummaryReport {
	if len(txs) == 0 {
		return domain.SummaryReport{
			MonthlyTotals:       []domain.MonthlyTotal{},
			CategoryTotals:      []domain.CategoryTotal{},
			MerchantTotals:      []domain.MerchantTotal{},
			UnusualTransactions: []domain.UnusualTransaction{},
			SummaryText:         EmptyReportText,
		}
	}

	// Work on a copy: filling in categories and merchant fallbacks must not
	// mutate the caller's rows. This is the dominant cost path for
	// uncategorized bulk input: one model call per unmatched row.
	rows := make([]domain.Transaction, len(txs))
	copy(rows, txs)
	for i := range rows {
		if rows[i].Merchant == "" {
			rows[i].Merchant = rows[i].Description
		}
		if rows[i].Category == "" {
			rows[i].Category = a.classifier.Classify(ctx, rows[i])
		}
	}

	report := domain.SummaryReport{
		MonthlyTotals:       monthlyTotals(rows),
		CategoryTotals:      categoryTotals(rows),
		MerchantTotals:      merchantTotals(rows, 10),
		UnusualTransactions: unusualTransactions(rows),
	}
	report.SummaryText = a.narrative(ctx, report)
	return report
}

func monthlyTotals(rows []domain.Transaction) []domain.MonthlyTotal {
	sums := map[string]float64{}
	for _, tx := range rows {
		month, ok := parseMonth(tx.When())
		if !ok {
			continue
		}
		sums[month] += tx.Amount
	}

	out := make([]domain.MonthlyTotal, 0, len(sums))
	for month, total := range sums {
		out = append(out, domain.MonthlyTotal{Month: month, TotalAmount: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func parseMonth(date string) (string, bool) {
	if date == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("2006-01"), true
		}
	}
	return "", false
}

// categoryTotals groups by category and sorts ascending by total, so the
// largest debit appears first when amounts are signed.
func categoryTotals(rows []domain.Transaction) []domain.CategoryTotal {
	sums := map[domain.Category]float64{}
	for _, tx := range rows {
		sums[tx.Category] += tx.Amount
	}

	out := make([]domain.CategoryTotal, 0, len(sums))
	for cat, total := range sums {
		out = append(out, domain.CategoryTotal{Category: cat, TotalAmount: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount < out[j].TotalAmount
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// merchantTotals groups by merchant, sorts by absolute total descending and
// keeps the top n.
func merchantTotals(rows []domain.Transaction, n int) []domain.MerchantTotal {
	sums := map[string]float64{}
	for _, tx := range rows {
		sums[tx.Merchant] += tx.Amount
	}

	out := make([]domain.MerchantTotal, 0, len(sums))
	for merchant, total := range sums {
		out = append(out, domain.MerchantTotal{Merchant: merchant, TotalAmount: total})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].TotalAmount), math.Abs(out[j].TotalAmount)
		if ai != aj {
			return ai > aj
		}
		return out[i].Merchant < out[j].Merchant
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// unusualTransactions flags rows whose |amount| strictly exceeds
// mean + 2*stddev of |amount|. Population standard deviation (denominator
// N) is used; a single row has stddev 0.
func unusualTransactions(rows []domain.Transaction) []domain.UnusualTransaction {
	abs := make([]float64, len(rows))
	var sum float64
	for i, tx := range rows {
		abs[i] = math.Abs(tx.Amount)
		sum += abs[i]
	}
	mean := sum / float64(len(rows))

	std := 0.0
	if len(rows) > 1 {
		var varSum float64
		for _, v := range abs {
			varSum += (v - mean) * (v - mean)
		}
		std = math.Sqrt(varSum / float64(len(rows)))
	}
	threshold := mean + 2*std

	out := []domain.UnusualTransaction{}
	for i, tx := range rows {
		if abs[i] > threshold {
			out = append(out, domain.UnusualTransaction{
				Date:        tx.When(),
				Description: tx.Description,
				Merchant:    tx.Merchant,
				Amount:      tx.Amount,
				Category:    tx.Category,
			})
		}
	}
	return out
}

func (a *Agent) narrative(ctx context.Context, report domain.SummaryReport) string {
	unusual := report.UnusualTransactions
	if len(unusual) > 10 {
		unusual = unusual[:10]
	}
	analytics, err := json.Marshal(map[string]any{
		"monthly_totals":       report.MonthlyTotals,
		"category_totals":      report.CategoryTotals,
		"merchant_totals":      report.MerchantTotals,
		"unusual_transactions": unusual,
	})
	if err != nil {
		a.log.Error().Err(err).Msg("failed to marshal analytics for narrative")
		return narrativePlaceholder
	}

	user := fmt.Sprintf(
		"You are given aggregated spending analytics as JSON:\n\n%s\n\n"+
			"Write a concise, human-friendly summary (1-2 short paragraphs) plus "+
			"3-5 bullet-point insights. Cover:\n"+
			"- Overall spending trend over time (rising, falling, stable)\n"+
			"- Which categories and merchants dominate spending\n"+
			"- Any unusual or outlier transactions\n"+
			"- Simple recommendations (e.g., where to cut costs)\n\n"+
			"Keep the tone clear and non-technical, suitable for a busy professional.",
		analytics,
	)

	text, err := a.completer.Complete(ctx, llm.Request{
		System:      narrativeSystemPrompt,
		User:        user,
		Temperature: 0.3,
		MaxTokens:   400,
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("summary narrative call failed, using placeholder")
		return narrativePlaceholder
	}
	return text
}
