package dispatch

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/expense-insights/internal/classify"
	"github.com/dvloznov/expense-insights/internal/compliance"
	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/llm"
	"github.com/dvloznov/expense-insights/internal/summary"
	"github.com/dvloznov/expense-insights/internal/tax"
)

// scriptedCompleter answers intent-detection calls with intentReply and
// everything else with genericReply.
func scriptedCompleter(intentReply, genericReply string) llm.Completer {
	return llm.CompleterFunc(func(ctx context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.System, "intent classifier") {
			return intentReply, nil
		}
		return genericReply, nil
	})
}

func newDispatcher(completer llm.Completer) *Dispatcher {
	log := zerolog.Nop()
	classifier := classify.NewEngine(completer, log)
	return New(
		completer,
		classifier,
		tax.NewAgent(classifier, completer, log),
		compliance.NewAgent(classifier, completer, nil, log),
		summary.NewAgent(classifier, completer, log),
		log,
	)
}

func TestParseIntentList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []domain.Intent
	}{
		{"clean list", `["SUMMARY", "TAX"]`, []domain.Intent{domain.IntentSummary, domain.IntentTax}},
		{"single quotes", `['COMPLIANCE']`, []domain.Intent{domain.IntentCompliance}},
		{"code fences", "```json\n[\"CATEGORY\"]\n```", []domain.Intent{domain.IntentCategory}},
		{"wrapping prose", `The intents are: ["SUMMARY"] as requested.`, []domain.Intent{domain.IntentSummary}},
		{"lowercase tokens", `["summary"]`, []domain.Intent{domain.IntentSummary}},
		{"unrecognized token", `["WEATHER"]`, []domain.Intent{domain.IntentUnknown}},
		{"not a list", `{"intent": "SUMMARY"}`, []domain.Intent{domain.IntentUnknown}},
		{"garbage", `no idea`, []domain.Intent{domain.IntentUnknown}},
		// An empty list routes nowhere, so it collapses to UNKNOWN and the
		// query gets a conversational answer instead of silence.
		{"empty list", `[]`, []domain.Intent{domain.IntentUnknown}},
		{"duplicates collapse", `["TAX", "TAX"]`, []domain.Intent{domain.IntentTax}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIntentList(tt.raw))
		})
	}
}

func TestRouteMultiIntent(t *testing.T) {
	d := newDispatcher(scriptedCompleter(`["SUMMARY", "COMPLIANCE"]`, "All good."))

	tx := domain.Transaction{Description: "UBER TRIP", Merchant: "UBER", Amount: -23.45, Date: "2024-05-01"}
	resp := d.Route(context.Background(), Request{
		Query:        "what did I spend and is this transaction risky",
		Transactions: []domain.Transaction{tx},
		Transaction:  &tx,
	})

	assert.Equal(t, []domain.Intent{domain.IntentSummary, domain.IntentCompliance}, resp.Intents)
	require.NotNil(t, resp.Results.Summary)
	assert.Empty(t, resp.Results.Summary.Error)
	require.NotNil(t, resp.Results.Compliance)
	assert.Empty(t, resp.Results.Compliance.Error)
	assert.Nil(t, resp.Results.Tax)
	assert.Nil(t, resp.Results.Classification)
	assert.Nil(t, resp.Results.RawLLM)
}

func TestRouteMissingInputsBecomePerIntentErrors(t *testing.T) {
	d := newDispatcher(scriptedCompleter(`["SUMMARY", "TAX"]`, "ok"))

	resp := d.Route(context.Background(), Request{Query: "summarize and check deductions"})

	require.NotNil(t, resp.Results.Summary)
	assert.Equal(t, "no transactions provided", resp.Results.Summary.Error)
	require.NotNil(t, resp.Results.Tax)
	assert.Equal(t, "no transaction provided for tax analysis", resp.Results.Tax.Error)
	assert.Nil(t, resp.Results.RawLLM)
}

func TestRoutePartialFailureStillReturnsSuccesses(t *testing.T) {
	d := newDispatcher(scriptedCompleter(`["SUMMARY", "TAX"]`, "fine"))

	txs := []domain.Transaction{{Description: "STARBUCKS", Amount: -6.40, Date: "2024-06-02"}}
	resp := d.Route(context.Background(), Request{
		Query:        "summarize my spending and check tax",
		Transactions: txs,
		// no single transaction: TAX gets an error, SUMMARY succeeds
	})

	require.NotNil(t, resp.Results.Summary)
	assert.Empty(t, resp.Results.Summary.Error)
	require.NotNil(t, resp.Results.Summary.SummaryReport)
	require.NotNil(t, resp.Results.Tax)
	assert.NotEmpty(t, resp.Results.Tax.Error)
}

func TestRouteUnknownFallsBackToRawLLM(t *testing.T) {
	d := newDispatcher(scriptedCompleter(`this is not json at all`, "Here is a general answer."))

	resp := d.Route(context.Background(), Request{Query: "tell me a joke about money"})

	assert.Equal(t, []domain.Intent{domain.IntentUnknown}, resp.Intents)
	require.NotNil(t, resp.Results.RawLLM)
	assert.Equal(t, "Here is a general answer.", *resp.Results.RawLLM)
	assert.Nil(t, resp.Results.Summary)
	assert.Nil(t, resp.Results.Tax)
	assert.Nil(t, resp.Results.Compliance)
	assert.Nil(t, resp.Results.Classification)
}

func TestRouteUnknownAmongOthersDoesNotFallBack(t *testing.T) {
	d := newDispatcher(scriptedCompleter(`["UNKNOWN", "CATEGORY"]`, "MEALS"))

	tx := domain.Transaction{Description: "SOME NEW BISTRO", Amount: -40}
	resp := d.Route(context.Background(), Request{Query: "hmm, what category is this", Transaction: &tx})

	assert.Nil(t, resp.Results.RawLLM)
	require.NotNil(t, resp.Results.Classification)
	assert.Equal(t, domain.CategoryMeals, resp.Results.Classification.Category)
}

func TestRouteClassificationUsesKeywordRules(t *testing.T) {
	d := newDispatcher(scriptedCompleter(`["CATEGORY"]`, "should not matter"))

	tx := domain.Transaction{Description: "UBER TRIP", Amount: -12}
	resp := d.Route(context.Background(), Request{Query: "categorize this", Transaction: &tx})

	require.NotNil(t, resp.Results.Classification)
	assert.Equal(t, domain.CategoryTravel, resp.Results.Classification.Category)
}
