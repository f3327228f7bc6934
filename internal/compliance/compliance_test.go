package compliance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/expense-insights/internal/classify"
	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/llm"
)

func canned(response string) llm.Completer {
	return llm.CompleterFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return response, nil
	})
}

func newAgent(retriever Retriever) *Agent {
	completer := canned("Nothing unusual here.")
	return NewAgent(classify.NewEngine(completer, zerolog.Nop()), completer, retriever, zerolog.Nop())
}

func TestAssessNoFlagsFloorsScore(t *testing.T) {
	agent := newAgent(nil)

	// amount=10, MEALS keyword, no risky keywords, no peers.
	tx := domain.Transaction{Description: "STARBUCKS", Amount: 10}
	got := agent.Assess(context.Background(), tx, nil)

	assert.Equal(t, domain.CategoryMeals, got.Category)
	assert.Equal(t, 5.0, got.RiskScore)
	assert.Equal(t, domain.RiskLow, got.RiskLevel)
	assert.Empty(t, got.Flags)
}

func TestAssessLargeCasinoTransaction(t *testing.T) {
	agent := newAgent(nil)

	tx := domain.Transaction{Description: "WIRE OUT", Merchant: "GRAND CASINO RESTAURANT", Amount: 6000}
	got := agent.Assess(context.Background(), tx, nil)

	// 50 (very large) + 40 (casino) = 90.
	assert.Equal(t, 90.0, got.RiskScore)
	assert.Equal(t, domain.RiskHigh, got.RiskLevel)
	require.Len(t, got.Flags, 2)
	assert.Equal(t, "Very large transaction amount", got.Flags[0])
	assert.Equal(t, "High-risk merchant or activity: CASINO", got.Flags[1])
}

func TestAssessScoreClampedAt100(t *testing.T) {
	agent := newAgent(nil)

	// 50 + 40 + 20 + 15 + 10 (OTHER) = 135, clamped to 100.
	tx := domain.Transaction{
		Description: "INTERNATIONAL ATM CASH ADVANCE CRYPTO EXCHANGE",
		Amount:      9000,
	}
	got := agent.Assess(context.Background(), tx, nil)

	assert.Equal(t, 100.0, got.RiskScore)
	assert.Equal(t, domain.RiskHigh, got.RiskLevel)
}

func TestAssessRiskLevelBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.RiskLevel
	}{
		{5, domain.RiskLow},
		{39.9, domain.RiskLow},
		{40, domain.RiskMedium},
		{74.9, domain.RiskMedium},
		{75, domain.RiskHigh},
		{100, domain.RiskHigh},
	}
	for _, tt := range tests {
		if got := domain.RiskLevelFromScore(tt.score); got != tt.want {
			t.Errorf("RiskLevelFromScore(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestAssessBatchStructuring(t *testing.T) {
	agent := newAgent(nil)

	// Four near-identical VENMO transfers: each sees three peers within the
	// amount delta, so each is flagged for possible structuring.
	txs := []domain.Transaction{
		{Description: "VENMO PAYMENT", Merchant: "VENMO", Amount: 999},
		{Description: "VENMO PAYMENT", Merchant: "VENMO", Amount: 998},
		{Description: "VENMO PAYMENT", Merchant: "VENMO", Amount: 997},
		{Description: "VENMO PAYMENT", Merchant: "VENMO", Amount: 996},
	}
	got := agent.AssessBatch(context.Background(), txs)

	require.Len(t, got, 4)
	for i, r := range got {
		// +10 ambiguous category (TRANSFER) +25 structuring = 35.
		assert.Equal(t, 35.0, r.RiskScore, "tx %d", i)
		assert.Contains(t, r.Flags, "Multiple similar transactions (possible structuring)", "tx %d", i)
	}
}

func TestAssessBatchStructuringExcludesSelfByPosition(t *testing.T) {
	agent := newAgent(nil)

	// Only three rows: each sees just two peers, below the threshold, even
	// though all rows are field-identical.
	txs := []domain.Transaction{
		{Description: "VENMO PAYMENT", Merchant: "VENMO", Amount: 999},
		{Description: "VENMO PAYMENT", Merchant: "VENMO", Amount: 999},
		{Description: "VENMO PAYMENT", Merchant: "VENMO", Amount: 999},
	}
	got := agent.AssessBatch(context.Background(), txs)

	for i, r := range got {
		assert.NotContains(t, r.Flags, "Multiple similar transactions (possible structuring)", "tx %d", i)
	}
}

func TestAssessRetrieverFailureDegrades(t *testing.T) {
	retriever := func(ctx context.Context, question string) (string, error) {
		return "", errors.New("vector store offline")
	}
	agent := newAgent(retriever)

	tx := domain.Transaction{Description: "STARBUCKS", Amount: 10}
	got := agent.Assess(context.Background(), tx, nil)

	// Failure is swallowed; assessment still produced.
	assert.Equal(t, 5.0, got.RiskScore)
	assert.NotEmpty(t, got.Explanation)
}

func TestAssessRetrieverContextReachesPrompt(t *testing.T) {
	var sawContext bool
	completer := llm.CompleterFunc(func(ctx context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.User, "AML policy section 4") {
			sawContext = true
		}
		return "Explained.", nil
	})
	retriever := func(ctx context.Context, question string) (string, error) {
		return "AML policy section 4: cash transactions above 1000 require review.", nil
	}
	agent := NewAgent(classify.NewEngine(completer, zerolog.Nop()), completer, retriever, zerolog.Nop())

	tx := domain.Transaction{Description: "ATM WITHDRAWAL", Amount: 1200}
	agent.Assess(context.Background(), tx, nil)
	assert.True(t, sawContext)
}
