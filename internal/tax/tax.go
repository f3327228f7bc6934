// Package tax computes deduction analyses for single transactions. The
// numeric result comes from a static rule table; the model only writes the
// explanation and its failure never invalidates the numbers.
package tax

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/classify"
	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/llm"
)

// deductionRules maps category to deduction fraction. Unmapped categories
// default to 0. The table is static configuration: a category's percentage
// never changes within an analysis run.
var deductionRules = map[domain.Category]float64{
	domain.CategoryMeals:         0.50, // standard business meals rate
	domain.CategoryTravel:        1.00, // business travel
	domain.CategoryElectronics:   0.30, // simplified depreciation assumption
	domain.CategoryHealth:        0.00, // personal, not deductible
	domain.CategoryGroceries:     0.00,
	domain.CategoryEntertainment: 0.00,
	domain.CategoryRent:          0.00, // home-office split not handled
	domain.CategoryIncome:        0.00,
	domain.CategoryTransfer:      0.00,
	domain.CategoryUtilities:     0.00,
	domain.CategoryOther:         0.00,
}

// explanationPlaceholder substitutes for the model explanation when the
// call fails; the numeric fields are still returned.
const explanationPlaceholder = "Explanation unavailable."

const explainSystemPrompt = "You are a tax deduction assistant. " +
	"Explain deduction rules clearly and simply."

// Agent analyzes the deductibility of single transactions.
type Agent struct {
	classifier *classify.Engine
	completer  llm.Completer
	log        zerolog.Logger
}

// NewAgent creates a tax agent.
func NewAgent(classifier *classify.Engine, completer llm.Completer, log zerolog.Logger) *Agent {
	return &Agent{classifier: classifier, completer: completer, log: log}
}

// DeductionPercentage returns the static deduction fraction for a category.
func DeductionPercentage(cat domain.Category) float64 {
	return deductionRules[cat]
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Analyze returns the structured deduction analysis for one transaction.
func (a *Agent) Analyze(ctx context.Context, tx domain.Transaction) domain.TaxAnalysis {
	category := a.classifier.Classify(ctx, tx)

	pct := DeductionPercentage(category)
	deductible := Round2(tx.Amount * pct)

	analysis := domain.TaxAnalysis{
		Category:            category,
		Amount:              tx.Amount,
		DeductionPercentage: pct,
		DeductibleAmount:    deductible,
	}
	analysis.Explanation = a.explain(ctx, category, tx.Amount, deductible)
	return analysis
}

func (a *Agent) explain(ctx context.Context, category domain.Category, amount, deductible float64) string {
	user := fmt.Sprintf(
		"Category: %s\nAmount: %.2f\nDeductible: %.2f\n\n"+
			"Explain in 2-3 sentences why this category receives this deduction "+
			"percentage based on common business expense rules.",
		category, amount, deductible,
	)

	text, err := a.completer.Complete(ctx, llm.Request{
		System:      explainSystemPrompt,
		User:        user,
		Temperature: 0.2,
		MaxTokens:   200,
	})
	if err != nil {
		a.log.Warn().Err(err).Str("category", string(category)).
			Msg("tax explanation call failed, using placeholder")
		return explanationPlaceholder
	}
	return text
}
