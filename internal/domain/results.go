package domain

// RiskLevel labels a risk score bucket.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskLevelFromScore maps a numeric risk score (0-100) to a label.
// Thresholds are inclusive on the lower bound.
func RiskLevelFromScore(score float64) RiskLevel {
	switch {
	case score >= 75:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskAssessment is the compliance agent's verdict on one transaction.
// It is derived, never persisted; every call recomputes it.
type RiskAssessment struct {
	Category    Category  `json:"category"`
	RiskScore   float64   `json:"risk_score"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Flags       []string  `json:"flags"`
	Explanation string    `json:"explanation"`
}

// TaxAnalysis is the tax agent's deduction analysis for one transaction.
type TaxAnalysis struct {
	Category            Category `json:"category"`
	Amount              float64  `json:"amount"`
	DeductionPercentage float64  `json:"deduction_percentage"`
	DeductibleAmount    float64  `json:"deductible_amount"`
	Explanation         string   `json:"explanation"`
}

// MonthlyTotal is the summed amount for one calendar month (YYYY-MM).
type MonthlyTotal struct {
	Month       string  `json:"month"`
	TotalAmount float64 `json:"total_amount"`
}

// CategoryTotal is the summed amount for one category.
type CategoryTotal struct {
	Category    Category `json:"category"`
	TotalAmount float64  `json:"total_amount"`
}

// MerchantTotal is the summed amount for one merchant.
type MerchantTotal struct {
	Merchant    string  `json:"merchant"`
	TotalAmount float64 `json:"total_amount"`
}

// UnusualTransaction is an outlier row selected by the anomaly heuristic.
type UnusualTransaction struct {
	Date        string   `json:"date,omitempty"`
	Description string   `json:"description,omitempty"`
	Merchant    string   `json:"merchant,omitempty"`
	Amount      float64  `json:"amount"`
	Category    Category `json:"category,omitempty"`
}

// SummaryReport holds the derived aggregates over an input transaction list
// plus the model-written narrative. It has no identity beyond the input.
type SummaryReport struct {
	MonthlyTotals       []MonthlyTotal       `json:"monthly_totals"`
	CategoryTotals      []CategoryTotal      `json:"category_totals"`
	MerchantTotals      []MerchantTotal      `json:"merchant_totals"`
	UnusualTransactions []UnusualTransaction `json:"unusual_transactions"`
	SummaryText         string               `json:"summary_text"`
}
