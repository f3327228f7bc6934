package bigquery

import (
	"testing"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/expense-insights/internal/domain"
)

func TestDecodeTransaction(t *testing.T) {
	row := TransactionRow{
		TransactionID:   "t1",
		TransactionDate: civil.Date{Year: 2024, Month: 5, Day: 1},
		Description:     "UBER TRIP",
		Merchant:        bigquery.NullString{StringVal: "UBER", Valid: true},
		Amount:          -23.45,
		Category:        bigquery.NullString{StringVal: "TRAVEL", Valid: true},
	}

	tx := decodeTransaction(row)
	if tx.Description != "UBER TRIP" || tx.Merchant != "UBER" {
		t.Errorf("unexpected fields: %+v", tx)
	}
	if tx.Date != "2024-05-01" {
		t.Errorf("date = %q, want 2024-05-01", tx.Date)
	}
	if tx.Category != domain.CategoryTravel {
		t.Errorf("category = %q, want TRAVEL", tx.Category)
	}
}

func TestDecodeTransactionNullColumns(t *testing.T) {
	row := TransactionRow{
		TransactionID:   "t2",
		TransactionDate: civil.Date{Year: 2024, Month: 6, Day: 2},
		Description:     "MYSTERY CHARGE",
		Amount:          -9.99,
	}

	tx := decodeTransaction(row)
	if tx.Merchant != "" {
		t.Errorf("merchant = %q, want empty", tx.Merchant)
	}
	if tx.Category != "" {
		t.Errorf("category = %q, want unset", tx.Category)
	}
}
