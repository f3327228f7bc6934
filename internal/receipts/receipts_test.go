package receipts

import (
	"context"
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

func newExtractor(completer llm.Completer) *Extractor {
	return NewExtractor(classify.NewEngine(completer, zerolog.Nop()), zerolog.Nop())
}

func strPtr(s string) *string { return &s }

func TestSafeParseValidJSON(t *testing.T) {
	got := SafeParse(`{"vendor_store": "WALMART", "total_amount": 52.10, "items": [{"description": "MILK", "price": 3.5}]}`)
	require.NotNil(t, got.VendorStore)
	assert.Equal(t, "WALMART", *got.VendorStore)
	require.NotNil(t, got.TotalAmount)
	assert.Equal(t, 52.10, *got.TotalAmount)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "MILK", got.Items[0].Description)
}

func TestSafeParseSmartQuotes(t *testing.T) {
	got := SafeParse("{“vendor_store”: “TARGET”}")
	require.NotNil(t, got.VendorStore)
	assert.Equal(t, "TARGET", *got.VendorStore)
}

func TestSafeParseIllegalBackslashes(t *testing.T) {
	got := SafeParse(`{"vendor_store": "JOE\'S DINER"}`)
	require.NotNil(t, got.VendorStore)
	assert.Equal(t, "JOE'S DINER", *got.VendorStore)
}

func TestSafeParseBraceExtraction(t *testing.T) {
	got := SafeParse("Here is the receipt:\n```json\n{\"vendor_store\": \"COSTCO\"}\n```\nDone.")
	require.NotNil(t, got.VendorStore)
	assert.Equal(t, "COSTCO", *got.VendorStore)
}

func TestSafeParseGarbageYieldsEmptySchema(t *testing.T) {
	got := SafeParse("not json at all")
	assert.Nil(t, got.VendorStore)
	assert.Nil(t, got.TotalAmount)
	assert.Empty(t, got.Items)

	assert.Equal(t, ParsedReceipt{}, SafeParse(""))
}

func TestMerchantFallbacks(t *testing.T) {
	assert.Equal(t, "A", ParsedReceipt{VendorStore: strPtr("A"), Vendor: strPtr("B")}.Merchant())
	assert.Equal(t, "B", ParsedReceipt{Vendor: strPtr("B")}.Merchant())
	assert.Equal(t, "C", ParsedReceipt{Store: strPtr("C")}.Merchant())
	assert.Equal(t, "Unknown", ParsedReceipt{VendorStore: strPtr("  ")}.Merchant())
	assert.Equal(t, "Unknown", ParsedReceipt{}.Merchant())
}

func TestItemTotalCoercion(t *testing.T) {
	items := []ReceiptItem{
		{Description: "A", Price: 3.5},
		{Description: "B", Price: "2.25"},
		{Description: "C", Price: "free"},
		{Description: "D", Price: nil},
	}
	assert.InDelta(t, 5.75, ItemTotal(items), 1e-9)
}

func TestExtractPrefersReceiptTotal(t *testing.T) {
	e := newExtractor(canned("should not be called"))
	exp := e.Extract(context.Background(), Record{
		FileID: "r1",
		Parsed: `{"vendor_store": "UBER", "date": "2024-05-01", "total_amount": 18.40, "items": [{"description": "TRIP", "price": 99}]}`,
	})
	assert.Equal(t, "r1", exp.FileID)
	assert.Equal(t, "UBER", exp.Merchant)
	assert.Equal(t, 18.40, exp.Total)
	assert.Equal(t, domain.CategoryTravel, exp.Category)
}

func TestExtractSumsItemsWhenTotalMissing(t *testing.T) {
	e := newExtractor(canned("GROCERIES"))
	exp := e.Extract(context.Background(), Record{
		FileID: "r2",
		Parsed: `{"vendor_store": "CORNER SHOP", "items": [{"description": "BREAD", "price": "1.25"}, {"description": "EGGS", "price": 2.5}]}`,
	})
	assert.Equal(t, 3.75, exp.Total)
	assert.Equal(t, domain.CategoryGroceries, exp.Category)
}

func TestExtractUnparseableReceipt(t *testing.T) {
	e := newExtractor(canned("OTHER"))
	exp := e.Extract(context.Background(), Record{FileID: "r3", RawText: "blur", Parsed: "###"})
	assert.Equal(t, "Unknown", exp.Merchant)
	assert.Equal(t, 0.0, exp.Total)
	assert.Equal(t, "blur", exp.RawText)
}

func TestTransactionsNegatesSpend(t *testing.T) {
	txs := Transactions([]Expense{{FileID: "r1", Merchant: "UBER", Total: 18.40, Date: "2024-05-01", Category: domain.CategoryTravel}})
	require.Len(t, txs, 1)
	assert.Equal(t, -18.40, txs[0].Amount)
	assert.Equal(t, "UBER", txs[0].Merchant)
	assert.Equal(t, domain.CategoryTravel, txs[0].Category)
}
