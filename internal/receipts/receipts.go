// Package receipts handles raw receipt records as supplied by the upstream
// OCR/ingestion system. The parsed JSON attached to a record comes from a
// model and is frequently malformed; SafeParse never fails, it only
// degrades toward the empty schema.
package receipts

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Record is one raw receipt as the receipt store supplies it.
type Record struct {
	FileID  string `json:"file_id"`
	RawText string `json:"raw_text"`
	// Parsed is the model-produced JSON document as a string; see
	// ParsedReceipt for the schema. May be empty or malformed.
	Parsed string `json:"parsed"`
	// GCSURI points at the original document when the raw text is not
	// stored inline.
	GCSURI string `json:"gcs_uri,omitempty"`
}

// ReceiptItem is one line item on a receipt. Price is loosely typed because
// models emit both numbers and numeric strings.
type ReceiptItem struct {
	Description string `json:"description"`
	Price       any    `json:"price"`
}

// ParsedReceipt is the externally-visible receipt schema. Every field is
// nullable. Vendor and Store exist only because older extraction prompts
// emitted those keys instead of vendor_store.
type ParsedReceipt struct {
	VendorStore   *string       `json:"vendor_store"`
	Vendor        *string       `json:"vendor"`
	Store         *string       `json:"store"`
	Date          *string       `json:"date"`
	Items         []ReceiptItem `json:"items"`
	Tax           *float64      `json:"tax"`
	TotalAmount   *float64      `json:"total_amount"`
	Currency      *string       `json:"currency"`
	PaymentMethod *string       `json:"payment_method"`
}

// Merchant resolves the vendor across the schema variants, falling back to
// "Unknown".
func (p ParsedReceipt) Merchant() string {
	for _, v := range []*string{p.VendorStore, p.Vendor, p.Store} {
		if v != nil && strings.TrimSpace(*v) != "" {
			return *v
		}
	}
	return "Unknown"
}

var nonASCII = regexp.MustCompile(`[^\x00-\x7F]+`)

// SafeParse loads a receipt's parsed JSON string. It never returns an
// error: direct unmarshal first, then progressively more aggressive
// cleanup, finally the empty schema.
func SafeParse(text string) ParsedReceipt {
	var out ParsedReceipt
	if text == "" {
		return out
	}

	if json.Unmarshal([]byte(text), &out) == nil {
		return out
	}

	cleaned := text
	// Smart quotes.
	cleaned = strings.NewReplacer("“", `"`, "”", `"`).Replace(cleaned)
	// Backslashes that do not start a legal JSON escape.
	cleaned = dropIllegalBackslashes(cleaned)
	// Invisible / non-ASCII bytes.
	cleaned = nonASCII.ReplaceAllString(cleaned, " ")

	out = ParsedReceipt{}
	if json.Unmarshal([]byte(cleaned), &out) == nil {
		return out
	}

	// Last resort: the outermost {...} substring.
	if start := strings.IndexByte(cleaned, '{'); start != -1 {
		if end := strings.LastIndexByte(cleaned, '}'); end > start {
			out = ParsedReceipt{}
			if json.Unmarshal([]byte(cleaned[start:end+1]), &out) == nil {
				return out
			}
		}
	}

	return ParsedReceipt{}
}

// dropIllegalBackslashes removes every backslash not followed by a valid
// JSON escape character.
func dropIllegalBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			if i+1 >= len(s) || !isEscapeChar(s[i+1]) {
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isEscapeChar(c byte) bool {
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return true
	}
	return false
}

// ItemTotal sums the coercible item prices, in receipt order. Uncoercible
// prices are skipped.
func ItemTotal(items []ReceiptItem) float64 {
	var total float64
	for _, it := range items {
		if v, ok := coercePrice(it.Price); ok {
			total += v
		}
	}
	return total
}

func coercePrice(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
