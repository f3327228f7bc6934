package domain

import "strings"

// Category is one of the fixed set of canonical transaction categories used
// across the whole project. The set is closed: anything unrecognized
// collapses to CategoryOther.
type Category string

const (
	CategoryTravel        Category = "TRAVEL"
	CategoryMeals         Category = "MEALS"
	CategoryGroceries     Category = "GROCERIES"
	CategoryRent          Category = "RENT"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryElectronics   Category = "ELECTRONICS"
	CategoryHealth        Category = "HEALTH"
	CategoryUtilities     Category = "UTILITIES"
	CategoryIncome        Category = "INCOME"
	CategoryTransfer      Category = "TRANSFER"
	CategoryOther         Category = "OTHER"
)

// Categories lists every canonical category in declaration order.
var Categories = []Category{
	CategoryTravel,
	CategoryMeals,
	CategoryGroceries,
	CategoryRent,
	CategoryEntertainment,
	CategoryElectronics,
	CategoryHealth,
	CategoryUtilities,
	CategoryIncome,
	CategoryTransfer,
	CategoryOther,
}

// ParseCategory maps free text onto a canonical category. An exact match
// (after trimming and uppercasing) wins; otherwise the first canonical token
// contained in the input resolves, so model responses like "Category: MEALS"
// still parse. Exact match is checked first because ENTERTAINMENT contains
// RENT as a substring. Unmatched input returns CategoryOther.
func ParseCategory(s string) Category {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, c := range Categories {
		if upper == string(c) {
			return c
		}
	}
	for _, c := range Categories {
		if strings.Contains(upper, string(c)) {
			return c
		}
	}
	return CategoryOther
}
