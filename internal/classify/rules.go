package classify

import "github.com/dvloznov/expense-insights/internal/domain"

// KeywordRule maps a substring to a category. Rules are kept in an explicit
// ordered slice, not a map: first match wins, so overlapping keywords
// ("UBER" vs "UBER EATS") are disambiguated only by table order.
type KeywordRule struct {
	Keyword  string
	Category domain.Category
}

// keywordRules avoids calling the model for obvious cases. Matching is done
// against the uppercased description+merchant text.
var keywordRules = []KeywordRule{
	// Travel
	{"UBER", domain.CategoryTravel},
	{"LYFT", domain.CategoryTravel},
	{"DELTA", domain.CategoryTravel},
	{"UNITED", domain.CategoryTravel},
	{"AMTRAK", domain.CategoryTravel},
	{"AIRLINES", domain.CategoryTravel},
	{"HOTEL", domain.CategoryTravel},
	{"MARRIOTT", domain.CategoryTravel},
	{"HILTON", domain.CategoryTravel},

	// Meals / restaurants
	{"STARBUCKS", domain.CategoryMeals},
	{"MCDONALD", domain.CategoryMeals},
	{"BURGER KING", domain.CategoryMeals},
	{"UBER EATS", domain.CategoryMeals},
	{"DOORDASH", domain.CategoryMeals},
	{"GRUBHUB", domain.CategoryMeals},
	{"RESTAURANT", domain.CategoryMeals},
	{"CAFE", domain.CategoryMeals},

	// Groceries
	{"WHOLE FOODS", domain.CategoryGroceries},
	{"WALMART", domain.CategoryGroceries},
	{"SAFEWAY", domain.CategoryGroceries},
	{"TRADER JOE", domain.CategoryGroceries},
	{"KROGER", domain.CategoryGroceries},

	// Electronics / shopping
	{"BEST BUY", domain.CategoryElectronics},
	{"APPLE.COM/BILL", domain.CategoryElectronics},
	{"APPLE STORE", domain.CategoryElectronics},
	{"AMAZON", domain.CategoryElectronics},
	{"MICRO CENTER", domain.CategoryElectronics},

	// Utilities
	{"VERIZON", domain.CategoryUtilities},
	{"COMCAST", domain.CategoryUtilities},
	{"ATT", domain.CategoryUtilities},
	{"AT&T", domain.CategoryUtilities},
	{"T-MOBILE", domain.CategoryUtilities},

	// Rent / housing
	{"APARTMENTS", domain.CategoryRent},
	{"LEASE", domain.CategoryRent},
	{"ZILLOW", domain.CategoryRent},

	// Health
	{"CVS", domain.CategoryHealth},
	{"WALGREENS", domain.CategoryHealth},
	{"PHARMACY", domain.CategoryHealth},
	{"HOSPITAL", domain.CategoryHealth},
	{"DENTAL", domain.CategoryHealth},

	// Income / transfer
	{"PAYROLL", domain.CategoryIncome},
	{"DIRECT DEP", domain.CategoryIncome},
	{"VENMO", domain.CategoryTransfer},
	{"ZELLE", domain.CategoryTransfer},
	{"CASH APP", domain.CategoryTransfer},
}
