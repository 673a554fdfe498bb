package core

const (
	// RecurringBucket names the synthetic category holding projected
	// recurring expenses.
	RecurringBucket = "Recurring"
	// Uncategorized names ledger expenses without a category.
	Uncategorized = "Uncategorized"
)

// CategoryTotal is an amount aggregated by category (or description).
type CategoryTotal struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Color   string  `json:"color,omitempty"`
	Total   Money   `json:"total"`
	Percent float64 `json:"percent"`
}

// KindTotals holds the income and expense sums for a range.
type KindTotals struct {
	Income  Money
	Expense Money
}

// DayTotal is the amount booked on one day of a month.
type DayTotal struct {
	Day   int
	Total Money
}

// Summary is the dashboard view of one month. ComparisonDailyExpenses is nil
// unless a comparison month was requested.
type Summary struct {
	Year                    int             `json:"year"`
	Month                   int             `json:"month"`
	TotalIncome             Money           `json:"totalIncome"`
	TotalExpenses           Money           `json:"totalExpenses"`
	Balance                 Money           `json:"balance"`
	SavingsRate             float64         `json:"savingsRate"`
	RecurringIncome         Money           `json:"recurringIncome"`
	RecurringExpenses       Money           `json:"recurringExpenses"`
	DailyExpenses           []Money         `json:"dailyExpenses"`
	ComparisonDailyExpenses []Money         `json:"comparisonDailyExpenses"`
	TopCategories           []CategoryTotal `json:"topCategories"`
}

// MonthBreakdown groups one month's expenses by category and incomes by
// description.
type MonthBreakdown struct {
	Expenses []CategoryTotal `json:"expenses"`
	Incomes  []CategoryTotal `json:"incomes"`
}
