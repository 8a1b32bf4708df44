package core

type (
	// Summary aggregates the entire ledger, no time window.
	Summary struct {
		Balance      Money `json:"balance"`
		TotalIncome  Money `json:"total_income"`
		TotalExpense Money `json:"total_expense"`
	}

	// MonthlyPoint is one calendar month of a time series, labeled "YYYY-MM".
	MonthlyPoint struct {
		Month   string `json:"month"`
		Income  Money  `json:"income"`
		Expense Money  `json:"expense"`
	}

	// CategorySpend is one category's expense total within a month window.
	CategorySpend struct {
		Category string `json:"category"`
		Amount   Money  `json:"amount"`
	}

	// BudgetStatus pairs a budget with its current-month consumption.
	// Spent is derived at read time, never stored.
	BudgetStatus struct {
		Budget
		Spent Money `json:"spent"`
	}
)
