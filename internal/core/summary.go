package core

import "github.com/shopspring/decimal"

// GroupSummary holds the totals of one expense group.
type GroupSummary struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Unpaid    decimal.Decimal `json:"unpaid"`
	Items     int             `json:"items"`
	PaidItems int             `json:"paidItems"`
}

// MonthSummary is the printable overview of a month record.
type MonthSummary struct {
	Month    MonthKey        `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Paid     decimal.Decimal `json:"paid"`
	Unpaid   decimal.Decimal `json:"unpaid"`
	// Balance is income minus all expenses, paid or not.
	Balance decimal.Decimal `json:"balance"`
	Groups  []GroupSummary  `json:"groups"`
}

// Summarize aggregates a month record. Non-numeric amounts count as zero.
func Summarize(key MonthKey, m *MonthRecord) MonthSummary {
	sum := MonthSummary{
		Month:    key,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Paid:     decimal.Zero,
		Unpaid:   decimal.Zero,
		Groups:   []GroupSummary{},
	}
	if m == nil {
		sum.Balance = decimal.Zero
		return sum
	}
	for _, in := range m.Incomes {
		sum.Income = sum.Income.Add(in.Amount.Decimal())
	}
	for _, g := range m.ExpenseGroups {
		gs := GroupSummary{ID: g.ID, Label: g.Label, Total: decimal.Zero, Paid: decimal.Zero, Unpaid: decimal.Zero, Items: len(g.Items)}
		for _, e := range g.Items {
			amt := e.Amount.Decimal()
			gs.Total = gs.Total.Add(amt)
			if e.Paid {
				gs.Paid = gs.Paid.Add(amt)
				gs.PaidItems++
			} else {
				gs.Unpaid = gs.Unpaid.Add(amt)
			}
		}
		sum.Expenses = sum.Expenses.Add(gs.Total)
		sum.Paid = sum.Paid.Add(gs.Paid)
		sum.Unpaid = sum.Unpaid.Add(gs.Unpaid)
		sum.Groups = append(sum.Groups, gs)
	}
	sum.Balance = sum.Income.Sub(sum.Expenses)
	return sum
}
