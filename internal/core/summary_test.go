package core

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	m := &MonthRecord{
		Incomes: []IncomeItem{{Amount: "2000"}, {Amount: "150,50"}, {Amount: "n/a"}},
		ExpenseGroups: []ExpenseGroup{
			{ID: "home", Label: "Home", Items: []ExpenseItem{
				{Amount: "800", Paid: true},
				{Amount: "60.25"},
			}},
			{ID: "fun", Label: "Fun", Items: []ExpenseItem{
				{Amount: "oops", Paid: true},
			}},
		},
	}
	s := Summarize("2024-03", m)

	check := func(name, got, want string) {
		t.Helper()
		if got != want {
			t.Fatalf("%s = %s, want %s", name, got, want)
		}
	}
	check("income", FormatAmount(s.Income), "2150.50")
	check("expenses", FormatAmount(s.Expenses), "860.25")
	check("paid", FormatAmount(s.Paid), "800.00")
	check("unpaid", FormatAmount(s.Unpaid), "60.25")
	check("balance", FormatAmount(s.Balance), "1290.25")

	if len(s.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(s.Groups))
	}
	if s.Groups[0].Items != 2 || s.Groups[0].PaidItems != 1 {
		t.Fatalf("unexpected home counts: %+v", s.Groups[0])
	}
	if s.Groups[1].PaidItems != 1 || !s.Groups[1].Total.IsZero() {
		t.Fatalf("non-numeric amount must count as zero: %+v", s.Groups[1])
	}
}

func TestSummarizeNilRecord(t *testing.T) {
	s := Summarize("2024-03", nil)
	if !s.Balance.IsZero() || len(s.Groups) != 0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestSummarizeHugeExponentCountsAsZero(t *testing.T) {
	m := &MonthRecord{Incomes: []IncomeItem{{Amount: "1e2000000000"}, {Amount: "0.01"}}}

	done := make(chan MonthSummary, 1)
	go func() { done <- Summarize("2024-01", m) }()

	select {
	case s := <-done:
		if got := FormatAmount(s.Income); got != "0.01" {
			t.Fatalf("income = %s, want 0.01", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Summarize did not finish")
	}
}
