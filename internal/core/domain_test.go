package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonthKey(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-02", true},
		{" 2025-12 ", true},
		{"2024-13", false},
		{"2024-00", false},
		{"2024-2", false},
		{"24-02", false},
		{"", false},
		{"abcd-ef", false},
	}
	for _, tc := range cases {
		_, err := ParseMonthKey(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrInvalidMonthKey) {
				t.Fatalf("%q expected ErrInvalidMonthKey, got %v", tc.in, err)
			}
		}
	}
}

func TestMonthKeyHelpers(t *testing.T) {
	if got := MonthKeyOf(2024, time.February); got != "2024-02" {
		t.Fatalf("MonthKeyOf = %q", got)
	}
	if got := CurrentMonthKey(time.Date(2025, 11, 30, 23, 0, 0, 0, time.UTC)); got != "2025-11" {
		t.Fatalf("CurrentMonthKey = %q", got)
	}
	if got := MonthKey("2025-01").Prev(); got != "2024-12" {
		t.Fatalf("Prev = %q", got)
	}
	y, m, ok := MonthKey("2023-07").YearMonth()
	if !ok || y != 2023 || m != time.July {
		t.Fatalf("YearMonth = %d %v %v", y, m, ok)
	}
}

func TestNewGroupDefaultsLabel(t *testing.T) {
	g := NewGroup("   ")
	if g.Label != DefaultGroupLabel {
		t.Fatalf("expected %q, got %q", DefaultGroupLabel, g.Label)
	}
	if g.ID == "" || g.Items == nil {
		t.Fatalf("group not initialized: %+v", g)
	}
	if NewGroup(" Bills ").Label != "Bills" {
		t.Fatalf("label should be trimmed")
	}
}

func TestEnsureMonthCreatesOnce(t *testing.T) {
	s := &State{}
	m, created := s.EnsureMonth("2024-05")
	if !created || m == nil || len(m.ExpenseGroups) != 1 {
		t.Fatalf("expected a fresh record with one group, got %+v created=%v", m, created)
	}
	again, created := s.EnsureMonth("2024-05")
	if created || again != m {
		t.Fatalf("second access must return the same record")
	}
}

func TestCloneIsDeep(t *testing.T) {
	day := 5
	s := &State{ActiveMonth: "2024-05", Months: map[MonthKey]*MonthRecord{
		"2024-05": {
			ExpenseGroups: []ExpenseGroup{{ID: "g", Label: "Home", Items: []ExpenseItem{{ID: "e", DueDay: &day}}}},
		},
	}}
	c := s.Clone()
	c.Months["2024-05"].ExpenseGroups[0].Items[0].Name = "changed"
	*c.Months["2024-05"].ExpenseGroups[0].Items[0].DueDay = 9
	orig := s.Months["2024-05"].ExpenseGroups[0].Items[0]
	if orig.Name != "" || *orig.DueDay != 5 {
		t.Fatalf("clone shares memory with original: %+v", orig)
	}
}

func TestFindExpense(t *testing.T) {
	m := &MonthRecord{ExpenseGroups: []ExpenseGroup{
		{ID: "a", Items: []ExpenseItem{{ID: "1"}}},
		{ID: "b", Items: []ExpenseItem{{ID: "2"}, {ID: "3"}}},
	}}
	if g, i := m.FindExpense("3"); g != 1 || i != 1 {
		t.Fatalf("FindExpense(3) = %d,%d", g, i)
	}
	if g, i := m.FindExpense("x"); g != -1 || i != -1 {
		t.Fatalf("FindExpense(x) = %d,%d", g, i)
	}
	if m.FindGroup("b") != 1 || m.FindGroup("z") != -1 {
		t.Fatalf("FindGroup mismatch")
	}
}
