package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultGroupLabel is the label used for blank group labels and for the
// group that replaces a deleted last group.
const DefaultGroupLabel = "General"

type (
	// MonthKey identifies a month record, formatted as "YYYY-MM".
	MonthKey string

	IncomeItem struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Amount Amount `json:"amount"`
	}

	ExpenseItem struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Amount Amount `json:"amount"`
		DueDay *int   `json:"dueDay"` // 1-31, nil when the item has no due day
		Paid   bool   `json:"paid"`
	}

	ExpenseGroup struct {
		ID    string        `json:"id"`
		Label string        `json:"label"`
		Items []ExpenseItem `json:"items"`
	}

	MonthRecord struct {
		Incomes       []IncomeItem   `json:"incomes"`
		ExpenseGroups []ExpenseGroup `json:"expenseGroups"`
		Notes         string         `json:"notes"`
	}

	// State is the whole persisted document.
	State struct {
		ActiveMonth MonthKey                  `json:"activeMonth"`
		Months      map[MonthKey]*MonthRecord `json:"months"`
	}
)

var (
	ErrInvalidMonthKey = errors.New("invalid month key")
	ErrNotFound        = errors.New("not found")
	ErrInvalidImport   = errors.New("invalid JSON")
)

// NewID returns a fresh identifier for items and groups.
func NewID() string {
	return uuid.NewString()
}

// ParseMonthKey validates s as "YYYY-MM" and returns it as a MonthKey.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if _, _, ok := splitMonthKey(s); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthKey(s), nil
}

// MonthKeyOf builds the key for a year and month.
func MonthKeyOf(year int, month time.Month) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// CurrentMonthKey returns the key of the month containing now.
func CurrentMonthKey(now time.Time) MonthKey {
	return MonthKeyOf(now.Year(), now.Month())
}

// YearMonth splits the key. ok is false for malformed keys.
func (k MonthKey) YearMonth() (year int, month time.Month, ok bool) {
	return splitMonthKey(string(k))
}

// Valid reports whether k is a well formed "YYYY-MM" key.
func (k MonthKey) Valid() bool {
	_, _, ok := k.YearMonth()
	return ok
}

// Prev returns the key of the preceding month.
func (k MonthKey) Prev() MonthKey {
	year, month, ok := k.YearMonth()
	if !ok {
		return k
	}
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return MonthKeyOf(t.Year(), t.Month())
}

// Next returns the key of the following month.
func (k MonthKey) Next() MonthKey {
	year, month, ok := k.YearMonth()
	if !ok {
		return k
	}
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return MonthKeyOf(t.Year(), t.Month())
}

// Label renders the key for display, e.g. "February 2024".
func (k MonthKey) Label() string {
	year, month, ok := k.YearMonth()
	if !ok {
		return string(k)
	}
	return fmt.Sprintf("%s %d", month, year)
}

func (k MonthKey) String() string {
	return string(k)
}

func splitMonthKey(s string) (int, time.Month, bool) {
	if len(s) != 7 || s[4] != '-' {
		return 0, 0, false
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil || year < 1 {
		return 0, 0, false
	}
	month, err := strconv.Atoi(s[5:])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, time.Month(month), true
}

// NewGroup returns an empty group with a fresh id. A blank label becomes
// DefaultGroupLabel.
func NewGroup(label string) ExpenseGroup {
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultGroupLabel
	}
	return ExpenseGroup{ID: NewID(), Label: label, Items: []ExpenseItem{}}
}

// NewMonthRecord returns the record created on first access to a month.
func NewMonthRecord() *MonthRecord {
	return &MonthRecord{
		Incomes:       []IncomeItem{},
		ExpenseGroups: []ExpenseGroup{NewGroup(DefaultGroupLabel)},
	}
}

// FindIncome returns the index of the income with the given id, or -1.
func (m *MonthRecord) FindIncome(id string) int {
	for i, in := range m.Incomes {
		if in.ID == id {
			return i
		}
	}
	return -1
}

// FindGroup returns the index of the group with the given id, or -1.
func (m *MonthRecord) FindGroup(id string) int {
	for i, g := range m.ExpenseGroups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// FindExpense returns the group and item index of the expense, or -1, -1.
func (m *MonthRecord) FindExpense(id string) (group, item int) {
	for gi, g := range m.ExpenseGroups {
		for ii, e := range g.Items {
			if e.ID == id {
				return gi, ii
			}
		}
	}
	return -1, -1
}

// Clone returns a deep copy of the record.
func (m *MonthRecord) Clone() *MonthRecord {
	if m == nil {
		return nil
	}
	out := &MonthRecord{
		Incomes:       append([]IncomeItem{}, m.Incomes...),
		ExpenseGroups: make([]ExpenseGroup, len(m.ExpenseGroups)),
		Notes:         m.Notes,
	}
	for i, g := range m.ExpenseGroups {
		out.ExpenseGroups[i] = g.Clone()
	}
	return out
}

// Clone returns a deep copy of the group.
func (g ExpenseGroup) Clone() ExpenseGroup {
	items := make([]ExpenseItem, len(g.Items))
	for i, e := range g.Items {
		items[i] = e.Clone()
	}
	g.Items = items
	return g
}

// Clone returns a copy that does not share the due day pointer.
func (e ExpenseItem) Clone() ExpenseItem {
	if e.DueDay != nil {
		d := *e.DueDay
		e.DueDay = &d
	}
	return e
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := &State{ActiveMonth: s.ActiveMonth, Months: make(map[MonthKey]*MonthRecord, len(s.Months))}
	for k, m := range s.Months {
		out.Months[k] = m.Clone()
	}
	return out
}

// EnsureMonth returns the record for key, creating it on first access.
// created reports whether a new record was added.
func (s *State) EnsureMonth(key MonthKey) (m *MonthRecord, created bool) {
	if s.Months == nil {
		s.Months = make(map[MonthKey]*MonthRecord)
	}
	if m, ok := s.Months[key]; ok && m != nil {
		return m, false
	}
	m = NewMonthRecord()
	s.Months[key] = m
	return m, true
}
