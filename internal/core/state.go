package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NewState returns an empty state whose active month is the month of now.
func NewState(now time.Time) *State {
	s := &State{ActiveMonth: CurrentMonthKey(now), Months: make(map[MonthKey]*MonthRecord)}
	s.EnsureMonth(s.ActiveMonth)
	return s
}

// DecodeState reads a persisted document. It never fails: an empty or
// malformed document yields a fresh state, reported through fresh.
func DecodeState(data []byte, now time.Time) (s *State, fresh bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewState(now), true
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return NewState(now), true
	}
	Normalize(&st, now)
	return &st, false
}

// ParseImport reads a user supplied document. Unlike DecodeState it rejects
// malformed JSON and documents without a top-level "months" object.
func ParseImport(data []byte, now time.Time) (*State, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	months, ok := top["months"]
	if !ok || !isJSONObject(months) {
		return nil, fmt.Errorf("%w: missing months", ErrInvalidImport)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	Normalize(&st, now)
	return &st, nil
}

// EncodeState renders the document in the persisted layout.
func EncodeState(s *State) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Normalize repairs a decoded state in place so every invariant holds:
// the active month is valid and exists, every month has at least one group,
// every id is present and unique within its month, labels are never blank
// and due days are within 1-31.
func Normalize(s *State, now time.Time) {
	if s.Months == nil {
		s.Months = make(map[MonthKey]*MonthRecord)
	}
	for k, m := range s.Months {
		if m == nil {
			s.Months[k] = NewMonthRecord()
			continue
		}
		NormalizeMonth(m)
	}
	if !s.ActiveMonth.Valid() {
		s.ActiveMonth = CurrentMonthKey(now)
	}
	s.EnsureMonth(s.ActiveMonth)
}

// NormalizeMonth applies the record level invariants of Normalize.
func NormalizeMonth(m *MonthRecord) {
	seen := make(map[string]struct{})
	uniqueID := func(id string) string {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; id == "" || dup {
			id = NewID()
		}
		seen[id] = struct{}{}
		return id
	}

	if m.Incomes == nil {
		m.Incomes = []IncomeItem{}
	}
	for i := range m.Incomes {
		m.Incomes[i].ID = uniqueID(m.Incomes[i].ID)
	}

	for gi := range m.ExpenseGroups {
		g := &m.ExpenseGroups[gi]
		g.ID = uniqueID(g.ID)
		if strings.TrimSpace(g.Label) == "" {
			g.Label = DefaultGroupLabel
		}
		if g.Items == nil {
			g.Items = []ExpenseItem{}
		}
		for ii := range g.Items {
			e := &g.Items[ii]
			e.ID = uniqueID(e.ID)
			e.DueDay = ClampDueDay(e.DueDay)
		}
	}
	if len(m.ExpenseGroups) == 0 {
		m.ExpenseGroups = []ExpenseGroup{NewGroup(DefaultGroupLabel)}
	}
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
