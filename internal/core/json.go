package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Stored documents come from older versions and hand edited exports, so
// scalar fields are decoded leniently instead of failing the whole document.

// looseString accepts a JSON string, number or bool. Anything else decodes
// to the empty string.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*s = ""
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case 't', 'f':
		*s = looseString(b)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		// Keep the literal text so "500.10" does not become "500.1".
		*s = looseString(b)
	default:
		*s = ""
	}
	return nil
}

// looseBool accepts true/false, non-zero numbers and truthy strings.
type looseBool bool

func (v *looseBool) UnmarshalJSON(b []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "true", "1", "yes", "on":
		*v = true
	default:
		if f, err := strconv.ParseFloat(string(s), 64); err == nil && f != 0 {
			*v = true
			return nil
		}
		*v = false
	}
	return nil
}

// looseDay decodes a day of month from a number or numeric string. Empty,
// null and non-numeric values decode to "absent".
type looseDay struct {
	day *int
}

func (d *looseDay) UnmarshalJSON(b []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	d.day = parseDay(string(s))
	return nil
}

func parseDay(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	// Bound before converting: float to int overflow is implementation-defined.
	f = math.Max(-1, math.Min(32, math.Trunc(f)))
	day := int(f)
	return &day
}

// ParseDueDay converts user input into an optional day of month clamped to
// 1-31. Blank or non-numeric input means "no due day".
func ParseDueDay(s string) *int {
	return ClampDueDay(parseDay(s))
}

// ClampDueDay limits a stored due day to 1-31, keeping nil as nil.
func ClampDueDay(day *int) *int {
	if day == nil {
		return nil
	}
	d := *day
	if d < 1 {
		d = 1
	}
	if d > 31 {
		d = 31
	}
	return &d
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = Amount(s)
	return nil
}

func (in *IncomeItem) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID     looseString `json:"id"`
		Name   looseString `json:"name"`
		Amount looseString `json:"amount"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*in = IncomeItem{ID: string(aux.ID), Name: string(aux.Name), Amount: Amount(aux.Amount)}
	return nil
}

func (e *ExpenseItem) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID     looseString `json:"id"`
		Name   looseString `json:"name"`
		Amount looseString `json:"amount"`
		DueDay looseDay    `json:"dueDay"`
		Paid   looseBool   `json:"paid"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*e = ExpenseItem{
		ID:     string(aux.ID),
		Name:   string(aux.Name),
		Amount: Amount(aux.Amount),
		DueDay: aux.DueDay.day,
		Paid:   bool(aux.Paid),
	}
	return nil
}

func (g *ExpenseGroup) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID    looseString     `json:"id"`
		Label looseString     `json:"label"`
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*g = ExpenseGroup{ID: string(aux.ID), Label: string(aux.Label), Items: decodeList[ExpenseItem](aux.Items)}
	return nil
}

// UnmarshalJSON also migrates the legacy layout, where a month held a flat
// "expenses" list instead of groups, into a single default group.
func (m *MonthRecord) UnmarshalJSON(b []byte) error {
	var aux struct {
		Incomes       json.RawMessage `json:"incomes"`
		ExpenseGroups json.RawMessage `json:"expenseGroups"`
		Expenses      json.RawMessage `json:"expenses"`
		Notes         looseString     `json:"notes"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*m = MonthRecord{
		Incomes:       decodeList[IncomeItem](aux.Incomes),
		ExpenseGroups: decodeList[ExpenseGroup](aux.ExpenseGroups),
		Notes:         string(aux.Notes),
	}
	if len(m.ExpenseGroups) == 0 && isJSONArray(aux.Expenses) {
		m.ExpenseGroups = []ExpenseGroup{{
			Label: DefaultGroupLabel,
			Items: decodeList[ExpenseItem](aux.Expenses),
		}}
	}
	return nil
}

func (s *State) UnmarshalJSON(b []byte) error {
	var aux struct {
		ActiveMonth looseString                `json:"activeMonth"`
		Months      map[string]json.RawMessage `json:"months"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*s = State{ActiveMonth: MonthKey(strings.TrimSpace(string(aux.ActiveMonth))), Months: make(map[MonthKey]*MonthRecord, len(aux.Months))}
	for k, raw := range aux.Months {
		var m MonthRecord
		if err := json.Unmarshal(raw, &m); err != nil {
			// An unreadable month starts over rather than discarding the document.
			m = *NewMonthRecord()
		}
		s.Months[MonthKey(k)] = &m
	}
	return nil
}

// decodeList decodes a JSON array element by element, skipping elements that
// do not decode. Non-arrays decode to an empty list.
func decodeList[T any](raw json.RawMessage) []T {
	out := []T{}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return out
	}
	for _, el := range elems {
		if string(bytes.TrimSpace(el)) == "null" {
			continue
		}
		var v T
		if err := json.Unmarshal(el, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
