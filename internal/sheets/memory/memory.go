package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"budget/internal/core"
	"budget/internal/sheets"
)

var _ sheets.SummaryWriter = (*Store)(nil)

// Store keeps exported summaries in memory, one per month.
type Store struct {
	mu     sync.Mutex
	rows   map[core.MonthKey]core.MonthSummary
	order  []core.MonthKey
	writes int
}

func New() *Store {
	return &Store{rows: make(map[core.MonthKey]core.MonthSummary)}
}

// WriteMonthSummary stores the summary and returns a synthetic row reference.
func (s *Store) WriteMonthSummary(_ context.Context, key core.MonthKey, summary core.MonthSummary) (string, error) {
	if !key.Valid() {
		return "", fmt.Errorf("write summary: %w", core.ErrInvalidMonthKey)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[key]; !ok {
		s.order = append(s.order, key)
	}
	s.rows[key] = summary
	s.writes++
	return fmt.Sprintf("mem:%s", key), nil
}

// Summary returns the last summary written for key.
func (s *Store) Summary(key core.MonthKey) (core.MonthSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.rows[key]
	return sum, ok
}

// Months returns the exported months in key order.
func (s *Store) Months() []core.MonthKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.MonthKey(nil), s.order...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Writes returns how many summaries were written, including rewrites.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
