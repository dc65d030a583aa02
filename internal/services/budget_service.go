package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/storage"
)

// Actions carried by change events.
const (
	ActionMonthCreated   = "month_created"
	ActionActiveMonthSet = "active_month_set"
	ActionIncomeAdded    = "income_added"
	ActionIncomeUpdated  = "income_updated"
	ActionIncomeDeleted  = "income_deleted"
	ActionIncomeMoved    = "income_moved"
	ActionGroupAdded     = "group_added"
	ActionGroupRenamed   = "group_renamed"
	ActionGroupDeleted   = "group_deleted"
	ActionGroupMoved     = "group_moved"
	ActionExpenseAdded   = "expense_added"
	ActionExpenseUpdated = "expense_updated"
	ActionExpenseDeleted = "expense_deleted"
	ActionExpensePaid    = "expense_paid"
	ActionExpenseMoved   = "expense_moved"
	ActionNotesUpdated   = "notes_updated"
	ActionMonthCleared   = "month_cleared"
	ActionMonthCopied    = "month_copied"
	ActionImported       = "imported"
)

// Publisher announces that a month changed.
type Publisher interface {
	PublishMonthChanged(ctx context.Context, month core.MonthKey, action string) error
}

type (
	IncomeInput struct {
		Name   string
		Amount string
	}

	// IncomePatch updates only the non-nil fields.
	IncomePatch struct {
		Name   *string
		Amount *string
	}

	ExpenseInput struct {
		// GroupID selects the group; empty means the first group.
		GroupID string
		Name    string
		Amount  string
		DueDay  *int
		Paid    bool
	}

	// ExpensePatch updates only the non-nil fields. ClearDueDay removes the
	// due day and wins over DueDay.
	ExpensePatch struct {
		Name        *string
		Amount      *string
		DueDay      *int
		ClearDueDay bool
		Paid        *bool
	}

	// MonthView is a month record with its totals and resolved due dates,
	// keyed by expense id. It is shared between callers and must not be
	// modified.
	MonthView struct {
		Month   core.MonthKey      `json:"month"`
		Record  *core.MonthRecord  `json:"record"`
		Summary core.MonthSummary  `json:"summary"`
		Due     map[string]DueDate `json:"due"`
		// Saved is false for a month that has not been stored yet.
		Saved bool `json:"saved"`
	}
)

// BudgetService owns the state document. Every mutation runs under one lock,
// is applied to a copy, persisted in full and only then made visible, so a
// failed save leaves the state unchanged.
type BudgetService struct {
	mu        sync.Mutex
	state     *core.State
	store     storage.Store
	publisher Publisher
	cache     *SummaryCache
	now       func() time.Time
}

type Option func(*BudgetService)

// WithPublisher sets the change event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *BudgetService) { s.publisher = p }
}

// WithSummaryCache enables caching of month views.
func WithSummaryCache(c *SummaryCache) Option {
	return func(s *BudgetService) { s.cache = c }
}

// WithClock overrides the clock used to pick the current month.
func WithClock(now func() time.Time) Option {
	return func(s *BudgetService) { s.now = now }
}

// NewBudgetService loads the state from store.
func NewBudgetService(ctx context.Context, store storage.Store, opts ...Option) (*BudgetService, error) {
	s := &BudgetService{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	state, err := storage.LoadState(ctx, store, s.now())
	if err != nil {
		return nil, err
	}
	s.state = state
	return s, nil
}

// State returns a copy of the whole state.
func (s *BudgetService) State() *core.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// ActiveMonth returns the month the user last selected.
func (s *BudgetService) ActiveMonth() core.MonthKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveMonth
}

// Month returns a copy of the record for key, creating it on first access.
func (s *BudgetService) Month(ctx context.Context, key core.MonthKey) (*core.MonthRecord, error) {
	if _, err := core.ParseMonthKey(string(key)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if m, ok := s.state.Months[key]; ok && m != nil {
		defer s.mu.Unlock()
		return m.Clone(), nil
	}
	s.mu.Unlock()

	var out *core.MonthRecord
	err := s.mutateMonth(ctx, key, ActionMonthCreated, func(m *core.MonthRecord) error {
		out = m.Clone()
		return nil
	})
	return out, err
}

// SetActiveMonth selects key, creating its record if needed.
func (s *BudgetService) SetActiveMonth(ctx context.Context, key core.MonthKey) error {
	if _, err := core.ParseMonthKey(string(key)); err != nil {
		return err
	}
	return s.mutate(ctx, key, ActionActiveMonthSet, func(st *core.State) error {
		st.ActiveMonth = key
		st.EnsureMonth(key)
		return nil
	})
}

func (s *BudgetService) AddIncome(ctx context.Context, key core.MonthKey, in IncomeInput) (core.IncomeItem, error) {
	item := core.IncomeItem{
		ID:     core.NewID(),
		Name:   strings.TrimSpace(in.Name),
		Amount: core.Amount(strings.TrimSpace(in.Amount)),
	}
	err := s.mutateMonth(ctx, key, ActionIncomeAdded, func(m *core.MonthRecord) error {
		m.Incomes = append(m.Incomes, item)
		return nil
	})
	if err != nil {
		return core.IncomeItem{}, err
	}
	return item, nil
}

func (s *BudgetService) UpdateIncome(ctx context.Context, key core.MonthKey, id string, patch IncomePatch) (core.IncomeItem, error) {
	var out core.IncomeItem
	err := s.mutateMonth(ctx, key, ActionIncomeUpdated, func(m *core.MonthRecord) error {
		i := m.FindIncome(id)
		if i < 0 {
			return fmt.Errorf("income %s: %w", id, core.ErrNotFound)
		}
		if patch.Name != nil {
			m.Incomes[i].Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Amount != nil {
			m.Incomes[i].Amount = core.Amount(strings.TrimSpace(*patch.Amount))
		}
		out = m.Incomes[i]
		return nil
	})
	return out, err
}

func (s *BudgetService) DeleteIncome(ctx context.Context, key core.MonthKey, id string) error {
	return s.mutateMonth(ctx, key, ActionIncomeDeleted, func(m *core.MonthRecord) error {
		i := m.FindIncome(id)
		if i < 0 {
			return fmt.Errorf("income %s: %w", id, core.ErrNotFound)
		}
		m.Incomes = append(m.Incomes[:i], m.Incomes[i+1:]...)
		return nil
	})
}

// MoveIncome moves the income to insertion index to.
func (s *BudgetService) MoveIncome(ctx context.Context, key core.MonthKey, id string, to int) error {
	return s.mutateMonth(ctx, key, ActionIncomeMoved, func(m *core.MonthRecord) error {
		if m.FindIncome(id) < 0 {
			return fmt.Errorf("income %s: %w", id, core.ErrNotFound)
		}
		m.Incomes = Reposition(m.Incomes, id, to, incomeID)
		return nil
	})
}

func (s *BudgetService) AddGroup(ctx context.Context, key core.MonthKey, label string) (core.ExpenseGroup, error) {
	g := core.NewGroup(label)
	err := s.mutateMonth(ctx, key, ActionGroupAdded, func(m *core.MonthRecord) error {
		m.ExpenseGroups = append(m.ExpenseGroups, g)
		return nil
	})
	if err != nil {
		return core.ExpenseGroup{}, err
	}
	return g, nil
}

// RenameGroup relabels a group. A blank label becomes the default label.
func (s *BudgetService) RenameGroup(ctx context.Context, key core.MonthKey, id, label string) error {
	return s.mutateMonth(ctx, key, ActionGroupRenamed, func(m *core.MonthRecord) error {
		i := m.FindGroup(id)
		if i < 0 {
			return fmt.Errorf("group %s: %w", id, core.ErrNotFound)
		}
		label = strings.TrimSpace(label)
		if label == "" {
			label = core.DefaultGroupLabel
		}
		m.ExpenseGroups[i].Label = label
		return nil
	})
}

// DeleteGroup removes a group and its expenses. Deleting the last group
// leaves a fresh default group in its place.
func (s *BudgetService) DeleteGroup(ctx context.Context, key core.MonthKey, id string) error {
	return s.mutateMonth(ctx, key, ActionGroupDeleted, func(m *core.MonthRecord) error {
		i := m.FindGroup(id)
		if i < 0 {
			return fmt.Errorf("group %s: %w", id, core.ErrNotFound)
		}
		m.ExpenseGroups = append(m.ExpenseGroups[:i], m.ExpenseGroups[i+1:]...)
		if len(m.ExpenseGroups) == 0 {
			m.ExpenseGroups = []core.ExpenseGroup{core.NewGroup(core.DefaultGroupLabel)}
		}
		return nil
	})
}

func (s *BudgetService) MoveGroup(ctx context.Context, key core.MonthKey, id string, to int) error {
	return s.mutateMonth(ctx, key, ActionGroupMoved, func(m *core.MonthRecord) error {
		if m.FindGroup(id) < 0 {
			return fmt.Errorf("group %s: %w", id, core.ErrNotFound)
		}
		m.ExpenseGroups = Reposition(m.ExpenseGroups, id, to, groupID)
		return nil
	})
}

func (s *BudgetService) AddExpense(ctx context.Context, key core.MonthKey, in ExpenseInput) (core.ExpenseItem, error) {
	item := core.ExpenseItem{
		ID:     core.NewID(),
		Name:   strings.TrimSpace(in.Name),
		Amount: core.Amount(strings.TrimSpace(in.Amount)),
		DueDay: core.ClampDueDay(in.DueDay),
		Paid:   in.Paid,
	}
	err := s.mutateMonth(ctx, key, ActionExpenseAdded, func(m *core.MonthRecord) error {
		gi := 0
		if in.GroupID != "" {
			gi = m.FindGroup(in.GroupID)
			if gi < 0 {
				return fmt.Errorf("group %s: %w", in.GroupID, core.ErrNotFound)
			}
		}
		m.ExpenseGroups[gi].Items = append(m.ExpenseGroups[gi].Items, item)
		return nil
	})
	if err != nil {
		return core.ExpenseItem{}, err
	}
	return item.Clone(), nil
}

func (s *BudgetService) UpdateExpense(ctx context.Context, key core.MonthKey, id string, patch ExpensePatch) (core.ExpenseItem, error) {
	var out core.ExpenseItem
	err := s.mutateMonth(ctx, key, ActionExpenseUpdated, func(m *core.MonthRecord) error {
		gi, ii := m.FindExpense(id)
		if gi < 0 {
			return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
		}
		e := &m.ExpenseGroups[gi].Items[ii]
		if patch.Name != nil {
			e.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Amount != nil {
			e.Amount = core.Amount(strings.TrimSpace(*patch.Amount))
		}
		switch {
		case patch.ClearDueDay:
			e.DueDay = nil
		case patch.DueDay != nil:
			e.DueDay = core.ClampDueDay(patch.DueDay)
		}
		if patch.Paid != nil {
			e.Paid = *patch.Paid
		}
		out = e.Clone()
		return nil
	})
	return out, err
}

func (s *BudgetService) DeleteExpense(ctx context.Context, key core.MonthKey, id string) error {
	return s.mutateMonth(ctx, key, ActionExpenseDeleted, func(m *core.MonthRecord) error {
		gi, ii := m.FindExpense(id)
		if gi < 0 {
			return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
		}
		items := m.ExpenseGroups[gi].Items
		m.ExpenseGroups[gi].Items = append(items[:ii], items[ii+1:]...)
		return nil
	})
}

func (s *BudgetService) SetPaid(ctx context.Context, key core.MonthKey, id string, paid bool) error {
	_, err := s.UpdateExpense(ctx, key, id, ExpensePatch{Paid: &paid})
	return err
}

// TogglePaid flips the paid flag and returns the new value.
func (s *BudgetService) TogglePaid(ctx context.Context, key core.MonthKey, id string) (bool, error) {
	var paid bool
	err := s.mutateMonth(ctx, key, ActionExpensePaid, func(m *core.MonthRecord) error {
		gi, ii := m.FindExpense(id)
		if gi < 0 {
			return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
		}
		e := &m.ExpenseGroups[gi].Items[ii]
		e.Paid = !e.Paid
		paid = e.Paid
		return nil
	})
	return paid, err
}

// MoveExpense moves an expense to insertion index to of group toGroup, which
// may be the group it is already in. An empty toGroup keeps the current group.
func (s *BudgetService) MoveExpense(ctx context.Context, key core.MonthKey, id, toGroup string, to int) error {
	return s.mutateMonth(ctx, key, ActionExpenseMoved, func(m *core.MonthRecord) error {
		from, _ := m.FindExpense(id)
		if from < 0 {
			return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
		}
		dst := from
		if toGroup != "" {
			dst = m.FindGroup(toGroup)
			if dst < 0 {
				return fmt.Errorf("group %s: %w", toGroup, core.ErrNotFound)
			}
		}

		if dst == from {
			m.ExpenseGroups[from].Items = Reposition(m.ExpenseGroups[from].Items, id, to, expenseID)
			return nil
		}
		m.ExpenseGroups[from].Items, m.ExpenseGroups[dst].Items = RepositionAcross(
			m.ExpenseGroups[from].Items, m.ExpenseGroups[dst].Items, id, to, expenseID)
		return nil
	})
}

func (s *BudgetService) SetNotes(ctx context.Context, key core.MonthKey, notes string) error {
	return s.mutateMonth(ctx, key, ActionNotesUpdated, func(m *core.MonthRecord) error {
		m.Notes = notes
		return nil
	})
}

// ClearMonth empties a month in place: no incomes, a single default group
// and no notes.
func (s *BudgetService) ClearMonth(ctx context.Context, key core.MonthKey) error {
	return s.mutateMonth(ctx, key, ActionMonthCleared, func(m *core.MonthRecord) error {
		*m = *core.NewMonthRecord()
		return nil
	})
}

// CopyMonth replaces the incomes and groups of to with those of from. Copies
// get fresh ids and start unpaid; the notes of to are kept.
func (s *BudgetService) CopyMonth(ctx context.Context, from, to core.MonthKey) error {
	for _, key := range []core.MonthKey{from, to} {
		if _, err := core.ParseMonthKey(string(key)); err != nil {
			return err
		}
	}
	return s.mutate(ctx, to, ActionMonthCopied, func(st *core.State) error {
		src, ok := st.Months[from]
		if !ok || src == nil {
			return fmt.Errorf("month %s: %w", from, core.ErrNotFound)
		}
		src = src.Clone()

		for i := range src.Incomes {
			src.Incomes[i].ID = core.NewID()
		}
		for gi := range src.ExpenseGroups {
			g := &src.ExpenseGroups[gi]
			g.ID = core.NewID()
			for ii := range g.Items {
				g.Items[ii].ID = core.NewID()
				g.Items[ii].Paid = false
			}
		}

		m, _ := st.EnsureMonth(to)
		m.Incomes = src.Incomes
		m.ExpenseGroups = src.ExpenseGroups
		return nil
	})
}

// Summary returns the month with its totals and resolved due dates.
func (s *BudgetService) Summary(ctx context.Context, key core.MonthKey) (MonthView, error) {
	if view, ok := s.cache.Get(key); ok {
		return view, nil
	}

	snapshot, err := s.Month(ctx, key)
	if err != nil {
		return MonthView{}, err
	}

	// Cached under the lock; mutate invalidates under the same lock.
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.Months[key]
	if !ok || m == nil {
		// Replaced by an import since Month returned; serve the snapshot uncached.
		return BuildMonthView(key, snapshot), nil
	}
	view := BuildMonthView(key, m.Clone())
	view.Saved = true
	s.cache.Set(key, view)
	return view, nil
}

// View is Summary without the side effect: a month that does not exist yet is
// rendered as a fresh record and left unsaved.
func (s *BudgetService) View(_ context.Context, key core.MonthKey) (MonthView, error) {
	if _, err := core.ParseMonthKey(string(key)); err != nil {
		return MonthView{}, err
	}
	if view, ok := s.cache.Get(key); ok {
		return view, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.Months[key]
	if !ok || m == nil {
		return BuildMonthView(key, nil), nil
	}
	view := BuildMonthView(key, m.Clone())
	view.Saved = true
	s.cache.Set(key, view)
	return view, nil
}

// BuildMonthView computes the view of a record without touching any state.
func BuildMonthView(key core.MonthKey, m *core.MonthRecord) MonthView {
	if m == nil {
		m = core.NewMonthRecord()
	}
	view := MonthView{
		Month:   key,
		Record:  m,
		Summary: core.Summarize(key, m),
		Due:     make(map[string]DueDate),
	}
	for _, g := range m.ExpenseGroups {
		for _, e := range g.Items {
			if due, ok := ResolveDueDay(string(key), e.DueDay); ok {
				view.Due[e.ID] = due
			}
		}
	}
	return view
}

// Export returns the whole document in its persisted layout.
func (s *BudgetService) Export(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := core.EncodeState(s.state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// Import replaces the whole state with data. Malformed documents are
// rejected with core.ErrInvalidImport and leave the state untouched.
func (s *BudgetService) Import(ctx context.Context, data []byte) error {
	imported, err := core.ParseImport(data, s.now())
	if err != nil {
		return err
	}
	return s.mutate(ctx, "", ActionImported, func(st *core.State) error {
		*st = *imported
		return nil
	})
}

// mutateMonth runs fn on the record for key, creating it first if needed.
func (s *BudgetService) mutateMonth(ctx context.Context, key core.MonthKey, action string, fn func(m *core.MonthRecord) error) error {
	if _, err := core.ParseMonthKey(string(key)); err != nil {
		return err
	}
	return s.mutate(ctx, key, action, func(st *core.State) error {
		m, _ := st.EnsureMonth(key)
		return fn(m)
	})
}

// mutate applies fn to a copy of the state, saves it and swaps it in. An
// empty month means the change may touch every month.
func (s *BudgetService) mutate(ctx context.Context, month core.MonthKey, action string, fn func(st *core.State) error) error {
	s.mu.Lock()
	next := s.state.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}

	data, err := core.EncodeState(next)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.store.Save(ctx, data); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save state: %w", err)
	}
	s.state = next
	if month == "" {
		month = next.ActiveMonth
		s.cache.Clear()
	} else {
		s.cache.Invalidate(month)
	}
	s.mu.Unlock()

	slog.DebugContext(ctx, "State updated", "month", month, "action", action)

	if err := s.publish(ctx, month, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish month changed message",
			"month", month, "action", action, "error", err)
		// Don't fail the request - the change is saved
	}
	return nil
}

func (s *BudgetService) publish(ctx context.Context, month core.MonthKey, action string) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishMonthChanged(ctx, month, action)
}

// Close closes the store.
func (s *BudgetService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	s.cache.Close()
	if len(errs) > 0 {
		return fmt.Errorf("close budget service: %w", errors.Join(errs...))
	}
	return nil
}

func incomeID(v core.IncomeItem) string   { return v.ID }
func groupID(v core.ExpenseGroup) string  { return v.ID }
func expenseID(v core.ExpenseItem) string { return v.ID }
