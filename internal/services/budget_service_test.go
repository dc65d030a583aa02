package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/storage"
)

var fixedNow = time.Date(2024, time.February, 14, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) PublishMonthChanged(_ context.Context, month core.MonthKey, action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, string(month)+":"+action)
	return p.err
}

func (p *recordingPublisher) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return ""
	}
	return p.events[len(p.events)-1]
}

type saveFailingStore struct {
	*storage.MemoryStore
	fail bool
}

func (s *saveFailingStore) Save(ctx context.Context, data []byte) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, data)
}

func newTestService(t *testing.T, opts ...Option) (*BudgetService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc, err := NewBudgetService(context.Background(), store, opts...)
	if err != nil {
		t.Fatalf("NewBudgetService: %v", err)
	}
	return svc, store
}

func TestNewBudgetServiceStartsFresh(t *testing.T) {
	svc, _ := newTestService(t)
	if got := svc.ActiveMonth(); got != "2024-02" {
		t.Fatalf("ActiveMonth = %s, want 2024-02", got)
	}
	m, err := svc.Month(context.Background(), "2024-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.ExpenseGroups) != 1 || m.ExpenseGroups[0].Label != core.DefaultGroupLabel {
		t.Fatalf("fresh month should have one General group, got %+v", m.ExpenseGroups)
	}
}

func TestMonthCreatedOnFirstAccessIsPersisted(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	if _, err := svc.Month(ctx, "2030-07"); err != nil {
		t.Fatal(err)
	}
	reloaded, err := storage.LoadState(ctx, store, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reloaded.Months["2030-07"]; !ok {
		t.Fatal("month created on access was not persisted")
	}

	if _, err := svc.Month(ctx, "2030-13"); !errors.Is(err, core.ErrInvalidMonthKey) {
		t.Fatalf("invalid key: got %v, want ErrInvalidMonthKey", err)
	}
}

func TestIncomeLifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, WithPublisher(pub))
	const key = core.MonthKey("2024-02")

	a, err := svc.AddIncome(ctx, key, IncomeInput{Name: " Salary ", Amount: "2500"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "Salary" || a.ID == "" {
		t.Fatalf("unexpected income %+v", a)
	}
	if pub.last() != "2024-02:"+ActionIncomeAdded {
		t.Errorf("last event = %q", pub.last())
	}
	b, _ := svc.AddIncome(ctx, key, IncomeInput{Name: "Bonus", Amount: "abc"})

	amount := "300"
	updated, err := svc.UpdateIncome(ctx, key, b.ID, IncomePatch{Amount: &amount})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Bonus" || updated.Amount != "300" {
		t.Errorf("UpdateIncome = %+v", updated)
	}

	if err := svc.MoveIncome(ctx, key, b.ID, 0); err != nil {
		t.Fatal(err)
	}
	m, _ := svc.Month(ctx, key)
	if m.Incomes[0].ID != b.ID || m.Incomes[1].ID != a.ID {
		t.Fatalf("MoveIncome did not reorder: %+v", m.Incomes)
	}

	if err := svc.DeleteIncome(ctx, key, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteIncome(ctx, key, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
	m, _ = svc.Month(ctx, key)
	if len(m.Incomes) != 1 {
		t.Fatalf("expected one income left, got %d", len(m.Incomes))
	}
}

func TestDeleteLastGroupLeavesGeneral(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	const key = core.MonthKey("2024-02")

	m, _ := svc.Month(ctx, key)
	only := m.ExpenseGroups[0].ID
	if _, err := svc.AddExpense(ctx, key, ExpenseInput{Name: "Rent", Amount: "500"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.RenameGroup(ctx, key, only, "Housing"); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteGroup(ctx, key, only); err != nil {
		t.Fatal(err)
	}

	m, _ = svc.Month(ctx, key)
	if len(m.ExpenseGroups) != 1 {
		t.Fatalf("expected exactly one group, got %d", len(m.ExpenseGroups))
	}
	g := m.ExpenseGroups[0]
	if g.Label != core.DefaultGroupLabel || g.ID == only || len(g.Items) != 0 {
		t.Fatalf("expected a fresh General group, got %+v", g)
	}
}

func TestRenameGroupBlankLabel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	const key = core.MonthKey("2024-02")

	g, _ := svc.AddGroup(ctx, key, "Utilities")
	if err := svc.RenameGroup(ctx, key, g.ID, "   "); err != nil {
		t.Fatal(err)
	}
	m, _ := svc.Month(ctx, key)
	if m.ExpenseGroups[1].Label != core.DefaultGroupLabel {
		t.Fatalf("blank label = %q, want General", m.ExpenseGroups[1].Label)
	}
	if err := svc.MoveGroup(ctx, key, g.ID, 0); err != nil {
		t.Fatal(err)
	}
	m, _ = svc.Month(ctx, key)
	if m.ExpenseGroups[0].ID != g.ID {
		t.Fatal("MoveGroup did not move the group to the front")
	}
}

func TestExpenseOperations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	const key = core.MonthKey("2024-02")

	m, _ := svc.Month(ctx, key)
	general := m.ExpenseGroups[0].ID
	bills, _ := svc.AddGroup(ctx, key, "Bills")

	rent, _ := svc.AddExpense(ctx, key, ExpenseInput{Name: "Rent", Amount: "800", DueDay: intPtr(40)})
	if rent.DueDay == nil || *rent.DueDay != 31 {
		t.Fatalf("due day not clamped: %v", rent.DueDay)
	}
	food, _ := svc.AddExpense(ctx, key, ExpenseInput{Name: "Food", Amount: "200"})
	phone, err := svc.AddExpense(ctx, key, ExpenseInput{GroupID: bills.ID, Name: "Phone", Amount: "30"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddExpense(ctx, key, ExpenseInput{GroupID: "missing"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown group: got %v, want ErrNotFound", err)
	}

	paid, err := svc.TogglePaid(ctx, key, food.ID)
	if err != nil || !paid {
		t.Fatalf("TogglePaid = %v, %v", paid, err)
	}
	if err := svc.SetPaid(ctx, key, food.ID, false); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateExpense(ctx, key, rent.ID, ExpensePatch{ClearDueDay: true, DueDay: intPtr(5)})
	if err != nil {
		t.Fatal(err)
	}
	if updated.DueDay != nil {
		t.Errorf("ClearDueDay should remove the due day, got %d", *updated.DueDay)
	}

	// Cross-group move to the front of Bills.
	if err := svc.MoveExpense(ctx, key, rent.ID, bills.ID, 0); err != nil {
		t.Fatal(err)
	}
	m, _ = svc.Month(ctx, key)
	gi := m.FindGroup(general)
	bi := m.FindGroup(bills.ID)
	if len(m.ExpenseGroups[gi].Items) != 1 || m.ExpenseGroups[gi].Items[0].ID != food.ID {
		t.Fatalf("General after move = %+v", m.ExpenseGroups[gi].Items)
	}
	if m.ExpenseGroups[bi].Items[0].ID != rent.ID || m.ExpenseGroups[bi].Items[1].ID != phone.ID {
		t.Fatalf("Bills after move = %+v", m.ExpenseGroups[bi].Items)
	}

	// Same-group move to the end.
	if err := svc.MoveExpense(ctx, key, rent.ID, "", 2); err != nil {
		t.Fatal(err)
	}
	m, _ = svc.Month(ctx, key)
	if m.ExpenseGroups[bi].Items[1].ID != rent.ID {
		t.Fatalf("Bills after append = %+v", m.ExpenseGroups[bi].Items)
	}

	if err := svc.MoveExpense(ctx, key, "nope", bills.ID, 0); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown expense: got %v", err)
	}
	if err := svc.DeleteExpense(ctx, key, phone.ID); err != nil {
		t.Fatal(err)
	}
	if _, _, err := findExpense(svc, key, phone.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatal("phone should be gone")
	}
}

func findExpense(svc *BudgetService, key core.MonthKey, id string) (int, int, error) {
	m, err := svc.Month(context.Background(), key)
	if err != nil {
		return -1, -1, err
	}
	gi, ii := m.FindExpense(id)
	if gi < 0 {
		return gi, ii, core.ErrNotFound
	}
	return gi, ii, nil
}

func TestClearAndCopyMonth(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	const jan, feb = core.MonthKey("2024-01"), core.MonthKey("2024-02")

	_, _ = svc.AddIncome(ctx, jan, IncomeInput{Name: "Salary", Amount: "2000"})
	rent, _ := svc.AddExpense(ctx, jan, ExpenseInput{Name: "Rent", Amount: "700", DueDay: intPtr(1), Paid: true})
	_ = svc.SetNotes(ctx, feb, "keep me")

	if err := svc.CopyMonth(ctx, jan, feb); err != nil {
		t.Fatal(err)
	}
	m, _ := svc.Month(ctx, feb)
	if len(m.Incomes) != 1 || m.Notes != "keep me" {
		t.Fatalf("copied month = %+v", m)
	}
	copied := m.ExpenseGroups[0].Items[0]
	if copied.ID == rent.ID || copied.Paid || copied.Name != "Rent" || *copied.DueDay != 1 {
		t.Fatalf("copied expense = %+v", copied)
	}

	if err := svc.CopyMonth(ctx, "2019-05", feb); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing source: got %v, want ErrNotFound", err)
	}

	if err := svc.ClearMonth(ctx, feb); err != nil {
		t.Fatal(err)
	}
	m, _ = svc.Month(ctx, feb)
	if len(m.Incomes) != 0 || m.Notes != "" || len(m.ExpenseGroups) != 1 || len(m.ExpenseGroups[0].Items) != 0 {
		t.Fatalf("cleared month = %+v", m)
	}
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	cache, err := NewSummaryCache(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	svc, _ := newTestService(t, WithSummaryCache(cache))
	const key = core.MonthKey("2024-02")

	_, _ = svc.AddIncome(ctx, key, IncomeInput{Name: "Salary", Amount: "1000"})
	e, _ := svc.AddExpense(ctx, key, ExpenseInput{Name: "Rent", Amount: "400", DueDay: intPtr(31), Paid: true})
	_, _ = svc.AddExpense(ctx, key, ExpenseInput{Name: "Misc", Amount: "n/a"})

	view, err := svc.Summary(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got := view.Summary.Balance.StringFixed(2); got != "600.00" {
		t.Errorf("Balance = %s, want 600.00", got)
	}
	due, ok := view.Due[e.ID]
	if !ok || due.Day != 29 || !due.Clamped {
		t.Errorf("due = %+v, want day 29 clamped", due)
	}

	// A mutation must never be hidden by the cache.
	_, _ = svc.AddIncome(ctx, key, IncomeInput{Name: "Gift", Amount: "50"})
	view, _ = svc.Summary(ctx, key)
	if got := view.Summary.Income.StringFixed(2); got != "1050.00" {
		t.Errorf("Income after mutation = %s, want 1050.00", got)
	}
}

func TestFailedSaveLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := &saveFailingStore{MemoryStore: storage.NewMemoryStore()}
	svc, err := NewBudgetService(ctx, store, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddIncome(ctx, "2024-02", IncomeInput{Name: "Salary"}); err != nil {
		t.Fatal(err)
	}

	store.fail = true
	if _, err := svc.AddIncome(ctx, "2024-02", IncomeInput{Name: "Lost"}); err == nil {
		t.Fatal("expected save error")
	}
	m, _ := svc.Month(ctx, "2024-02")
	if len(m.Incomes) != 1 {
		t.Fatalf("failed save changed the state: %+v", m.Incomes)
	}
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newTestService(t, WithPublisher(pub))
	if err := svc.SetNotes(context.Background(), "2024-02", "hello"); err != nil {
		t.Fatalf("publish failure must not fail the mutation: %v", err)
	}
}

func TestImportExport(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	_, _ = svc.AddIncome(ctx, "2024-02", IncomeInput{Name: "Salary", Amount: "100"})
	before, _ := svc.Export(ctx)

	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"months":`},
		{"missing months", `{"activeMonth":"2024-01"}`},
		{"months not an object", `{"months":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Import(ctx, []byte(tt.data))
			if !errors.Is(err, core.ErrInvalidImport) {
				t.Fatalf("Import = %v, want ErrInvalidImport", err)
			}
			after, _ := svc.Export(ctx)
			if string(after) != string(before) {
				t.Fatal("rejected import changed the state")
			}
		})
	}

	doc := `{"activeMonth":"2023-06","months":{"2023-06":{"expenses":[{"id":"a","name":"Rent","amount":"500"}]}}}`
	if err := svc.Import(ctx, []byte(doc)); err != nil {
		t.Fatal(err)
	}
	if svc.ActiveMonth() != "2023-06" {
		t.Errorf("ActiveMonth = %s", svc.ActiveMonth())
	}
	m, _ := svc.Month(ctx, "2023-06")
	if len(m.ExpenseGroups) != 1 || m.ExpenseGroups[0].Items[0].ID != "a" {
		t.Fatalf("imported month = %+v", m)
	}

	saved, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var persisted map[string]json.RawMessage
	if err := json.Unmarshal(saved, &persisted); err != nil {
		t.Fatal(err)
	}
	if _, ok := persisted["months"]; !ok {
		t.Fatal("persisted document lost its months")
	}
}

func TestSetActiveMonth(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	if err := svc.SetActiveMonth(ctx, "bad"); !errors.Is(err, core.ErrInvalidMonthKey) {
		t.Fatalf("got %v, want ErrInvalidMonthKey", err)
	}
	if err := svc.SetActiveMonth(ctx, "2025-12"); err != nil {
		t.Fatal(err)
	}
	st := svc.State()
	if st.ActiveMonth != "2025-12" || st.Months["2025-12"] == nil {
		t.Fatalf("state = %+v", st)
	}
}

func TestSummaryDuringImportThatDropsMonth(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	doc := []byte(`{"activeMonth": "2024-01", "months": {"2024-01": {"incomes": [], "expenseGroups": [], "notes": ""}}}`)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := svc.Import(ctx, doc); err != nil {
				t.Errorf("Import: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			key := core.MonthKey("2024-03")
			view, err := svc.Summary(ctx, key)
			if err != nil {
				t.Errorf("Summary: %v", err)
				return
			}
			if view.Month != key || view.Record == nil {
				t.Errorf("view = %+v", view)
				return
			}
		}
	}()
	wg.Wait()
}

func TestBuildMonthViewNilRecord(t *testing.T) {
	view := BuildMonthView("2024-02", nil)
	if view.Record == nil || len(view.Record.ExpenseGroups) != 1 {
		t.Fatalf("nil record should render as a fresh month, got %+v", view.Record)
	}
	if !view.Summary.Balance.IsZero() {
		t.Errorf("balance = %s", view.Summary.Balance)
	}
}

func TestViewDoesNotStoreMonth(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, store := newTestService(t, WithPublisher(pub))

	view, err := svc.View(ctx, "2024-05")
	if err != nil {
		t.Fatal(err)
	}
	if view.Saved || view.Record == nil || len(view.Record.ExpenseGroups) != 1 {
		t.Fatalf("unsaved view = %+v", view)
	}
	if _, ok := svc.State().Months["2024-05"]; ok {
		t.Error("View stored the month")
	}
	if _, err := store.Load(ctx); err == nil {
		t.Error("View saved the document")
	}
	if pub.last() != "" {
		t.Errorf("View published %q", pub.last())
	}

	if _, err := svc.View(ctx, "2024-13"); !errors.Is(err, core.ErrInvalidMonthKey) {
		t.Errorf("invalid month err = %v", err)
	}

	saved, err := svc.View(ctx, "2024-02")
	if err != nil || !saved.Saved {
		t.Errorf("active month view = %+v, %v", saved, err)
	}
}
