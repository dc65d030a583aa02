package worker

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/services"
	"budget/internal/sheets/memory"
	"budget/internal/storage"
)

const doc = `{
  "activeMonth": "2024-02",
  "months": {
    "2024-01": {"incomes": [{"id": "i1", "name": "Salary", "amount": "1000"}], "expenseGroups": [], "notes": ""},
    "2024-02": {"incomes": [], "expenseGroups": [{"id": "g", "label": "Home", "items": [
      {"id": "e1", "name": "Rent", "amount": "600", "dueDay": 1, "paid": true},
      {"id": "e2", "name": "Power", "amount": "40.5", "dueDay": null, "paid": false}
    ]}], "notes": ""},
    "2023-12": {"expenses": [{"id": "a", "name": "Rent", "amount": "500"}]}
  }
}`

func seededStore(t *testing.T) storage.Store {
	t.Helper()
	store := storage.NewMemoryStore()
	if err := store.Save(context.Background(), []byte(doc)); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestHandleMonthChanged(t *testing.T) {
	ctx := context.Background()
	writer := memory.New()
	w := NewSyncWorker(seededStore(t), writer, 2)

	msg := &amqp.MonthChangedMessage{Month: "2024-02", Action: services.ActionExpenseAdded, Timestamp: time.Now()}
	if err := w.HandleMonthChanged(ctx, msg); err != nil {
		t.Fatal(err)
	}

	sum, ok := writer.Summary("2024-02")
	if !ok {
		t.Fatal("summary not written")
	}
	if got := core.FormatAmount(sum.Expenses); got != "640.50" {
		t.Errorf("Expenses = %s, want 640.50", got)
	}
	if got := core.FormatAmount(sum.Unpaid); got != "40.50" {
		t.Errorf("Unpaid = %s, want 40.50", got)
	}
	if writer.Writes() != 1 {
		t.Errorf("Writes = %d, want 1", writer.Writes())
	}
}

func TestHandleMonthChangedUnknownMonth(t *testing.T) {
	writer := memory.New()
	w := NewSyncWorker(seededStore(t), writer, 1)

	msg := &amqp.MonthChangedMessage{Month: "1999-01", Action: services.ActionNotesUpdated}
	if err := w.HandleMonthChanged(context.Background(), msg); err != nil {
		t.Fatalf("unknown month should be skipped, got %v", err)
	}
	if writer.Writes() != 0 {
		t.Fatal("nothing should be written for an unknown month")
	}
}

func TestImportTriggersResync(t *testing.T) {
	writer := memory.New()
	w := NewSyncWorker(seededStore(t), writer, 2)

	msg := &amqp.MonthChangedMessage{Month: "2024-02", Action: services.ActionImported}
	if err := w.HandleMonthChanged(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	want := []core.MonthKey{"2023-12", "2024-01", "2024-02"}
	if got := writer.Months(); !reflect.DeepEqual(got, want) {
		t.Errorf("Months = %v, want %v", got, want)
	}
	legacy, _ := writer.Summary("2023-12")
	if got := core.FormatAmount(legacy.Expenses); got != "500.00" {
		t.Errorf("legacy month expenses = %s, want 500.00", got)
	}
}

type flakyWriter struct {
	calls atomic.Int32
}

func (f *flakyWriter) WriteMonthSummary(context.Context, core.MonthKey, core.MonthSummary) (string, error) {
	f.calls.Add(1)
	return "", errors.New("quota exceeded")
}

func TestResyncAllReportsWriterErrors(t *testing.T) {
	w := NewSyncWorker(seededStore(t), &flakyWriter{}, 1)
	if err := w.ResyncAll(context.Background()); err == nil {
		t.Fatal("expected an error from the writer")
	}
}

func TestResyncAllOnEmptyStore(t *testing.T) {
	writer := memory.New()
	w := NewSyncWorker(storage.NewMemoryStore(), writer, 0)
	if err := w.ResyncAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	// A fresh state holds only the current month.
	if writer.Writes() != 1 {
		t.Errorf("Writes = %d, want 1", writer.Writes())
	}
}
