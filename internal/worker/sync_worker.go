package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/services"
	"budget/internal/sheets"
	"budget/internal/storage"
)

// SyncWorker exports month summaries from the state document to a
// SummaryWriter. It only reads the document.
type SyncWorker struct {
	store       storage.Store
	writer      sheets.SummaryWriter
	concurrency int
	now         func() time.Time
}

func NewSyncWorker(store storage.Store, writer sheets.SummaryWriter, concurrency int) *SyncWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SyncWorker{
		store:       store,
		writer:      writer,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// HandleMonthChanged exports the month named by the message. An import can
// touch every month, so it triggers a full resync.
func (w *SyncWorker) HandleMonthChanged(ctx context.Context, msg *amqp.MonthChangedMessage) error {
	if msg.Action == services.ActionImported {
		return w.ResyncAll(ctx)
	}

	state, err := storage.LoadState(ctx, w.store, w.now())
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	m, ok := state.Months[msg.Month]
	if !ok || m == nil {
		slog.WarnContext(ctx, "Month not found in state, skipping export", "month", msg.Month)
		return nil
	}

	return w.export(ctx, msg.Month, m)
}

// ResyncAll exports every month in the document with bounded concurrency.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ResyncAll(ctx context.Context) error {
	state, err := storage.LoadState(ctx, w.store, w.now())
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	keys := make([]core.MonthKey, 0, len(state.Months))
	for k := range state.Months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	slog.InfoContext(ctx, "Resyncing month summaries", "months", len(keys), "concurrency", w.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, key := range keys {
		key := key // per-iteration copy; go.mod targets go1.21 loop semantics
		m := state.Months[key]
		g.Go(func() error {
			return w.export(gctx, key, m)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("resync: %w", err)
	}

	slog.InfoContext(ctx, "Resync complete", "months", len(keys))
	return nil
}

func (w *SyncWorker) export(ctx context.Context, key core.MonthKey, m *core.MonthRecord) error {
	summary := core.Summarize(key, m)
	ref, err := w.writer.WriteMonthSummary(ctx, key, summary)
	if err != nil {
		return fmt.Errorf("write summary for %s: %w", key, err)
	}
	slog.InfoContext(ctx, "Exported month summary",
		"month", key,
		"ref", ref,
		"balance", core.FormatAmount(summary.Balance))
	return nil
}
