package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter exports the totals of one month. Writing the same month
	// again replaces the previous export.
	SummaryWriter interface {
		WriteMonthSummary(ctx context.Context, key core.MonthKey, summary core.MonthSummary) (rowRef string, err error)
	}
)
