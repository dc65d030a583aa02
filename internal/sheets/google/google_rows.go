package google

import (
	"fmt"
	"strings"

	"budget/internal/core"
)

var summaryHeader = []any{"Month", "Income", "Expenses", "Paid", "Unpaid", "Balance"}

// findRow returns the 1-based row whose first cell equals key, or the row
// after the last one when key is absent.
func findRow(values [][]any, key core.MonthKey) (row int, found bool) {
	for i, r := range values {
		if len(r) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(r[0])) == string(key) {
			return i + 1, true
		}
	}
	return len(values) + 1, false
}

// summaryRow renders totals as plain decimals so USER_ENTERED parses them
// as numbers.
func summaryRow(key core.MonthKey, s core.MonthSummary) []any {
	return []any{
		string(key),
		core.FormatAmount(s.Income),
		core.FormatAmount(s.Expenses),
		core.FormatAmount(s.Paid),
		core.FormatAmount(s.Unpaid),
		core.FormatAmount(s.Balance),
	}
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:F%d", sheet, row, row)
}
