// Package services provides business logic and orchestration services.
//
// This file resolves an expense's due day against a concrete month. Months
// have 28 to 31 days, so a requested day is clamped to the last day of the
// month when it does not exist there.

package services

import (
	"fmt"
	"time"

	"budget/internal/core"
)

// defaultDaysInMonth is used when the target month is unknown.
const defaultDaysInMonth = 31

// DueDate is a requested day of month resolved against a month.
type DueDate struct {
	Day         int    `json:"day"`
	Requested   int    `json:"requested"`
	DaysInMonth int    `json:"daysInMonth"`
	Clamped     bool   `json:"clamped"`
	Label       string `json:"label"`
	Note        string `json:"note,omitempty"`
}

// DaysInMonth returns the number of days in the given month, accounting for
// leap years.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ResolveDueDay resolves a requested day within month ("YYYY-MM").
//
// A nil request means the item has no due date and ok is false. The request
// is first limited to 1-31, then to the length of the month. An unparseable
// month is treated as having 31 days and carries no month specific note.
func ResolveDueDay(month string, requested *int) (due DueDate, ok bool) {
	if requested == nil {
		return DueDate{}, false
	}

	req := *requested
	day := min(max(req, 1), 31)

	year, m, known := core.MonthKey(month).YearMonth()
	days := defaultDaysInMonth
	if known {
		days = DaysInMonth(year, m)
	}
	if day > days {
		day = days
	}

	due = DueDate{
		Day:         day,
		Requested:   req,
		DaysInMonth: days,
		Clamped:     day != req,
	}

	if known {
		due.Label = fmt.Sprintf("%s %d", m.String()[:3], day)
	} else {
		due.Label = fmt.Sprintf("Day %d", day)
	}

	if due.Clamped {
		due.Label += "*"
		if known && req > days {
			due.Note = fmt.Sprintf("requested day %d, month has %d days, using day %d", req, days, day)
		} else {
			due.Note = fmt.Sprintf("requested day %d is out of range, using day %d", req, day)
		}
	}
	return due, true
}
