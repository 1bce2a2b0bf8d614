package model

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// DateRange is an inclusive [Start, End] interval at calendar-day
// granularity. Values are normalized to midnight UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a day-normalized date range
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: DayOf(start), End: DayOf(end)}
}

// DayOf truncates a timestamp to its calendar day in UTC
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate checks the start does not come after the end
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return goerr.New("date range start is after end",
			goerr.V("start", r.Start), goerr.V("end", r.End))
	}
	return nil
}

// Contains reports whether the given day falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	d := DayOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// String renders the range as "YYYY-MM-DD..YYYY-MM-DD"
func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// SyncedRange records a historical window already backfilled for an entity
type SyncedRange struct {
	EntityKey types.EntityKey
	Start     time.Time
	End       time.Time
	SyncedAt  time.Time
}
