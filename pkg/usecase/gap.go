package usecase

import (
	"sort"
	"time"

	"github.com/secmon-lab/taskmirror/pkg/domain/model"
)

// FindGaps computes the sub-intervals of desired not covered by any synced
// range. Results are split on calendar-month boundaries so that each gap
// maps to one efficient upstream query. The function is pure and performs
// no I/O.
func FindGaps(desired model.DateRange, synced []model.DateRange) []model.DateRange {
	if desired.Start.After(desired.End) {
		return nil
	}

	merged := mergeRanges(synced)

	var gaps []model.DateRange
	cursor := desired.Start

	for _, rng := range merged {
		if rng.Start.After(cursor) {
			gapEnd := rng.Start.AddDate(0, 0, -1)
			if gapEnd.After(desired.End) {
				gapEnd = desired.End
			}
			if !gapEnd.Before(cursor) {
				gaps = append(gaps, model.DateRange{Start: cursor, End: gapEnd})
			}
		}
		next := rng.End.AddDate(0, 0, 1)
		if next.After(cursor) {
			cursor = next
		}
	}

	if !cursor.After(desired.End) {
		gaps = append(gaps, model.DateRange{Start: cursor, End: desired.End})
	}

	var aligned []model.DateRange
	for _, gap := range gaps {
		aligned = append(aligned, splitIntoMonths(gap)...)
	}
	return aligned
}

// mergeRanges sorts and merges overlapping or adjacent ranges (a gap of one
// day counts as adjacent) into a minimal covering set
func mergeRanges(ranges []model.DateRange) []model.DateRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]model.DateRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []model.DateRange{sorted[0]}
	for _, rng := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !rng.Start.After(last.End.AddDate(0, 0, 1)) {
			if rng.End.After(last.End) {
				last.End = rng.End
			}
		} else {
			merged = append(merged, rng)
		}
	}
	return merged
}

// splitIntoMonths breaks a range into month-aligned batches, with the first
// and last batches clipped to the range's actual bounds
func splitIntoMonths(rng model.DateRange) []model.DateRange {
	var batches []model.DateRange
	cursor := rng.Start

	for !cursor.After(rng.End) {
		monthEnd := lastDayOfMonth(cursor)
		batchEnd := monthEnd
		if batchEnd.After(rng.End) {
			batchEnd = rng.End
		}
		batches = append(batches, model.DateRange{Start: cursor, End: batchEnd})
		cursor = batchEnd.AddDate(0, 0, 1)
	}
	return batches
}

func lastDayOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}
