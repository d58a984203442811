package aggregate

import (
	"sort"
	"time"

	"github.com/openclaw/quotatop/internal/logscan"
	"github.com/openclaw/quotatop/internal/pricing"
	"github.com/openclaw/quotatop/internal/usage"
)

// dayShift is the offset for the second calendar-date test in onDay. Log
// timestamps are UTC but the intended day boundary is a UTC+8 wall clock; the
// historical behavior keeps a record when it lands on the target day under
// either reading, and collapsing this to a single zone would change which
// records count as "today".
const dayShift = 8 * time.Hour

const dayFormat = "2006-01-02"

// Options controls one aggregation pass.
type Options struct {
	// Day restricts the scan to records on this calendar day. The zero
	// time means no date filter.
	Day time.Time
	// Pricing converts the summed token counts into an estimated cost.
	Pricing pricing.Table
}

// Sum folds every matching record under dir into a single total. It never
// fails: a missing directory, an unreadable file, a malformed line, an
// unparseable timestamp and a record with missing or negative usage each
// contribute nothing, so the totals can never go negative.
func Sum(dir string, opts Options) usage.Totals {
	var t usage.Totals
	for rec := range logscan.Records(dir) {
		if !onDay(rec.Timestamp, opts.Day) {
			continue
		}
		f := rec.Locate()
		if f == nil || !f.Valid() {
			continue
		}
		t.InputTokens += f.Input
		t.OutputTokens += f.Output
		t.TotalTokens += f.Total
		t.MatchedRecords++
	}
	t.Cost = opts.Pricing.Cost(t.InputTokens, t.OutputTokens)
	return t
}

// onDay reports whether a record timestamp falls on the target day. With no
// target every record passes, timestamped or not. Otherwise the timestamp
// must parse, and its UTC calendar date or its dayShift-ed calendar date must
// equal the target.
func onDay(timestamp string, day time.Time) bool {
	if day.IsZero() {
		return true
	}
	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return false
	}
	target := day.Format(dayFormat)
	utc := ts.UTC()
	return utc.Format(dayFormat) == target ||
		utc.Add(dayShift).Format(dayFormat) == target
}

// DayTotals is one calendar day's aggregate in the daily view.
type DayTotals struct {
	Day string
	usage.Totals
}

// ByDay groups records by UTC calendar day, newest first. Records without a
// parseable timestamp or without usage are left out.
func ByDay(dir string, table pricing.Table) []DayTotals {
	grouped := make(map[string]*usage.Totals)

	for rec := range logscan.Records(dir) {
		ts, err := time.Parse(time.RFC3339, rec.Timestamp)
		if err != nil {
			continue
		}
		f := rec.Locate()
		if f == nil || !f.Valid() {
			continue
		}

		key := ts.UTC().Format(dayFormat)
		t, ok := grouped[key]
		if !ok {
			t = &usage.Totals{}
			grouped[key] = t
		}
		t.InputTokens += f.Input
		t.OutputTokens += f.Output
		t.TotalTokens += f.Total
		t.MatchedRecords++
	}

	results := make([]DayTotals, 0, len(grouped))
	for day, t := range grouped {
		t.Cost = table.Cost(t.InputTokens, t.OutputTokens)
		results = append(results, DayTotals{Day: day, Totals: *t})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Day > results[j].Day // Newest first
	})

	return results
}
