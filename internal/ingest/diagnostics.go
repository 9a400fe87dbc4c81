package ingest

import (
	"context"
	"log/slog"
)

// Diagnostics counts every silent recovery performed during a load, so data
// quality regressions show up in logs and on the pipeline_runs record
// instead of disappearing into defaults.
type Diagnostics struct {
	RowsRead       int
	RowsDropped    int // empty award id after all fallbacks
	MalformedRows  int // unreadable CSV records, skipped
	CoercedDates   int // unparseable action_date -> missing marker
	CoercedAmounts int // unparseable obligation -> 0.0
	CoercedOutlays int // unparseable outlay -> 0.0
}

// Coercions is the total number of value-level recoveries.
func (d Diagnostics) Coercions() int {
	return d.CoercedDates + d.CoercedAmounts + d.CoercedOutlays
}

// Log writes the counters at INFO, or WARN when anything was recovered.
func (d Diagnostics) Log(ctx context.Context) {
	args := []any{
		"rows_read", d.RowsRead,
		"rows_dropped", d.RowsDropped,
		"malformed_rows", d.MalformedRows,
		"coerced_dates", d.CoercedDates,
		"coerced_amounts", d.CoercedAmounts,
		"coerced_outlays", d.CoercedOutlays,
	}
	if d.RowsDropped > 0 || d.MalformedRows > 0 || d.Coercions() > 0 {
		slog.WarnContext(ctx, "Extract loaded with recoveries", args...)
		return
	}
	slog.InfoContext(ctx, "Extract loaded clean", args...)
}
