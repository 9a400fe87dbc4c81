package ingest

import (
	"strconv"
	"strings"
	"time"
)

// Layouts seen in USAspending extracts. The download portal emits plain
// dates, older snapshots carry a time component.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// parseDate parses an action date, reporting false for anything it cannot
// understand. Callers keep the zero time as the missing-date marker.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount parses a dollar amount, tolerating currency symbols, thousands
// separators and surrounding whitespace. Reports false when the value is
// missing or unparseable; callers substitute zero.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
