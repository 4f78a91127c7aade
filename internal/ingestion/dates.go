package ingestion

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the operator-facing calendar date format (DD-MM-YYYY), kept
// from the exchange tooling this pipeline feeds.
const DateLayout = "02-01-2006"

// DateKey normalizes any timestamp to its calendar date: UTC midnight. Every
// ledger row and daily record is keyed by this form.
func DateKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a DD-MM-YYYY string into a DateKey. The literal "today"
// (case-insensitive) resolves to the current date.
func ParseDate(s string) (time.Time, error) {
	if strings.EqualFold(strings.TrimSpace(s), "today") {
		return DateKey(time.Now()), nil
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want DD-MM-YYYY): %w", s, err)
	}
	return DateKey(t), nil
}

// DateRange returns every calendar date from from to to inclusive, ascending.
// from after to is an error.
func DateRange(from, to time.Time) ([]time.Time, error) {
	from, to = DateKey(from), DateKey(to)
	if from.After(to) {
		return nil, fmt.Errorf("start date %s is after end date %s",
			from.Format(DateLayout), to.Format(DateLayout))
	}
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out, nil
}
