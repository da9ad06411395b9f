package analysis

import (
	"time"
)

// Year-first layouts are unambiguous and shared by every convention.
var isoLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05",
}

// dateConventions lists candidate layouts in order of preference. A column
// is read with a single convention, so month-first and day-first slash
// dates never mix; month-first wins when both fit.
var dateConventions = [][]string{
	append(append([]string(nil), isoLayouts...), "1/2/2006", "1/2/2006 15:04", "1/2/2006 15:04:05"),
	append(append([]string(nil), isoLayouts...), "2/1/2006", "2/1/2006 15:04", "2/1/2006 15:04:05"),
}

func parseWith(layouts []string, s string) (time.Time, bool) {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseTimeMaybe reports whether s parses under any convention.
func parseTimeMaybe(s string) (time.Time, bool) {
	for _, c := range dateConventions {
		if t, ok := parseWith(c, s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceDates parses every non-empty value of col as a timestamp and stores
// the result on the dataset. All values must parse under one convention;
// otherwise the whole column fails.
func (d *Dataset) CoerceDates(col string) error {
	if t, ok := d.coerced(col); ok && t != nil {
		return nil
	}
	vals, err := d.Column(col)
	if err != nil {
		return err
	}
	if countNonNull(vals) == 0 {
		return &DateCoercionError{Column: col}
	}

	failAt := -1
	for _, layouts := range dateConventions {
		parsed, bad := coerceWith(layouts, vals)
		if bad < 0 {
			if d.times == nil {
				d.times = make(map[string][]time.Time)
			}
			d.times[col] = parsed
			return nil
		}
		if bad > failAt {
			failAt = bad
		}
	}
	_, mixed := parseTimeMaybe(vals[failAt])
	return &DateCoercionError{Column: col, Value: vals[failAt], Row: failAt + 1, Mixed: mixed}
}

// coerceWith parses vals with layouts and returns the index of the first
// value that does not parse, or -1.
func coerceWith(layouts, vals []string) ([]time.Time, int) {
	parsed := make([]time.Time, len(vals))
	for i, v := range vals {
		if v == "" {
			continue
		}
		t, ok := parseWith(layouts, v)
		if !ok {
			return nil, i
		}
		parsed[i] = t
	}
	return parsed, -1
}

// DateRange is the chronological span of a coerced date column.
type DateRange struct {
	Min time.Time
	Max time.Time
}

// String renders the range the way the summary export shows it.
func (r DateRange) String() string {
	return formatTime(r.Min) + " to " + formatTime(r.Max)
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// DateSpan coerces col and returns its min and max.
func (d *Dataset) DateSpan(col string) (DateRange, error) {
	if err := d.CoerceDates(col); err != nil {
		return DateRange{}, err
	}
	var r DateRange
	first := true
	times, _ := d.coerced(col)
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		if first || t.Before(r.Min) {
			r.Min = t
		}
		if first || t.After(r.Max) {
			r.Max = t
		}
		first = false
	}
	return r, nil
}
