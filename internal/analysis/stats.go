package analysis

import (
	"errors"
	"fmt"
	"strconv"
)

// Outcome holds one independently computed statistic: either a value or the
// reason it could not be computed.
type Outcome[T any] struct {
	Value T
	Err   error
}

// OK reports whether the statistic was computed.
func (o Outcome[T]) OK() bool { return o.Err == nil }

func ok[T any](v T) Outcome[T]          { return Outcome[T]{Value: v} }
func failed[T any](err error) Outcome[T] { return Outcome[T]{Err: err} }

// Stats are the descriptive statistics shown beside the role selectors.
type Stats struct {
	UniqueItems        Outcome[int]
	UniqueTransactions Outcome[int]
	AvgItemsPerTx      Outcome[float64]
	DateRange          Outcome[DateRange]
	// DateSelected is false when no date column was chosen or coercion failed.
	DateSelected bool
}

// DateWarning returns the coercion failure, if the selected date column
// could not be read as dates.
func (s Stats) DateWarning() error {
	var dce *DateCoercionError
	if errors.As(s.DateRange.Err, &dce) {
		return dce
	}
	return nil
}

// ComputeStats computes every statistic independently; a bad selection for
// one role never blocks the others. A failed date coercion leaves
// DateSelected false so later stages treat the date as unset.
func ComputeStats(d *Dataset, roles Roles) Stats {
	var s Stats
	items, itemErr := d.Column(roles.Item)
	txs, txErr := d.Column(roles.Transaction)

	if itemErr != nil {
		s.UniqueItems = failed[int](itemErr)
	} else {
		s.UniqueItems = ok(countDistinct(items))
	}

	if txErr != nil {
		s.UniqueTransactions = failed[int](txErr)
	} else {
		s.UniqueTransactions = ok(countDistinct(txs))
	}

	switch {
	case itemErr != nil:
		s.AvgItemsPerTx = failed[float64](itemErr)
	case txErr != nil:
		s.AvgItemsPerTx = failed[float64](txErr)
	default:
		s.AvgItemsPerTx = averagePerTransaction(countNonNull(items), s.UniqueTransactions.Value)
	}

	if roles.HasDate() {
		r, err := d.DateSpan(roles.Date)
		if err != nil {
			s.DateRange = failed[DateRange](err)
		} else {
			s.DateRange = ok(r)
			s.DateSelected = true
		}
	} else {
		s.DateRange = failed[DateRange](errNoDateSelected)
	}
	return s
}

var errNoDateSelected = errors.New("no date column selected")

// IsNoDate reports whether err only means that no date column was chosen.
func IsNoDate(err error) bool { return errors.Is(err, errNoDateSelected) }

func averagePerTransaction(nonNull, uniqueTx int) Outcome[float64] {
	if uniqueTx == 0 {
		return failed[float64](fmt.Errorf("avg items/transaction: %w", ErrEmptyTransactionSet))
	}
	// one decimal, rounding the binary quotient the way printf-style
	// formatting does (5/4 gives 1.2)
	avg := float64(nonNull) / float64(uniqueTx)
	f, _ := strconv.ParseFloat(strconv.FormatFloat(avg, 'f', 1, 64), 64)
	return ok(f)
}

func countDistinct(vals []string) int {
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}

func countNonNull(vals []string) int {
	n := 0
	for _, v := range vals {
		if v != "" {
			n++
		}
	}
	return n
}
