package report

import (
	"strconv"

	"github.com/KaramelBytes/ruler/internal/analysis"
)

// Summary labels, in export order.
const (
	LabelUniqueItems   = "unique items"
	LabelUniqueTx      = "unique transactions"
	LabelAvgItems      = "avg items/transaction"
	LabelDateRange     = "date range"
	LabelItemColumn    = "item column used"
	LabelTxColumn      = "transaction column used"
	LabelConfidence    = "confidence used"
	LabelNumberOfRules = "number of rules"
)

// NotComputable is shown for a statistic that could not be computed.
const NotComputable = "n/a"

// NoDateSelected is shown in place of a date range.
const NoDateSelected = "no date column selected"

// SummaryRow is one Feature/Info pair.
type SummaryRow struct {
	Feature string `json:"feature"`
	Info    string `json:"info"`
}

// SummaryInput collects what the summary reports on.
type SummaryInput struct {
	Stats      analysis.Stats
	Roles      analysis.Roles
	Confidence float64
	RuleCount  int
}

// BuildSummary renders the fixed summary rows. Statistics that failed show
// NotComputable; they never remove a row.
func BuildSummary(in SummaryInput) []SummaryRow {
	dateRange := NoDateSelected
	if in.Stats.DateSelected && in.Stats.DateRange.OK() {
		dateRange = in.Stats.DateRange.Value.String()
	}
	return []SummaryRow{
		{LabelUniqueItems, intOutcome(in.Stats.UniqueItems)},
		{LabelUniqueTx, intOutcome(in.Stats.UniqueTransactions)},
		{LabelAvgItems, avgOutcome(in.Stats.AvgItemsPerTx)},
		{LabelDateRange, dateRange},
		{LabelItemColumn, in.Roles.Item},
		{LabelTxColumn, in.Roles.Transaction},
		{LabelConfidence, strconv.FormatFloat(in.Confidence, 'f', -1, 64)},
		{LabelNumberOfRules, strconv.Itoa(in.RuleCount)},
	}
}

func intOutcome(o analysis.Outcome[int]) string {
	if !o.OK() {
		return NotComputable
	}
	return strconv.Itoa(o.Value)
}

func avgOutcome(o analysis.Outcome[float64]) string {
	if !o.OK() {
		return NotComputable
	}
	return strconv.FormatFloat(o.Value, 'f', 1, 64)
}

// SummaryRecords renders summary rows with a header for CSV export.
func SummaryRecords(rows []SummaryRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, []string{"Feature", "Info"})
	for _, r := range rows {
		out = append(out, []string{r.Feature, r.Info})
	}
	return out
}
