// Package report shapes mined rules and dataset statistics into display
// tables and downloadable artifacts.
package report

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/ruler/internal/miner"
	"github.com/shopspring/decimal"
)

// RuleColumns are the retained rule fields, in display order.
var RuleColumns = []string{"antecedents", "consequents", "confidence", "support"}

// RuleRow is one display-ready rule.
type RuleRow struct {
	Antecedents []string `json:"antecedents"`
	Consequents []string `json:"consequents"`
	Confidence  float64  `json:"confidence"`
	Support     float64  `json:"support"`
}

// RuleTable is the projected rule set.
type RuleTable struct {
	Rows []RuleRow `json:"rows"`
}

// Len returns the number of rules.
func (t RuleTable) Len() int { return len(t.Rows) }

// FromRules projects raw rules down to the four displayed fields, in input
// order.
func FromRules(rules []miner.Rule) RuleTable {
	rows := make([]RuleRow, len(rules))
	for i, r := range rules {
		rows[i] = RuleRow{
			Antecedents: append([]string(nil), r.Antecedents...),
			Consequents: append([]string(nil), r.Consequents...),
			Confidence:  r.Confidence,
			Support:     r.Support,
		}
	}
	return RuleTable{Rows: rows}
}

// Format returns a copy of t with every item list sorted and deduplicated and
// rows stably sorted by descending confidence. Format(Format(t)) == Format(t).
func Format(t RuleTable) RuleTable {
	rows := make([]RuleRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = RuleRow{
			Antecedents: sortedList(r.Antecedents),
			Consequents: sortedList(r.Consequents),
			Confidence:  r.Confidence,
			Support:     r.Support,
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Confidence > rows[j].Confidence })
	return RuleTable{Rows: rows}
}

// FormatRules is FromRules followed by Format.
func FormatRules(rules []miner.Rule) RuleTable { return Format(FromRules(rules)) }

func sortedList(items []string) []string {
	return []string(miner.NewItemset(items...))
}

// ListString renders an item list as "[A, B]".
func ListString(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

// Number renders a score rounded to four decimals.
func Number(f float64) string {
	return decimal.NewFromFloat(f).Round(4).String()
}

// Records renders the table with a header row for CSV export.
func (t RuleTable) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), RuleColumns...))
	for _, r := range t.Rows {
		out = append(out, []string{
			ListString(r.Antecedents),
			ListString(r.Consequents),
			Number(r.Confidence),
			Number(r.Support),
		})
	}
	return out
}
