package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Column kinds inferred by Profile.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// ColumnSummary captures inferred type and counts per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text|unknown
	NonNull int
	Missing int
	Unique  int
	// Categorical top values
	TopValues []CategoryCount
}

// CategoryCount is one frequent value of a categorical column.
type CategoryCount struct {
	Value string
	Count int
}

// DatasetProfile is the per-column view shown next to the role selectors.
type DatasetProfile struct {
	Name    string
	Rows    int
	Columns []ColumnSummary
}

// Profile infers a kind for every column by its predominant parsed type.
func Profile(d *Dataset) *DatasetProfile {
	p := &DatasetProfile{Name: d.Name, Rows: d.NumRows()}
	for j, name := range d.Header {
		var numCnt, dtCnt, txtCnt int
		s := ColumnSummary{Name: name}
		cats := make(map[string]int)
		for _, r := range d.Rows {
			v := strings.TrimSpace(r[j])
			if v == "" {
				s.Missing++
				continue
			}
			s.NonNull++
			cats[v]++
			if _, ok := parseNumeric(v); ok {
				numCnt++
				continue
			}
			if _, ok := parseTimeMaybe(v); ok {
				dtCnt++
				continue
			}
			txtCnt++
		}
		s.Unique = len(cats)
		switch {
		case numCnt >= dtCnt && numCnt >= txtCnt && numCnt > 0:
			s.Kind = KindNumeric
		case dtCnt >= txtCnt && dtCnt > 0:
			s.Kind = KindDatetime
		case txtCnt > 0 && s.Unique < s.NonNull:
			s.Kind = KindCategorical
		case txtCnt > 0:
			s.Kind = KindText
		default:
			s.Kind = KindUnknown
		}
		if s.Kind == KindCategorical {
			s.TopValues = topValues(cats, 5)
		}
		p.Columns = append(p.Columns, s)
	}
	return p
}

func topValues(cats map[string]int, n int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

// parseNumeric accepts plain, thousands-grouped and percent numbers.
func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	raw = strings.ReplaceAll(raw, "\u00A0", "")
	raw = strings.ReplaceAll(raw, " ", "")
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0 && cpos > dpos:
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	case cpos >= 0 && dpos >= 0:
		raw = strings.ReplaceAll(raw, ",", "")
	case cpos >= 0:
		raw = strings.Replace(raw, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Markdown renders a compact schema listing for the inspect command.
func (p *DatasetProfile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(p.Columns)))
	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Columns {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%, unique %d)", safeName(c.Name), c.Kind, c.NonNull, missPct, c.Unique))
		if len(c.TopValues) > 0 {
			b.WriteString("; top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
