package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/KaramelBytes/ruler/internal/analysis"
	"github.com/xuri/excelize/v2"
)

// Artifact names.
const (
	RulesCSV   = "rules.csv"
	SummaryCSV = "summary.csv"
	InputCSV   = "rules_report.csv"
	ReportXLSX = "ruler_report.xlsx"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Artifact is one downloadable file.
type Artifact struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Bundle holds the artifacts produced by one render; each name appears once.
type Bundle struct {
	items []Artifact
}

// Artifacts returns the artifacts in creation order.
func (b *Bundle) Artifacts() []Artifact {
	if b == nil {
		return nil
	}
	return append([]Artifact(nil), b.items...)
}

// Get returns the artifact with the given name.
func (b *Bundle) Get(name string) (Artifact, bool) {
	if b == nil {
		return Artifact{}, false
	}
	for _, a := range b.items {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

func (b *Bundle) add(a Artifact) error {
	if _, dup := b.Get(a.Name); dup {
		return fmt.Errorf("artifact %q already exists", a.Name)
	}
	b.items = append(b.items, a)
	return nil
}

// CSV serializes records (header first) without an index column.
func CSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildBundle serializes the rules table, the summary and the raw input into
// independent CSV artifacts plus a combined workbook.
func BuildBundle(rules RuleTable, summary []SummaryRow, input *analysis.Dataset) (*Bundle, error) {
	b := &Bundle{}
	sources := []struct {
		name, title, desc string
		records           [][]string
	}{
		{RulesCSV, "Download rules", "The generated rules you see below", rules.Records()},
		{SummaryCSV, "Download summary", "Stats of input data, rules and settings used", SummaryRecords(summary)},
		{InputCSV, "Download input data", "Input data", input.Records()},
	}
	for _, s := range sources {
		data, err := CSV(s.records)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		if err := b.add(Artifact{Name: s.name, Title: s.title, Description: s.desc, ContentType: contentTypeCSV, Data: data}); err != nil {
			return nil, err
		}
	}
	wb, err := Workbook(rules, summary, input)
	if err != nil {
		return nil, err
	}
	if err := b.add(Artifact{Name: ReportXLSX, Title: "Download report", Description: "Input data, summary and rules as one workbook", ContentType: contentTypeXLSX, Data: wb}); err != nil {
		return nil, err
	}
	return b, nil
}

// Workbook writes input data, summary and rules to sheets of one .xlsx file.
func Workbook(rules RuleTable, summary []SummaryRow, input *analysis.Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "input_data"); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	sheets := []struct {
		name    string
		records [][]string
	}{
		{"input_data", input.Records()},
		{"summary_of_stats", SummaryRecords(summary)},
		{"rules", rules.Records()},
	}
	for _, s := range sheets {
		if s.name != "input_data" {
			if _, err := f.NewSheet(s.name); err != nil {
				return nil, fmt.Errorf("new sheet %s: %w", s.name, err)
			}
		}
		for i, rec := range s.records {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return nil, err
			}
			row := make([]any, len(rec))
			for j, v := range rec {
				row[j] = v
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return nil, fmt.Errorf("write %s row %d: %w", s.name, i+1, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
