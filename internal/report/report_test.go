package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/KaramelBytes/ruler/internal/analysis"
	"github.com/KaramelBytes/ruler/internal/miner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func rawRules() []miner.Rule {
	return []miner.Rule{
		{Antecedents: miner.Itemset{"b", "a"}, Consequents: miner.Itemset{"c"}, Confidence: 0.5, Support: 0.2, Lift: 1.1},
		{Antecedents: miner.Itemset{"x"}, Consequents: miner.Itemset{"z", "y", "y"}, Confidence: 0.9, Support: 0.1, Lift: 2},
		{Antecedents: miner.Itemset{"m"}, Consequents: miner.Itemset{"n"}, Confidence: 0.5, Support: 0.3, Lift: 1},
	}
}

func TestFormatSortsStablyByConfidence(t *testing.T) {
	got := FormatRules(rawRules())
	require.Equal(t, 3, got.Len())
	assert.Equal(t, []string{"x"}, got.Rows[0].Antecedents)
	assert.Equal(t, []string{"y", "z"}, got.Rows[0].Consequents)
	// ties keep input order
	assert.Equal(t, []string{"a", "b"}, got.Rows[1].Antecedents)
	assert.Equal(t, []string{"m"}, got.Rows[2].Antecedents)
}

func TestFormatIsIdempotentAndPure(t *testing.T) {
	in := FromRules(rawRules())
	before := FromRules(rawRules())
	once := Format(in)
	twice := Format(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, before, in, "input must not be mutated")
}

func TestFormatEmpty(t *testing.T) {
	got := FormatRules(nil)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, [][]string{RuleColumns}, got.Records())
}

func TestRecordsRenderListsAndScores(t *testing.T) {
	rec := FormatRules(rawRules()).Records()
	assert.Equal(t, []string{"antecedents", "consequents", "confidence", "support"}, rec[0])
	assert.Equal(t, []string{"[x]", "[y, z]", "0.9", "0.1"}, rec[1])
	assert.Equal(t, "0.6667", Number(2.0/3.0))
}

func sampleStats() analysis.Stats {
	return analysis.Stats{
		UniqueItems:        analysis.Outcome[int]{Value: 4},
		UniqueTransactions: analysis.Outcome[int]{Value: 3},
		AvgItemsPerTx:      analysis.Outcome[float64]{Value: 1.7},
		DateRange: analysis.Outcome[analysis.DateRange]{Value: analysis.DateRange{
			Min: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Max: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}},
		DateSelected: true,
	}
}

func TestBuildSummary(t *testing.T) {
	rows := BuildSummary(SummaryInput{
		Stats:      sampleStats(),
		Roles:      analysis.Roles{Item: "item", Transaction: "invoice", Date: "date"},
		Confidence: 0.85,
		RuleCount:  7,
	})
	want := []SummaryRow{
		{LabelUniqueItems, "4"},
		{LabelUniqueTx, "3"},
		{LabelAvgItems, "1.7"},
		{LabelDateRange, "2024-01-02 to 2024-03-01"},
		{LabelItemColumn, "item"},
		{LabelTxColumn, "invoice"},
		{LabelConfidence, "0.85"},
		{LabelNumberOfRules, "7"},
	}
	assert.Equal(t, want, rows)
}

func TestBuildSummary_FailedStatistics(t *testing.T) {
	boom := errors.New("boom")
	rows := BuildSummary(SummaryInput{
		Stats: analysis.Stats{
			UniqueItems:        analysis.Outcome[int]{Err: boom},
			UniqueTransactions: analysis.Outcome[int]{Value: 2},
			AvgItemsPerTx:      analysis.Outcome[float64]{Err: boom},
			DateRange:          analysis.Outcome[analysis.DateRange]{Err: boom},
		},
		Roles:      analysis.Roles{Item: "sku", Transaction: "invoice", Date: analysis.NoDate},
		Confidence: 1,
	})
	require.Len(t, rows, 8)
	assert.Equal(t, NotComputable, rows[0].Info)
	assert.Equal(t, "2", rows[1].Info)
	assert.Equal(t, NotComputable, rows[2].Info)
	assert.Equal(t, NoDateSelected, rows[3].Info)
	assert.Equal(t, "1", rows[6].Info)
	assert.Equal(t, "0", rows[7].Info)
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rec, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rec
}

func TestBuildBundle(t *testing.T) {
	ds := analysis.NewDataset("in.csv", []string{"invoice", "item"}, [][]string{{"T1", "a"}, {"T1", "b, c"}})
	table := FormatRules(rawRules())
	summary := BuildSummary(SummaryInput{Stats: sampleStats(), Roles: analysis.Roles{Item: "item", Transaction: "invoice"}, Confidence: 0.5, RuleCount: table.Len()})

	b, err := BuildBundle(table, summary, ds)
	require.NoError(t, err)

	var names []string
	for _, a := range b.Artifacts() {
		names = append(names, a.Name)
		assert.NotEmpty(t, a.Data)
	}
	assert.Equal(t, []string{RulesCSV, SummaryCSV, InputCSV, ReportXLSX}, names)

	rules, ok := b.Get(RulesCSV)
	require.True(t, ok)
	assert.Equal(t, table.Records(), readCSV(t, rules.Data))

	sum, _ := b.Get(SummaryCSV)
	got := readCSV(t, sum.Data)
	assert.Equal(t, []string{"Feature", "Info"}, got[0])
	assert.Len(t, got, 9)

	input, _ := b.Get(InputCSV)
	assert.Equal(t, ds.Records(), readCSV(t, input.Data))

	_, ok = b.Get("missing.csv")
	assert.False(t, ok)
}

func TestBuildBundle_Deterministic(t *testing.T) {
	ds := analysis.NewDataset("in.csv", []string{"invoice", "item"}, [][]string{{"T1", "a"}})
	table := FormatRules(rawRules())
	a, err := BuildBundle(table, nil, ds)
	require.NoError(t, err)
	b, err := BuildBundle(table, nil, ds)
	require.NoError(t, err)
	for _, name := range []string{RulesCSV, SummaryCSV, InputCSV} {
		x, _ := a.Get(name)
		y, _ := b.Get(name)
		assert.Equal(t, x.Data, y.Data, name)
	}
}

func TestWorkbookSheets(t *testing.T) {
	ds := analysis.NewDataset("in.csv", []string{"invoice", "item"}, [][]string{{"T1", "a"}})
	data, err := Workbook(FormatRules(rawRules()), BuildSummary(SummaryInput{Stats: sampleStats()}), ds)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"input_data", "summary_of_stats", "rules"}, f.GetSheetList())

	rows, err := f.GetRows("rules")
	require.NoError(t, err)
	assert.Equal(t, RuleColumns, rows[0])
	assert.Equal(t, "[x]", rows[1][0])

	in, err := f.GetRows("input_data")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"invoice", "item"}, {"T1", "a"}}, in)
}
