package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileKinds(t *testing.T) {
	ds := sampleDataset()
	p := Profile(ds)
	require.Len(t, p.Columns, 5)

	kinds := map[string]string{}
	for _, c := range p.Columns {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, KindCategorical, kinds["invoice"])
	assert.Equal(t, KindNumeric, kinds["sku"])
	assert.Equal(t, KindCategorical, kinds["item"])
	assert.Equal(t, KindDatetime, kinds["date"])

	item := p.Columns[2]
	assert.Equal(t, 6, item.NonNull)
	assert.Equal(t, 1, item.Missing)
	assert.Equal(t, 3, item.Unique)
	require.NotEmpty(t, item.TopValues)
	assert.Equal(t, CategoryCount{Value: "A", Count: 3}, item.TopValues[0])
}

func TestProfileMarkdown(t *testing.T) {
	md := Profile(sampleDataset()).Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: orders.csv",
		"Rows: 7",
		"Columns: 5",
		"- date: datetime (non-null 7, missing 0.0%, unique 5)",
		"- item: categorical",
	} {
		assert.True(t, strings.Contains(md, want), "missing %q in:\n%s", want, md)
	}
}

func TestParseNumeric(t *testing.T) {
	cases := map[string]float64{
		"12":       12,
		"12.5%":    12.5,
		"1.000,5":  1000.5,
		"1,000.5":  1000.5,
		"0,25":     0.25,
		"1 200":    1200,
		"-3.5e2":   -350,
	}
	for in, want := range cases {
		got, ok := parseNumeric(in)
		require.True(t, ok, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}
	_, ok := parseNumeric("WHITE HANGING HEART")
	assert.False(t, ok)
}

func TestSuggestRoles(t *testing.T) {
	ds := sampleDataset()
	r := SuggestRoles(ds, nil)
	assert.Equal(t, Roles{Item: "item", Transaction: "invoice", Date: "date"}, r)

	narrow := NewDataset("n", []string{"tx", "thing"}, [][]string{{"1", "x"}})
	r = SuggestRoles(narrow, Profile(narrow))
	assert.Equal(t, Roles{Item: "thing", Transaction: "tx", Date: NoDate}, r)

	assert.Equal(t, Roles{Date: NoDate}, SuggestRoles(NewDataset("e", nil, nil), nil))
}

func TestRolesValidate(t *testing.T) {
	ds := sampleDataset()
	assert.NoError(t, Roles{Item: "item", Transaction: "item"}.Validate(ds))
	assert.ErrorIs(t, Roles{Item: "x", Transaction: "invoice"}.Validate(ds), ErrColumnNotFound)
	assert.ErrorIs(t, Roles{Item: "item", Transaction: "x"}.Validate(ds), ErrColumnNotFound)
}

func TestItemOptionsAndFilterIgnore(t *testing.T) {
	ds := sampleDataset()
	opts, err := ItemOptions(ds, "item")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, opts)

	assert.Nil(t, FilterIgnore(opts, nil))
	assert.Equal(t, []string{"C", "A"}, FilterIgnore(opts, []string{"C", "zzz", "A", "C"}))

	_, err = ItemOptions(ds, "missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestDateOptions(t *testing.T) {
	ds := NewDataset("n", []string{"a", "b"}, nil)
	assert.Equal(t, []string{NoDate, "a", "b"}, DateOptions(ds))
}

func TestNewDatasetPadsRaggedRows(t *testing.T) {
	ds := NewDataset("r", []string{" a ", "b", "c"}, [][]string{{"1"}, {"1", "2", "3"}})
	assert.Equal(t, []string{"a", "b", "c"}, ds.Header)
	assert.Equal(t, []string{"1", "", ""}, ds.Rows[0])
	assert.True(t, ds.Has("a"))
	assert.Equal(t, 2, ds.NumRows())
	assert.Equal(t, 3, ds.NumCols())
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"1", "", ""}, {"1", "2", "3"}}, ds.Records())
}

func TestIdentityOf(t *testing.T) {
	a := IdentityOf([]byte("x"), []byte("y"))
	b := IdentityOf([]byte("xy"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, IdentityOf([]byte("x"), []byte("y")))
	assert.Len(t, a, 64)
}
