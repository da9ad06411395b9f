package parser_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/ruler/internal/analysis"
	"github.com/KaramelBytes/ruler/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func xlsxBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseCSV(t *testing.T) {
	content := "InvoiceNo,StockCode,Description\n" +
		"536365,85123A,WHITE HANGING HEART\n" +
		"536365,71053,WHITE METAL LANTERN\n" +
		"\n" +
		"536366,22633,\"HAND WARMER, UNION JACK\"\n"
	ds, err := parser.Parse("orders.csv", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, "orders.csv", ds.Name)
	assert.Equal(t, []string{"InvoiceNo", "StockCode", "Description"}, ds.Header)
	require.Equal(t, 3, ds.NumRows())
	assert.Equal(t, "HAND WARMER, UNION JACK", ds.Rows[2][2])
	assert.NotEmpty(t, ds.Identity)
}

func TestParseCSV_SemicolonAndBOM(t *testing.T) {
	content := "\xEF\xBB\xBFtx;item\n1;a\n1;b\n2;a,b\n"
	ds, err := parser.Parse("semi.csv", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, []string{"tx", "item"}, ds.Header)
	assert.Equal(t, "a,b", ds.Rows[2][1])
}

func TestParseCSV_TabAndRaggedRows(t *testing.T) {
	content := "tx\titem\tqty\n1\ta\n2\tb\t3\n"
	ds, err := parser.Parse("tabs.tsv", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "a", ""}, ds.Rows[0])
}

func TestParse_IdentityDependsOnContent(t *testing.T) {
	a, err := parser.Parse("x.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	b, err := parser.Parse("x.csv", []byte("a,b\n1,3\n"))
	require.NoError(t, err)
	c, err := parser.Parse("x.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Identity, b.Identity)
	assert.Equal(t, a.Identity, c.Identity)
}

func TestParseXLSX(t *testing.T) {
	content := xlsxBytes(t, [][]any{
		{"InvoiceNo", "Description", "InvoiceDate"},
		{"T1", "A", "2021-01-01"},
		{"T1", "B", "2021-01-01"},
		{"T2", "A", "2021-02-01"},
	})
	ds, err := parser.Parse("orders.xlsx", content)
	require.NoError(t, err)
	assert.Equal(t, []string{"InvoiceNo", "Description", "InvoiceDate"}, ds.Header)
	require.Equal(t, 3, ds.NumRows())
	assert.Equal(t, []string{"T2", "A", "2021-02-01"}, ds.Rows[2])
}

func TestParseXLSX_DateCells(t *testing.T) {
	content := xlsxBytes(t, [][]any{
		{"InvoiceNo", "Description", "InvoiceDate", "UnitPrice"},
		{"T1", "A", time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), 2.55},
		{"T1", "B", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 3},
		{"T2", "A", time.Date(2021, 6, 15, 9, 30, 0, 0, time.UTC), 1.25},
	})
	ds, err := parser.Parse("orders.xlsx", content)
	require.NoError(t, err)
	assert.Equal(t, "2021-12-31 00:00:00", ds.Rows[0][2])
	assert.Equal(t, "2021-06-15 09:30:00", ds.Rows[2][2])
	assert.Equal(t, "2.55", ds.Rows[0][3], "plain numbers stay numbers")
	assert.Equal(t, "3", ds.Rows[1][3])

	s := analysis.ComputeStats(ds, analysis.Roles{Item: "Description", Transaction: "InvoiceNo", Date: "InvoiceDate"})
	require.True(t, s.DateRange.OK(), "%v", s.DateRange.Err)
	assert.True(t, s.DateSelected)
	assert.Equal(t, "2021-01-01 to 2021-12-31", s.DateRange.Value.String())

	prof := analysis.Profile(ds)
	assert.Equal(t, analysis.KindDatetime, prof.Columns[2].Kind)
}

func TestParse_NonTabularIsLoadError(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}
	_, err := parser.Parse("picture.png", png)
	var le *parser.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "picture.png", le.Source)
	assert.ErrorIs(t, err, parser.ErrNotText)
	assert.Contains(t, err.Error(), "xlsx")
}

func TestParse_EmptyAndHeaderless(t *testing.T) {
	_, err := parser.Parse("empty.csv", nil)
	assert.ErrorIs(t, err, parser.ErrEmptyFile)

	_, err = parser.Parse("blank.csv", []byte(" \n\n"))
	var le *parser.LoadError
	assert.ErrorAs(t, err, &le)

	_, err = parser.Parse("commas.csv", []byte(",,\n1,2,3\n"))
	assert.ErrorIs(t, err, parser.ErrMissingHeader)
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "sample.csv", "tx,item\n1,a\n")

	t.Run("upload wins", func(t *testing.T) {
		got, err := parser.LoadOrDefault("mine.csv", []byte("t,i\n9,z\n"), def)
		require.NoError(t, err)
		assert.False(t, got.FromDefault)
		assert.NoError(t, got.Warning)
		assert.Equal(t, "mine.csv", got.Dataset.Name)
	})

	t.Run("no upload uses default", func(t *testing.T) {
		got, err := parser.LoadOrDefault("", nil, def)
		require.NoError(t, err)
		assert.True(t, got.FromDefault)
		assert.NoError(t, got.Warning)
		assert.Equal(t, "sample.csv", got.Dataset.Name)
	})

	t.Run("bad upload falls back with warning", func(t *testing.T) {
		got, err := parser.LoadOrDefault("bin.dat", []byte{0, 1, 2, 3}, def)
		require.NoError(t, err)
		assert.True(t, got.FromDefault)
		var le *parser.LoadError
		require.ErrorAs(t, got.Warning, &le)
		assert.Equal(t, "bin.dat", le.Source)
	})

	t.Run("both fail", func(t *testing.T) {
		_, err := parser.LoadOrDefault("bin.dat", []byte{0, 1, 2}, filepath.Join(dir, "missing.csv"))
		require.Error(t, err)
		var le *parser.LoadError
		assert.ErrorAs(t, err, &le)
		assert.Contains(t, err.Error(), "upload failed")
		assert.Contains(t, err.Error(), "default dataset failed")
	})
}
