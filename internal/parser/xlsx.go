package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/ruler/internal/analysis"
	"github.com/xuri/excelize/v2"
)

// xlsxDateLayout is how date-styled cells are rendered into the dataset.
const xlsxDateLayout = "2006-01-02 15:04:05"

type xlsxParser struct{}

func (xlsxParser) Name() string { return "xlsx" }

// Parse reads the first sheet of a workbook; its first row is the header.
// Cells are read unformatted; date-styled serials become timestamps.
func (xlsxParser) Parse(name string, content []byte) (*analysis.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 || !hasName(rows[0]) {
		return nil, ErrMissingHeader
	}

	dc := newDateCells(f, sheet)
	body := make([][]string, 0, len(rows)-1)
	for i, r := range rows[1:] {
		if isBlank(r) {
			continue
		}
		for j, v := range r {
			if t, ok := dc.convert(j+1, i+2, v); ok {
				r[j] = t.Format(xlsxDateLayout)
			}
		}
		body = append(body, r)
	}
	return analysis.NewDataset(name, rows[0], body), nil
}

// dateCells recognizes numeric cells whose number format is a date or time.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	dc := &dateCells{f: f, sheet: sheet, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		dc.date1904 = *props.Date1904
	}
	return dc
}

func (dc *dateCells) convert(col, row int, raw string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return time.Time{}, false
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return time.Time{}, false
	}
	styleID, err := dc.f.GetCellStyle(dc.sheet, cell)
	if err != nil || !dc.isDateStyle(styleID) {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, dc.date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t.Round(time.Second), true
}

func (dc *dateCells) isDateStyle(id int) bool {
	if id == 0 {
		return false
	}
	if v, ok := dc.styles[id]; ok {
		return v
	}
	v := false
	if st, err := dc.f.GetStyle(id); err == nil && st != nil {
		if st.CustomNumFmt != nil {
			v = isDateFormat(*st.CustomNumFmt)
		} else {
			v = isBuiltinDateFormat(st.NumFmt)
		}
	}
	dc.styles[id] = v
	return v
}

// Built-in number formats 14-22 and 45-47 are dates and times; 27-36 and
// 50-58 are their East Asian variants.
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 45 && id <= 47:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom format code renders dates: it uses
// y, d, h or s outside quoted literals and brackets ("[Red]").
func isDateFormat(code string) bool {
	// the first section is the positive-number format
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '\\':
			i++
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		default:
			switch ch {
			case 'y', 'Y', 'd', 'D', 'h', 'H', 's', 'S':
				return true
			}
		}
	}
	return false
}
