package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Dataset is an in-memory table: a header row and string records.
// It is read-only after load except for date coercion, which records parsed
// timestamps next to the raw values.
type Dataset struct {
	Name   string
	Header []string
	Rows   [][]string
	// Identity is a content hash of the bytes the dataset was parsed from.
	Identity string

	index map[string]int
	times map[string][]time.Time
}

// NewDataset builds a dataset and normalizes ragged rows to header width.
func NewDataset(name string, header []string, rows [][]string) *Dataset {
	h := make([]string, len(header))
	for i, c := range header {
		h[i] = strings.TrimSpace(c)
	}
	ncol := len(h)
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := make([]string, ncol)
		copy(row, r)
		out = append(out, row)
	}
	ds := &Dataset{Name: name, Header: h, Rows: out}
	ds.reindex()
	return ds
}

// IdentityOf returns the hex sha256 of data; used as the dataset cache key.
func IdentityOf(parts ...[]byte) string {
	sum := sha256.New()
	for _, p := range parts {
		sum.Write(p)
		sum.Write([]byte{0})
	}
	return hex.EncodeToString(sum.Sum(nil))
}

func (d *Dataset) reindex() {
	d.index = make(map[string]int, len(d.Header))
	for i, h := range d.Header {
		if _, dup := d.index[h]; !dup {
			d.index[h] = i
		}
	}
}

// NumRows returns the number of data rows (header excluded).
func (d *Dataset) NumRows() int { return len(d.Rows) }

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int { return len(d.Header) }

// Has reports whether the dataset has a column with the given name.
func (d *Dataset) Has(col string) bool {
	_, ok := d.index[col]
	return ok
}

// Column returns the raw values of a column.
func (d *Dataset) Column(col string) ([]string, error) {
	idx, ok := d.index[col]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, col)
	}
	vals := make([]string, len(d.Rows))
	for i, r := range d.Rows {
		vals[i] = strings.TrimSpace(r[idx])
	}
	return vals, nil
}

// coerced returns the timestamps stored by CoerceDates. Empty cells map to
// the zero time.
func (d *Dataset) coerced(col string) ([]time.Time, bool) {
	t, ok := d.times[col]
	return t, ok
}

// Records returns header plus rows, suitable for CSV serialization.
func (d *Dataset) Records() [][]string {
	out := make([][]string, 0, len(d.Rows)+1)
	out = append(out, append([]string(nil), d.Header...))
	for _, r := range d.Rows {
		out = append(out, append([]string(nil), r...))
	}
	return out
}
