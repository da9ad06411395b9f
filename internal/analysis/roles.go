package analysis

import (
	"fmt"
	"strings"
)

// NoDate is the sentinel date selection meaning "no date column".
const NoDate = "None"

// Roles assigns semantic roles to dataset columns.
type Roles struct {
	Item        string `json:"item"`
	Transaction string `json:"transaction"`
	Date        string `json:"date"`
}

// HasDate reports whether a date column is selected.
func (r Roles) HasDate() bool {
	d := strings.TrimSpace(r.Date)
	return d != "" && d != NoDate
}

// Validate checks that item and transaction name existing columns.
func (r Roles) Validate(d *Dataset) error {
	if !d.Has(r.Item) {
		return fmt.Errorf("item column: %w: %q", ErrColumnNotFound, r.Item)
	}
	if !d.Has(r.Transaction) {
		return fmt.Errorf("transaction column: %w: %q", ErrColumnNotFound, r.Transaction)
	}
	return nil
}

// DateOptions lists the date selector choices: NoDate followed by every column.
func DateOptions(d *Dataset) []string {
	return append([]string{NoDate}, d.Header...)
}

// SuggestRoles picks default roles: the first column as transaction, the
// third as item (last column when there are fewer), and the first column
// profiled as datetime as the date.
func SuggestRoles(d *Dataset, p *DatasetProfile) Roles {
	r := Roles{Date: NoDate}
	n := d.NumCols()
	if n == 0 {
		return r
	}
	r.Transaction = d.Header[0]
	if n > 2 {
		r.Item = d.Header[2]
	} else {
		r.Item = d.Header[n-1]
	}
	if p == nil {
		p = Profile(d)
	}
	for _, c := range p.Columns {
		if c.Kind == KindDatetime {
			r.Date = c.Name
			break
		}
	}
	return r
}

// ItemOptions returns the distinct item values in first-seen order, for the
// ignore-list multi-select.
func ItemOptions(d *Dataset, itemCol string) ([]string, error) {
	vals, err := d.Column(itemCol)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(vals))
	var out []string
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// FilterIgnore keeps only ignore entries that are actual item values.
func FilterIgnore(options, ignore []string) []string {
	if len(ignore) == 0 {
		return nil
	}
	valid := make(map[string]struct{}, len(options))
	for _, o := range options {
		valid[o] = struct{}{}
	}
	var out []string
	dup := make(map[string]struct{}, len(ignore))
	for _, v := range ignore {
		v = strings.TrimSpace(v)
		if _, ok := valid[v]; !ok {
			continue
		}
		if _, ok := dup[v]; ok {
			continue
		}
		dup[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
