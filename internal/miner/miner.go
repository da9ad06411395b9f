// Package miner defines the rule-mining collaborator and ships a reference
// Apriori engine.
package miner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/ruler/internal/analysis"
)

// Itemset is a set of item values kept in ascending order.
type Itemset []string

// NewItemset sorts and deduplicates items.
func NewItemset(items ...string) Itemset {
	cp := append([]string(nil), items...)
	sort.Strings(cp)
	out := cp[:0]
	for i, v := range cp {
		if i > 0 && v == cp[i-1] {
			continue
		}
		out = append(out, v)
	}
	return Itemset(out)
}

func (s Itemset) String() string { return "{" + strings.Join(s, ", ") + "}" }

// Rule is an association rule "Antecedents -> Consequents".
type Rule struct {
	Antecedents       Itemset `json:"antecedents"`
	Consequents       Itemset `json:"consequents"`
	AntecedentSupport float64 `json:"antecedent_support"`
	ConsequentSupport float64 `json:"consequent_support"`
	Support           float64 `json:"support"`
	Confidence        float64 `json:"confidence"`
	Lift              float64 `json:"lift"`
}

func (r Rule) String() string {
	return fmt.Sprintf("%s -> %s (support %.4f, confidence %.4f)", r.Antecedents, r.Consequents, r.Support, r.Confidence)
}

// Transaction is the set of items bought together under one transaction id.
type Transaction struct {
	ID    string
	Items []string
}

// Request is one mining call.
type Request struct {
	Transactions  []Transaction
	Ignore        []string
	MinConfidence float64
}

// Miner mines association rules whose confidence is at least
// Request.MinConfidence.
type Miner interface {
	Mine(ctx context.Context, req Request) ([]Rule, error)
}

// FromDataset groups rows into transactions keyed by txCol, in first-seen
// order. Rows with an empty transaction id or item are skipped and repeated
// items inside a transaction collapse.
func FromDataset(d *analysis.Dataset, itemCol, txCol string) ([]Transaction, error) {
	items, err := d.Column(itemCol)
	if err != nil {
		return nil, err
	}
	txs, err := d.Column(txCol)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int)
	var out []Transaction
	seen := make(map[string]map[string]struct{})
	for i := range txs {
		tx, item := txs[i], items[i]
		if tx == "" || item == "" {
			continue
		}
		j, ok := idx[tx]
		if !ok {
			j = len(out)
			idx[tx] = j
			out = append(out, Transaction{ID: tx})
			seen[tx] = make(map[string]struct{})
		}
		if _, dup := seen[tx][item]; dup {
			continue
		}
		seen[tx][item] = struct{}{}
		out[j].Items = append(out[j].Items, item)
	}
	return out, nil
}

// ValidateConfidence checks a threshold lies in [0, 1].
func ValidateConfidence(c float64) error {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("confidence %v out of range [0, 1]", c)
	}
	return nil
}
