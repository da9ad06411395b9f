package miner

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultMinSupport is the itemset support floor used when none is set.
const DefaultMinSupport = 0.05

const eps = 1e-12

// Apriori mines frequent itemsets level by level and derives rules from them.
type Apriori struct {
	// MinSupport is the minimum fraction of transactions an itemset must
	// appear in. Zero means DefaultMinSupport.
	MinSupport float64
	// MaxLen caps itemset size; zero means unlimited.
	MaxLen int
	// Progress, when set, is called after each level with the itemset size
	// and the number of frequent itemsets found at that size.
	Progress func(level, frequent int)
}

type itemset struct {
	ids   []int
	count int
}

func key(ids []int) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}

// Mine implements Miner. Ignored items are removed from every transaction
// while the transaction count stays the same, so supports of the remaining
// itemsets do not change.
func (a Apriori) Mine(ctx context.Context, req Request) ([]Rule, error) {
	if err := ValidateConfidence(req.MinConfidence); err != nil {
		return nil, err
	}
	minSupport := a.MinSupport
	if minSupport <= 0 {
		minSupport = DefaultMinSupport
	}
	if minSupport > 1 {
		return nil, fmt.Errorf("min support %v out of range (0, 1]", minSupport)
	}
	n := len(req.Transactions)
	if n == 0 {
		return nil, nil
	}

	names, baskets := encode(req.Transactions, req.Ignore)
	frequent := func(count int) bool {
		return float64(count)/float64(n) >= minSupport-eps
	}

	counts := make(map[string]int)
	var levels [][]itemset

	// level 1
	single := make([]int, len(names))
	for _, b := range baskets {
		for _, id := range b {
			single[id]++
		}
	}
	var l1 []itemset
	for id, c := range single {
		if frequent(c) {
			s := itemset{ids: []int{id}, count: c}
			l1 = append(l1, s)
			counts[key(s.ids)] = c
		}
	}
	if a.Progress != nil {
		a.Progress(1, len(l1))
	}
	levels = append(levels, l1)

	for k := 2; len(levels[len(levels)-1]) > 1; k++ {
		if a.MaxLen > 0 && k > a.MaxLen {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cands := candidates(levels[len(levels)-1], counts)
		if len(cands) == 0 {
			break
		}
		tally := make([]int, len(cands))
		for _, b := range baskets {
			if len(b) < k {
				continue
			}
			in := make(map[int]struct{}, len(b))
			for _, id := range b {
				in[id] = struct{}{}
			}
			for ci, c := range cands {
				if containsAll(in, c) {
					tally[ci]++
				}
			}
		}
		var next []itemset
		for ci, c := range cands {
			if frequent(tally[ci]) {
				s := itemset{ids: c, count: tally[ci]}
				next = append(next, s)
				counts[key(c)] = tally[ci]
			}
		}
		if a.Progress != nil {
			a.Progress(k, len(next))
		}
		if len(next) == 0 {
			break
		}
		levels = append(levels, next)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rules []Rule
	for _, lvl := range levels[1:] {
		for _, s := range lvl {
			rules = append(rules, deriveRules(s, counts, names, n, req.MinConfidence)...)
		}
	}
	return rules, nil
}

// encode maps item names to ids in ascending name order, so sorted ids are
// also sorted names, and turns transactions into sorted id baskets.
func encode(txs []Transaction, ignore []string) ([]string, [][]int) {
	skip := make(map[string]struct{}, len(ignore))
	for _, v := range ignore {
		skip[v] = struct{}{}
	}
	uniq := make(map[string]struct{})
	for _, t := range txs {
		for _, it := range t.Items {
			if _, ok := skip[it]; ok {
				continue
			}
			uniq[it] = struct{}{}
		}
	}
	names := make([]string, 0, len(uniq))
	for k := range uniq {
		names = append(names, k)
	}
	sort.Strings(names)
	ids := make(map[string]int, len(names))
	for i, nm := range names {
		ids[nm] = i
	}
	baskets := make([][]int, len(txs))
	for i, t := range txs {
		seen := make(map[int]struct{}, len(t.Items))
		var b []int
		for _, it := range t.Items {
			id, ok := ids[it]
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			b = append(b, id)
		}
		sort.Ints(b)
		baskets[i] = b
	}
	return names, baskets
}

// candidates joins frequent (k-1)-itemsets sharing a (k-2)-prefix and prunes
// those with an infrequent (k-1)-subset.
func candidates(prev []itemset, counts map[string]int) [][]int {
	var out [][]int
	for i := 0; i < len(prev); i++ {
		for j := i + 1; j < len(prev); j++ {
			a, b := prev[i].ids, prev[j].ids
			if !samePrefix(a, b) {
				continue
			}
			c := make([]int, len(a)+1)
			copy(c, a)
			last, other := a[len(a)-1], b[len(b)-1]
			if last < other {
				c[len(a)] = other
			} else {
				c[len(a)-1], c[len(a)] = other, last
			}
			if allSubsetsFrequent(c, counts) {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessIDs(out[i], out[j]) })
	return out
}

func samePrefix(a, b []int) bool {
	for i := 0; i < len(a)-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allSubsetsFrequent(c []int, counts map[string]int) bool {
	sub := make([]int, 0, len(c)-1)
	for skip := range c {
		sub = sub[:0]
		for i, id := range c {
			if i != skip {
				sub = append(sub, id)
			}
		}
		if _, ok := counts[key(sub)]; !ok {
			return false
		}
	}
	return true
}

func lessIDs(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func containsAll(in map[int]struct{}, ids []int) bool {
	for _, id := range ids {
		if _, ok := in[id]; !ok {
			return false
		}
	}
	return true
}

// deriveRules emits every rule A -> S\A for non-empty proper subsets A of s
// that reaches minConf.
func deriveRules(s itemset, counts map[string]int, names []string, n int, minConf float64) []Rule {
	k := len(s.ids)
	total := float64(n)
	support := float64(s.count) / total
	var out []Rule
	for mask := 1; mask < (1<<k)-1; mask++ {
		var ante, cons []int
		for i, id := range s.ids {
			if mask&(1<<i) != 0 {
				ante = append(ante, id)
			} else {
				cons = append(cons, id)
			}
		}
		aCount, ok := counts[key(ante)]
		if !ok || aCount == 0 {
			continue
		}
		conf := float64(s.count) / float64(aCount)
		if conf < minConf-eps {
			continue
		}
		cSupport := float64(counts[key(cons)]) / total
		lift := 0.0
		if cSupport > 0 {
			lift = conf / cSupport
		}
		out = append(out, Rule{
			Antecedents:       toNames(ante, names),
			Consequents:       toNames(cons, names),
			AntecedentSupport: float64(aCount) / total,
			ConsequentSupport: cSupport,
			Support:           support,
			Confidence:        conf,
			Lift:              lift,
		})
	}
	return out
}

func toNames(ids []int, names []string) Itemset {
	out := make(Itemset, len(ids))
	for i, id := range ids {
		out[i] = names[id]
	}
	return out
}
