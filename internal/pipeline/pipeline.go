// Package pipeline renders one session's page: load, describe, and (once
// triggered) mine, format and export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/KaramelBytes/ruler/internal/analysis"
	"github.com/KaramelBytes/ruler/internal/logger"
	"github.com/KaramelBytes/ruler/internal/memo"
	"github.com/KaramelBytes/ruler/internal/miner"
	"github.com/KaramelBytes/ruler/internal/parser"
	"github.com/KaramelBytes/ruler/internal/report"
	"github.com/KaramelBytes/ruler/internal/session"
	"go.uber.org/zap"
)

// Deps are the collaborators Render needs.
type Deps struct {
	// DefaultPath is the bundled dataset used when there is no usable upload.
	DefaultPath string
	Miner       miner.Miner
	// PreviewRows bounds the data preview; 0 disables it.
	PreviewRows int
	// Logger defaults to the logger carried by the render context.
	Logger *zap.Logger
}

// Preview is the first rows of the loaded dataset.
type Preview struct {
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
	Total     int        `json:"total"`
	Truncated bool       `json:"truncated"`
}

// Page is everything the UI shows for one render.
type Page struct {
	SessionID   string   `json:"session_id"`
	Source      string   `json:"source"`
	FromDefault bool     `json:"from_default"`
	Warnings    []string `json:"warnings,omitempty"`

	Preview     *Preview                 `json:"preview,omitempty"`
	Profile     *analysis.DatasetProfile `json:"profile"`
	Columns     []string                 `json:"columns"`
	DateOptions []string                 `json:"date_options"`
	Roles       analysis.Roles           `json:"roles"`
	Stats       []report.SummaryRow      `json:"stats"`

	Confidence  float64  `json:"confidence"`
	UseIgnore   bool     `json:"use_ignore"`
	ItemOptions []string `json:"item_options,omitempty"`
	Ignore      []string `json:"ignore,omitempty"`
	ShowHints   bool     `json:"show_hints"`

	Triggered bool                `json:"triggered"`
	Rules     *report.RuleTable   `json:"rules,omitempty"`
	Summary   []report.SummaryRow `json:"summary,omitempty"`
	Artifacts []report.Artifact   `json:"artifacts,omitempty"`

	Dataset *analysis.Dataset `json:"-"`
	Bundle  *report.Bundle    `json:"-"`
}

type loadResult struct {
	loaded  *parser.Loaded
	profile *analysis.DatasetProfile
}

// Render computes the page for sess. The caller holds the session lock.
// The only error returned is a failure to load any dataset at all; every
// other problem becomes a warning on the page.
func Render(ctx context.Context, sess *session.Session, deps Deps) (*Page, error) {
	log := deps.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	log = log.With(zap.String("session_id", sess.ID))
	notices := sess.TakeNotices()

	lr, err := load(sess, deps.DefaultPath)
	if err != nil {
		log.Error("no dataset available", zap.Error(err))
		return nil, err
	}
	ds := lr.loaded.Dataset

	p := &Page{
		SessionID:   sess.ID,
		Source:      ds.Name,
		FromDefault: lr.loaded.FromDefault,
		Warnings:    notices,
		Preview:     preview(ds, deps.PreviewRows),
		Profile:     lr.profile,
		Columns:     append([]string(nil), ds.Header...),
		DateOptions: analysis.DateOptions(ds),
		Confidence:  sess.Confidence,
		UseIgnore:   sess.UseIgnore,
		ShowHints:   sess.ShowHints,
		Triggered:   sess.Triggered(),
		Dataset:     ds,
	}
	if w := lr.loaded.Warning; w != nil {
		p.warn("Could not read the uploaded file (%v); showing the default dataset instead.", w)
	}

	if sess.Roles != nil {
		p.Roles = *sess.Roles
	} else {
		p.Roles = analysis.SuggestRoles(ds, lr.profile)
	}

	stats := analysis.ComputeStats(ds, p.Roles)
	p.statWarnings(stats)

	if p.UseIgnore {
		opts, err := analysis.ItemOptions(ds, p.Roles.Item)
		if err == nil {
			p.ItemOptions = opts
			p.Ignore = analysis.FilterIgnore(opts, sess.Ignore)
		}
	}

	ruleCount := 0
	if p.Triggered {
		rules, err := mine(ctx, sess, deps.Miner, ds, p.Roles, p.Ignore, p.Confidence)
		if err != nil {
			log.Warn("rule generation failed", zap.Error(err))
			p.warn("Could not generate rules: %v", err)
		} else {
			table := report.FormatRules(rules)
			p.Rules = &table
			ruleCount = table.Len()
		}
	}

	summary := report.BuildSummary(report.SummaryInput{
		Stats:      stats,
		Roles:      p.Roles,
		Confidence: p.Confidence,
		RuleCount:  ruleCount,
	})
	p.Stats = summary[:4]

	if p.Rules != nil {
		p.Summary = summary
		bundle, err := report.BuildBundle(*p.Rules, summary, ds)
		if err != nil {
			log.Error("build downloads", zap.Error(err))
			p.warn("Could not prepare downloads: %v", err)
		} else {
			p.Bundle = bundle
			p.Artifacts = bundle.Artifacts()
		}
	}

	loadHits, loadMisses := sess.Loads.Stats()
	ruleHits, ruleMisses := sess.Rules.Stats()
	log.Debug("page rendered",
		zap.String("source", p.Source),
		zap.Bool("triggered", p.Triggered),
		zap.Int("rules", ruleCount),
		zap.Int("warnings", len(p.Warnings)),
		zap.Int("load_cache_hits", loadHits),
		zap.Int("load_cache_misses", loadMisses),
		zap.Int("rule_cache_hits", ruleHits),
		zap.Int("rule_cache_misses", ruleMisses),
	)
	return p, nil
}

func (p *Page) warn(format string, args ...any) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

func (p *Page) statWarnings(s analysis.Stats) {
	if err := s.UniqueItems.Err; err != nil {
		p.warn("Unique items not available: %v", err)
	}
	if err := s.UniqueTransactions.Err; err != nil {
		p.warn("Unique transactions not available: %v", err)
	}
	if err := s.AvgItemsPerTx.Err; errors.Is(err, analysis.ErrEmptyTransactionSet) {
		p.warn("Average items per transaction not available: %v", err)
	}
	switch err := s.DateRange.Err; {
	case s.DateWarning() != nil:
		p.warn("Date column could not be read as dates (%v); no date column is used.", err)
	case err != nil && !analysis.IsNoDate(err):
		p.warn("Date range not available: %v", err)
	}
}

func preview(ds *analysis.Dataset, n int) *Preview {
	if n <= 0 {
		return nil
	}
	rows := ds.Rows
	if len(rows) > n {
		rows = rows[:n]
	}
	out := &Preview{
		Header:    append([]string(nil), ds.Header...),
		Rows:      make([][]string, len(rows)),
		Total:     ds.NumRows(),
		Truncated: ds.NumRows() > n,
	}
	for i, r := range rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	return out
}

func load(sess *session.Session, defaultPath string) (*loadResult, error) {
	var (
		name    string
		content []byte
		ident   string
	)
	if sess.Upload != nil {
		name, content, ident = sess.Upload.Name, sess.Upload.Data, sess.Upload.Identity
	}
	key := memo.Key("load", ident, defaultPath)
	v, _, err := sess.Loads.Do(key, func() (any, error) {
		loaded, err := parser.LoadOrDefault(name, content, defaultPath)
		if err != nil {
			return nil, err
		}
		return &loadResult{loaded: loaded, profile: analysis.Profile(loaded.Dataset)}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*loadResult), nil
}

func mine(ctx context.Context, sess *session.Session, m miner.Miner, ds *analysis.Dataset, roles analysis.Roles, ignore []string, confidence float64) ([]miner.Rule, error) {
	if m == nil {
		return nil, errors.New("no rule engine configured")
	}
	if err := roles.Validate(ds); err != nil {
		return nil, err
	}
	if err := miner.ValidateConfidence(confidence); err != nil {
		return nil, err
	}
	sorted := append([]string(nil), ignore...)
	sort.Strings(sorted)
	key := memo.Key("rules", ds.Identity, roles.Item, roles.Transaction, sorted, confidence)
	v, _, err := sess.Rules.Do(key, func() (any, error) {
		txs, err := miner.FromDataset(ds, roles.Item, roles.Transaction)
		if err != nil {
			return nil, err
		}
		return m.Mine(ctx, miner.Request{
			Transactions:  txs,
			Ignore:        sorted,
			MinConfidence: confidence,
		})
	})
	if err != nil {
		return nil, err
	}
	rules, _ := v.([]miner.Rule)
	return rules, nil
}
