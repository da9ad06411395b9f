package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/ruler/internal/analysis"
	"github.com/KaramelBytes/ruler/internal/memo"
	"github.com/KaramelBytes/ruler/internal/miner"
	"github.com/KaramelBytes/ruler/internal/pipeline"
	"github.com/KaramelBytes/ruler/internal/report"
	"github.com/KaramelBytes/ruler/internal/session"
	"github.com/KaramelBytes/ruler/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	mineItem       string
	mineTx         string
	mineDate       string
	mineConfidence float64
	mineIgnore     []string
	mineMinSupport float64
	mineMaxLen     int
	mineOut        string
	mineJSON       bool
	mineQuiet      bool
)

var mineCmd = &cobra.Command{
	Use:   "mine [file]",
	Short: "Mine association rules from a CSV/XLSX file",
	Long: `Mine association rules without the web UI. Column roles default to the
same suggestions the UI makes; with no file the bundled sample data is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig()
		if err != nil {
			return err
		}
		log := cliLogger(c)
		defer func() { _ = log.Sync() }()

		sess, err := newCLISession(c.MemoSize)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			sess.SetUpload(filepath.Base(args[0]), data)
		}

		confidence := c.DefaultConfidence
		if cmd.Flags().Changed("confidence") {
			confidence = mineConfidence
		}
		if err := miner.ValidateConfidence(confidence); err != nil {
			return err
		}
		sess.Confidence = confidence

		minSupport := c.MinSupport
		if cmd.Flags().Changed("min-support") {
			minSupport = mineMinSupport
		}
		maxLen := c.MaxItemsetLen
		if cmd.Flags().Changed("max-len") {
			maxLen = mineMaxLen
		}

		var bar *progressbar.ProgressBar
		if !mineQuiet && !mineJSON {
			bar = progressbar.NewOptions(-1,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("Mining rules..."),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionClearOnFinish(),
			)
		}
		ap := miner.Apriori{MinSupport: minSupport, MaxLen: maxLen}
		if bar != nil {
			ap.Progress = func(level, frequent int) {
				bar.Describe(fmt.Sprintf("Mining rules: %d frequent itemsets of size %d", frequent, level))
				_ = bar.Add(1)
			}
		}
		deps := pipeline.Deps{DefaultPath: c.SampleDataPath, Miner: ap, Logger: log}

		// First pass resolves suggested roles for flags left unset.
		page, err := pipeline.Render(cmd.Context(), sess, deps)
		if err != nil {
			return err
		}
		roles := page.Roles
		if mineItem != "" {
			roles.Item = mineItem
		}
		if mineTx != "" {
			roles.Transaction = mineTx
		}
		if cmd.Flags().Changed("date") {
			roles.Date = mineDate
		}
		if err := roles.Validate(page.Dataset); err != nil {
			return err
		}
		sess.SetRoles(roles)
		if len(mineIgnore) > 0 {
			sess.UseIgnore = true
			sess.Ignore = mineIgnore
		}
		sess.Trigger()

		page, err = pipeline.Render(cmd.Context(), sess, deps)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if mineJSON {
			b, err := utils.PrettyJSON(page)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		} else {
			printPage(out, page)
		}
		for _, w := range page.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", w)
		}

		if mineOut != "" {
			if page.Bundle == nil {
				return fmt.Errorf("no results to write")
			}
			files := make(map[string][]byte)
			var order []string
			for _, a := range page.Bundle.Artifacts() {
				files[a.Name] = a.Data
				order = append(order, a.Name)
			}
			paths, err := utils.WriteAll(mineOut, files, order)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", p)
			}
		}
		return nil
	},
}

func newCLISession(memoSize int) (*session.Session, error) {
	loads, err := memo.New(memoSize)
	if err != nil {
		return nil, err
	}
	rules, err := memo.New(memoSize)
	if err != nil {
		return nil, err
	}
	return &session.Session{ID: "cli", Loads: loads, Rules: rules}, nil
}

func printPage(w io.Writer, p *pipeline.Page) {
	src := p.Source
	if p.FromDefault {
		src += " (sample data)"
	}
	fmt.Fprintf(w, "Data: %s, %d rows and %d columns\n\n", src, p.Dataset.NumRows(), p.Dataset.NumCols())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := p.Summary
	if rows == nil {
		rows = p.Stats
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.Feature, r.Info)
	}
	_ = tw.Flush()

	if p.Rules == nil {
		return
	}
	fmt.Fprintf(w, "\nNumber of rules = %d\n\n", p.Rules.Len())
	if p.Rules.Len() == 0 {
		return
	}
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(report.RuleColumns, "\t"))
	for _, rec := range p.Rules.Records()[1:] {
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	_ = tw.Flush()
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringVar(&mineItem, "item", "", "item column (default: suggested)")
	mineCmd.Flags().StringVar(&mineTx, "tx", "", "transaction column (default: suggested)")
	mineCmd.Flags().StringVar(&mineDate, "date", analysis.NoDate, "date column, or None")
	mineCmd.Flags().Float64Var(&mineConfidence, "confidence", 0.85, "minimum rule confidence in [0, 1] (default from config)")
	mineCmd.Flags().StringSliceVar(&mineIgnore, "ignore", nil, "comma-separated items to leave out of mining")
	mineCmd.Flags().Float64Var(&mineMinSupport, "min-support", miner.DefaultMinSupport, "minimum itemset support (default from config)")
	mineCmd.Flags().IntVar(&mineMaxLen, "max-len", 0, "maximum itemset size (0 = unlimited)")
	mineCmd.Flags().StringVarP(&mineOut, "out", "o", "", "directory to write rules.csv, summary.csv, rules_report.csv and ruler_report.xlsx")
	mineCmd.Flags().BoolVar(&mineJSON, "json", false, "print the results as JSON")
	mineCmd.Flags().BoolVarP(&mineQuiet, "quiet", "q", false, "hide the progress spinner")
}
