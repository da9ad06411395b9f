package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/ruler/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basketsCSV = `invoice,sku,item,date
T1,1,A,2024-01-05
T1,2,B,2024-01-05
T2,1,A,2024-01-07
T2,3,C,2024-01-07
T3,1,A,2024-02-01
T3,2,B,2024-02-01
T3,3,C,2024-02-01
`

// resetFlags restores flag defaults that persist between Execute calls.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(fl *pflag.Flag) {
		if fl.Value.Type() != "stringSlice" {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns stdout and stderr.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	mineIgnore = nil
	cfg = nil

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "baskets.csv")
	require.NoError(t, os.WriteFile(path, []byte(basketsCSV), 0o644))
	t.Setenv("RULER_SAMPLE_DATA_PATH", path)
	return path
}

func TestMine_WritesArtifacts(t *testing.T) {
	path := isolate(t)
	outDir := filepath.Join(t.TempDir(), "out")

	stdout, stderr, err := runCmd(t, "mine", path, "--item", "item", "--tx", "invoice",
		"--confidence", "0.5", "--min-support", "0.01", "--out", outDir, "-q")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "Data: baskets.csv, 7 rows and 4 columns")
	assert.Contains(t, stdout, "unique items")
	assert.Contains(t, stdout, "Number of rules =")
	assert.Contains(t, stdout, "antecedents")

	for _, name := range []string{report.RulesCSV, report.SummaryCSV, report.InputCSV, report.ReportXLSX} {
		info, err := os.Stat(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0))
	}
	input, err := os.ReadFile(filepath.Join(outDir, report.InputCSV))
	require.NoError(t, err)
	assert.Equal(t, basketsCSV, string(input))
}

func TestMine_DefaultSampleAsJSON(t *testing.T) {
	isolate(t)
	stdout, stderr, err := runCmd(t, "mine", "--confidence", "0.5", "--min-support", "0.01", "--ignore", "B", "--json")
	require.NoError(t, err, stderr)

	var page struct {
		FromDefault bool     `json:"from_default"`
		Ignore      []string `json:"ignore"`
		Rules       struct {
			Rows []report.RuleRow `json:"rows"`
		} `json:"rules"`
		Summary []report.SummaryRow `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &page))
	assert.True(t, page.FromDefault)
	assert.Equal(t, []string{"B"}, page.Ignore)
	require.Len(t, page.Summary, 8)
	for _, r := range page.Rules.Rows {
		assert.NotContains(t, r.Antecedents, "B")
		assert.NotContains(t, r.Consequents, "B")
		assert.GreaterOrEqual(t, r.Confidence, 0.5)
	}
}

func TestMine_Errors(t *testing.T) {
	path := isolate(t)

	_, _, err := runCmd(t, "mine", path, "--item", "missing", "-q")
	assert.ErrorContains(t, err, "column not found")

	_, _, err = runCmd(t, "mine", path, "--confidence", "2", "-q")
	assert.ErrorContains(t, err, "out of range")

	t.Setenv("RULER_SAMPLE_DATA_PATH", filepath.Join(t.TempDir(), "missing.csv"))
	_, _, err = runCmd(t, "mine", "-q")
	assert.ErrorContains(t, err, "default dataset")
}

func TestInspect(t *testing.T) {
	path := isolate(t)
	stdout, _, err := runCmd(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "[SCHEMA]")
	assert.Contains(t, stdout, "- date: datetime")
	assert.Contains(t, stdout, "- transaction: invoice")
	assert.Contains(t, stdout, "- item: item")

	out := filepath.Join(t.TempDir(), "profile.md")
	_, _, err = runCmd(t, "inspect", path, "-o", out)
	require.NoError(t, err)
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[SUGGESTED ROLES]")
}

func TestConfigSetAndShow(t *testing.T) {
	isolate(t)
	_, _, err := runCmd(t, "config", "set", "default_confidence", "0.7")
	require.NoError(t, err)
	_, _, err = runCmd(t, "config", "set", "session_secret", "supersecretvalue")
	require.NoError(t, err)

	stdout, _, err := runCmd(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "default_confidence: 0.7")
	assert.Contains(t, stdout, "session_secret: sup****lue")

	_, _, err = runCmd(t, "config", "set", "bogus", "1")
	assert.Error(t, err)
}
