package cmd

import (
	"fmt"

	"github.com/KaramelBytes/ruler/internal/analysis"
	"github.com/KaramelBytes/ruler/internal/parser"
	"github.com/KaramelBytes/ruler/internal/utils"
	"github.com/spf13/cobra"
)

var inspectOutput string

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Profile a CSV/XLSX file and suggest column roles",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			c, err := effectiveConfig()
			if err != nil {
				return err
			}
			path = c.SampleDataPath
		}
		ds, err := parser.LoadFile(path)
		if err != nil {
			return err
		}
		prof := analysis.Profile(ds)
		roles := analysis.SuggestRoles(ds, prof)
		md := prof.Markdown() + fmt.Sprintf("\n[SUGGESTED ROLES]\n- transaction: %s\n- item: %s\n- date: %s\n",
			roles.Transaction, roles.Item, roles.Date)

		if inspectOutput != "" {
			if err := utils.SafeWriteFile(inspectOutput, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", inspectOutput)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "", "optional path to write the profile (Markdown)")
}
