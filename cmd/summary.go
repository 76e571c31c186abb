package cmd

import (
	"fmt"

	"github.com/KaramelBytes/evdash-cli/internal/analysis"
	"github.com/KaramelBytes/evdash-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	sumOutputPath string
	sumJSON       bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the dashboard summary cards and chart series",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadDataset(cmd)
		if err != nil {
			return err
		}
		d := analysis.Summarize(set)

		var out []byte
		if sumJSON {
			if out, err = utils.PrettyJSON(d); err != nil {
				return err
			}
		} else {
			out = []byte(d.Markdown())
		}

		if sumOutputPath != "" {
			if err := utils.SafeWriteFile(sumOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary of %d vehicles to %s\n", d.TotalVehicles, sumOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVarP(&sumOutputPath, "output", "o", "", "optional path to write the summary")
	summaryCmd.Flags().BoolVar(&sumJSON, "json", false, "emit JSON instead of the text report")
}
