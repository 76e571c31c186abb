package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/evdash-cli/internal/analysis"
	"github.com/KaramelBytes/evdash-cli/internal/render"
	"github.com/KaramelBytes/evdash-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	chartsJSON      bool
	chartsRenderDir string
	chartsFormat    string
)

var chartsCmd = &cobra.Command{
	Use:   "charts [series...]",
	Short: "Print or render chart series (makes, vehicle-types, postal-codes, range, model-years)",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := args
		if len(names) == 0 {
			names = analysis.SeriesNames
		}
		set, err := loadDataset(cmd)
		if err != nil {
			return err
		}
		d := analysis.Summarize(set)
		out := cmd.OutOrStdout()

		if chartsRenderDir != "" {
			format, err := render.ParseFormat(chartsFormat)
			if err != nil {
				return err
			}
			for _, name := range names {
				var buf bytes.Buffer
				if err := render.Series(&buf, d, name, format); err != nil {
					if errors.Is(err, render.ErrNoData) {
						fmt.Fprintf(out, "⚠ Skipped %s: no data\n", name)
						continue
					}
					return err
				}
				p := filepath.Join(chartsRenderDir, name+"."+string(format))
				if err := utils.SafeWriteFile(p, buf.Bytes()); err != nil {
					return fmt.Errorf("write chart: %w", err)
				}
				fmt.Fprintf(out, "✓ Rendered %s to %s\n", name, p)
			}
			return nil
		}

		if chartsJSON {
			series := make(map[string]any, len(names))
			for _, name := range names {
				if name == "postal-codes" {
					series[name] = d.PostalCodes
					continue
				}
				s, err := d.Series(name)
				if err != nil {
					return err
				}
				series[name] = s
			}
			b, err := utils.PrettyJSON(series)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}

		for i, name := range names {
			s, err := d.Series(name)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "[%s]\n", analysis.SeriesTitle(name))
			if len(s) == 0 {
				fmt.Fprintln(out, "(no data)")
			}
			for _, b := range s {
				fmt.Fprintf(out, "- %s: %d\n", b.Label, b.Value)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartsCmd)
	chartsCmd.Flags().BoolVar(&chartsJSON, "json", false, "emit series as JSON")
	chartsCmd.Flags().StringVar(&chartsRenderDir, "render", "", "render chart images into this directory")
	chartsCmd.Flags().StringVar(&chartsFormat, "format", "png", "image format for --render: png | svg")
}
