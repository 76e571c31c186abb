package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/evdash-cli/internal/export"
	"github.com/KaramelBytes/evdash-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	expQuery  queryFlags
	expFormat string
	expSheet  string
)

var exportCmd = &cobra.Command{
	Use:   "export <output>",
	Short: "Export the filtered and sorted vehicle table to CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		format := expFormat
		if format == "" {
			format = filepath.Ext(path)
		}
		f, err := export.ParseFormat(format)
		if err != nil {
			return err
		}
		set, err := loadDataset(cmd)
		if err != nil {
			return err
		}
		engine, st, err := expQuery.state(set)
		if err != nil {
			return err
		}
		rows := engine.View(st)

		var buf bytes.Buffer
		if f == export.FormatXLSX {
			err = export.WriteXLSX(&buf, rows, expSheet)
		} else {
			err = export.WriteCSV(&buf, rows)
		}
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d of %d vehicles to %s\n", len(rows), set.Len(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	expQuery.register(exportCmd)
	exportCmd.Flags().StringVar(&expFormat, "format", "", "csv | xlsx (default from the output extension)")
	exportCmd.Flags().StringVar(&expSheet, "sheet-name", "", "XLSX: sheet name (default Vehicles)")
}
