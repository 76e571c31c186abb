package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
	"github.com/KaramelBytes/evdash-cli/internal/table"
	"github.com/KaramelBytes/evdash-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	tblQuery    queryFlags
	tblPage     int
	tblPageSize int
	tblColumns  []string
	tblJSON     bool
)

// defaultTableColumns keeps the terminal table readable; --columns all shows every field.
var defaultTableColumns = []dataset.Column{
	dataset.ColVIN, dataset.ColCity, dataset.ColPostalCode, dataset.ColModelYear,
	dataset.ColMake, dataset.ColModel, dataset.ColElectricVehicleType, dataset.ColElectricRange,
}

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Query the vehicle table: search, filter, sort and paginate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := loadDataset(cmd)
		if err != nil {
			return err
		}
		engine, st, err := tblQuery.state(set)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("page-size") {
			if st, err = st.WithPageSize(tblPageSize); err != nil {
				return err
			}
		}
		st = st.WithPage(tblPage)
		res := engine.Apply(st)

		if tblJSON {
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}

		cols, err := parseColumns(tblColumns)
		if err != nil {
			return err
		}
		writeTable(cmd, cols, res)
		return nil
	},
}

func parseColumns(names []string) ([]dataset.Column, error) {
	if len(names) == 0 {
		return defaultTableColumns, nil
	}
	if len(names) == 1 && strings.EqualFold(names[0], "all") {
		return dataset.Columns, nil
	}
	out := make([]dataset.Column, 0, len(names))
	for _, n := range names {
		c, err := dataset.ParseColumn(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func writeTable(cmd *cobra.Command, cols []dataset.Column, res table.Result) {
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.Label()
	}
	fmt.Fprintln(tw, strings.Join(labels, "\t"))
	cells := make([]string, len(cols))
	for _, r := range res.Rows {
		for i, c := range cols {
			cells[i] = r.Display(c)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	if res.FilteredCount == 0 {
		fmt.Fprintln(out, "No results found.")
	}
	fmt.Fprintf(out, "Page %d of %d (%d of %d vehicles, %d per page)\n",
		res.Page, res.TotalPages, res.FilteredCount, res.TotalCount, res.PageSize)
}

func init() {
	rootCmd.AddCommand(tableCmd)
	tblQuery.register(tableCmd)
	tableCmd.Flags().IntVarP(&tblPage, "page", "p", 1, "page number (clamped to the last page)")
	tableCmd.Flags().IntVarP(&tblPageSize, "page-size", "n", table.DefaultPageSize, "rows per page: 5, 10, 15, 20, 25 or 50")
	tableCmd.Flags().StringSliceVar(&tblColumns, "columns", nil, "columns to show (comma-separated, or 'all')")
	tableCmd.Flags().BoolVar(&tblJSON, "json", false, "emit the page as JSON")
}
