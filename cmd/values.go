package cmd

import (
	"fmt"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
	"github.com/KaramelBytes/evdash-cli/internal/table"
	"github.com/spf13/cobra"
)

var valuesCmd = &cobra.Command{
	Use:   "values <column>",
	Short: "List the distinct filter values of a column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := dataset.ParseColumn(args[0])
		if err != nil {
			return err
		}
		set, err := loadDataset(cmd)
		if err != nil {
			return err
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		vals := table.NewEngine(set, c.Sort()).FilterValues(col)
		for _, v := range vals {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		debugf("%d distinct values for %s", len(vals), col.Label())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(valuesCmd)
}
