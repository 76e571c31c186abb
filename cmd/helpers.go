package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/evdash-cli/internal/dataset"
	"github.com/KaramelBytes/evdash-cli/internal/table"
	"github.com/spf13/cobra"
)

// loadDataset reads the configured dataset and reports parse warnings.
func loadDataset(cmd *cobra.Command) (*dataset.RecordSet, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	debugf("loading dataset from %s", c.Dataset)
	set, err := dataset.Load(ctx, c.Dataset, c.LoadOptions())
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", c.Dataset, err)
	}
	for _, w := range set.Warnings() {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", w)
	}
	debugf("loaded %d records in %s (token %s)", set.Len(), time.Since(start).Round(time.Millisecond), set.Token())
	return set, nil
}

// parseFilter splits "column=value".
func parseFilter(s string) (dataset.Column, string, error) {
	name, val, ok := strings.Cut(s, "=")
	if !ok {
		return 0, "", fmt.Errorf("invalid --filter %q (want column=value)", s)
	}
	col, err := dataset.ParseColumn(name)
	if err != nil {
		return 0, "", err
	}
	return col, val, nil
}

// parseSort reads "column" or "column:asc|desc".
func parseSort(s string) (*table.SortSpec, error) {
	name, dir, _ := strings.Cut(s, ":")
	col, err := dataset.ParseColumn(name)
	if err != nil {
		return nil, err
	}
	spec := &table.SortSpec{Column: col}
	if err := spec.Direction.UnmarshalText([]byte(dir)); err != nil {
		return nil, err
	}
	return spec, nil
}

// queryFlags are the table query options shared by table and export.
type queryFlags struct {
	search   string
	filters  []string
	sort     string
	sortMode string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&q.search, "search", "s", "", "free-text search across all fields (case-insensitive)")
	cmd.Flags().StringArrayVarP(&q.filters, "filter", "f", nil, "column=value equality filter (repeatable, AND)")
	cmd.Flags().StringVar(&q.sort, "sort", "", "sort column, optionally with :asc or :desc")
	cmd.Flags().StringVar(&q.sortMode, "sort-mode", "", "natural | lexical (default from config)")
}

// state builds the table state and engine for the flags.
func (q *queryFlags) state(set *dataset.RecordSet) (*table.Engine, table.State, error) {
	st := table.NewState()
	c, err := currentConfig()
	if err != nil {
		return nil, st, err
	}
	mode := c.Sort()
	if q.sortMode != "" {
		if mode, err = table.ParseSortMode(q.sortMode); err != nil {
			return nil, st, err
		}
	}
	if table.ValidPageSize(c.PageSize) {
		st, _ = st.WithPageSize(c.PageSize)
	}
	if q.search != "" {
		st = st.WithSearch(q.search)
	}
	for _, f := range q.filters {
		col, val, err := parseFilter(f)
		if err != nil {
			return nil, st, err
		}
		st = st.WithFilter(col, val)
	}
	if q.sort != "" {
		spec, err := parseSort(q.sort)
		if err != nil {
			return nil, st, err
		}
		st = st.WithSort(spec)
	}
	return table.NewEngine(set, mode), st, nil
}

// reset restores flag defaults between in-process runs.
func (q *queryFlags) reset() {
	*q = queryFlags{}
}
