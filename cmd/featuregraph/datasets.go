package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"featuregraph/app"
	"featuregraph/domain/core"
	"featuregraph/domain/dataset"
	"featuregraph/internal/catgroup"
	"featuregraph/internal/container"
	"featuregraph/internal/testkit"

	"github.com/spf13/cobra"
)

func newPreselectCmd(c *container.Container) *cobra.Command {
	var input, output, types string
	var keep []string
	var cutoff float64

	cmd := &cobra.Command{
		Use:   "preselect",
		Short: "Drop highly correlated numeric columns",
		Long: `Drop one column of every numeric pair whose absolute correlation is above
the cutoff. Of each pair the column with the higher mean correlation goes.

Example: featuregraph preselect --input orders.csv --cutoff 0.9 --keep returned`,
		RunE: func(cmd *cobra.Command, args []string) error {
			featureTypes, err := parseTypes(types)
			if err != nil {
				return err
			}
			if output == "" {
				output = defaultArtifact(c, input, "_preselected"+filepath.Ext(input))
			}
			resp, err := c.PreselectService().Run(cmd.Context(), app.PreselectRequest{
				InputPath:  input,
				OutputPath: output,
				Types:      featureTypes,
				Cutoff:     cutoff,
				Keep:       keep,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(resp.Dropped) == 0 {
				fmt.Fprintln(out, "No columns above the cutoff")
			} else {
				fmt.Fprintf(out, "Dropped %d columns: %s\n", len(resp.Dropped), strings.Join(resp.Dropped, ", "))
			}
			fmt.Fprintf(out, "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Input dataset (.csv or .xlsx)")
	cmd.Flags().StringVar(&output, "out", "", "Output dataset path")
	cmd.Flags().StringVar(&types, "types", "", "Comma separated feature types; inferred when empty")
	cmd.Flags().Float64Var(&cutoff, "cutoff", 0.9, "Absolute correlation above which a pair is redundant")
	cmd.Flags().StringSliceVar(&keep, "keep", nil, "Columns never dropped")
	cmd.MarkFlagRequired("input")

	return cmd
}

func newGroupCmd(c *container.Container) *cobra.Command {
	var input, output, mapping, types, method string
	var g catgroup.Grouper

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Merge rare or similar categories of categorical columns",
		Long: `Merge the categories of categorical columns.

Methods:
- percent: categories below --threshold share of rows become "other"
- top_n:   only the --n most frequent categories are kept
- kmeans:  categories are clustered on their target profile into --n groups

Example: featuregraph group --input orders.csv --columns segment --method kmeans --n 3 --target returned`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := catgroup.ParseMethod(method)
			if err != nil {
				return err
			}
			g.Method = m
			featureTypes, err := parseTypes(types)
			if err != nil {
				return err
			}
			if output == "" {
				output = defaultArtifact(c, input, "_grouped"+filepath.Ext(input))
			}
			resp, err := c.GroupingService().Run(cmd.Context(), app.GroupingRequest{
				InputPath:   input,
				OutputPath:  output,
				MappingPath: mapping,
				Types:       featureTypes,
				Grouper:     g,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, col := range g.Columns {
				groups := map[string]bool{}
				for _, to := range resp.Correspondence[col] {
					groups[to] = true
				}
				fmt.Fprintf(out, "%s: %d categories into %d groups\n", col, len(resp.Correspondence[col]), len(groups))
			}
			fmt.Fprintf(out, "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Input dataset (.csv or .xlsx)")
	cmd.Flags().StringVar(&output, "out", "", "Output dataset path")
	cmd.Flags().StringVar(&mapping, "mapping", "", "Correspondence JSON path")
	cmd.Flags().StringVar(&types, "types", "", "Comma separated feature types; inferred when empty")
	cmd.Flags().StringSliceVar(&g.Columns, "columns", nil, "Categorical columns to regroup")
	cmd.Flags().StringVar(&method, "method", string(catgroup.Percent), "Grouping method: percent, top_n or kmeans")
	cmd.Flags().Float64Var(&g.Threshold, "threshold", 0.05, "Minimum share of rows kept by the percent method")
	cmd.Flags().IntVar(&g.N, "n", 5, "Categories kept by top_n, clusters built by kmeans")
	cmd.Flags().StringVar(&g.Target, "target", "", "Target column used by kmeans")
	cmd.Flags().Int64Var(&g.Seed, "seed", 0, "Random seed for kmeans")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("columns")

	return cmd
}

func newGenerateCmd(c *container.Container) *cobra.Command {
	cfg := testkit.DefaultShoppingConfig()
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic orders dataset",
		Long: `Write a seeded synthetic orders dataset suitable for trying out the search.

Example: featuregraph generate --out orders.csv --orders 500 --seed 7
         featuregraph search --input orders.csv --target returned --group segment --date order_date`,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := testkit.NewShoppingDataGenerator(cfg).GenerateTable()
			if err != nil {
				return err
			}
			if err := c.Writer.Write(cmd.Context(), output, table); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d orders to %s\n", table.Len(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "out", "orders.csv", "Output dataset path (.csv or .xlsx)")
	cmd.Flags().IntVar(&cfg.Orders, "orders", cfg.Orders, "Number of orders")
	cmd.Flags().Float64Var(&cfg.MissingRate, "missing-rate", cfg.MissingRate, "Share of cells left empty")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")

	return cmd
}

func newRunsCmd(c *container.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List stored search runs or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := searchService(cmd.Context(), c)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				id, err := core.ParseRunID(args[0])
				if err != nil {
					return err
				}
				r, err := svc.GetRun(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Run %s on %s (target %s, %s)\n", r.ID, r.Dataset, r.Settings.Target, r.Task)
				fmt.Fprintf(out, "  started %s, took %s, %s\n", r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond), r.Termination)
				fmt.Fprintf(out, "  root %.6f, best node %d %.6f\n", r.RootReward, r.BestNode, r.BestReward)
				for _, n := range r.Nodes {
					fmt.Fprintf(out, "  %4d <- %-4d level %d  reward %.6f  %s\n", n.ID, n.Parent, n.Level, n.Reward, strings.Join(n.Applied, " > "))
				}
				return nil
			}

			summaries, err := svc.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Fprintf(out, "%s  %s  %-20s %-12s root %.4f best %.4f nodes %d\n",
					s.ID, s.StartedAt.Format(time.RFC3339), s.Dataset+":"+s.Target, s.Termination, s.RootReward, s.BestReward, s.Nodes)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")

	return cmd
}

func parseTypes(list string) ([]dataset.FeatureType, error) {
	if list == "" {
		return nil, nil
	}
	return dataset.ParseFeatureTypes(list)
}
