package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"featuregraph/app"
	"featuregraph/domain/dataset"
	"featuregraph/internal/container"
	"featuregraph/internal/search"

	"github.com/spf13/cobra"
)

func newSearchCmd(c *container.Container) *cobra.Command {
	var (
		input, types, ranking      string
		output, replay, reportPath string
		cfg                        search.Config
		noReport                   bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the transformation graph for a better feature set",
		Long: `Search the transformation graph of a dataset for the feature set that
maximizes cross-validated random forest performance on the target.

Categorical targets are scored with macro F1, numeric targets with the
negative mean absolute error.

Example: featuregraph search --input orders.csv --target returned --group segment --date order_date --budget 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := search.ParseRankingMode(ranking)
			if err != nil {
				return err
			}
			cfg.Ranking = mode

			var featureTypes []dataset.FeatureType
			if types != "" {
				if featureTypes, err = dataset.ParseFeatureTypes(types); err != nil {
					return err
				}
			}

			if output == "" {
				output = defaultArtifact(c, input, "_features"+filepath.Ext(input))
			}
			if replay == "" {
				replay = defaultArtifact(c, input, "_replay.json")
			}
			if reportPath == "" && c.Config.Output.Report && !noReport {
				reportPath = defaultArtifact(c, input, "_report.html")
			}

			svc, err := searchService(cmd.Context(), c)
			if err != nil {
				return err
			}
			resp, err := svc.Run(cmd.Context(), app.SearchRequest{
				InputPath:  input,
				Types:      featureTypes,
				Config:     cfg,
				OutputPath: output,
				ReplayPath: replay,
				ReportPath: reportPath,
			})
			if err != nil {
				return err
			}

			res := resp.Result
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s)\n", resp.RunID, res.Task)
			fmt.Fprintf(out, "  termination:  %s after %d nodes\n", res.Termination, res.Graph.Derived())
			fmt.Fprintf(out, "  root reward:  %.6f\n", res.Root.Reward)
			fmt.Fprintf(out, "  best node:    %d (reward %.6f, %s)\n", res.Best.ID, res.Best.Reward, strings.Join(res.Best.Applied, " > "))
			fmt.Fprintf(out, "  new columns:  %d\n", len(res.NewColumns))
			fmt.Fprintf(out, "  dataset:      %s\n", output)
			fmt.Fprintf(out, "  replay:       %s\n", replay)
			if reportPath != "" {
				fmt.Fprintf(out, "  report:       %s\n", reportPath)
			}
			if resp.Persisted {
				fmt.Fprintln(out, "  stored in database")
			}
			return nil
		},
	}

	defaults := c.Config.Search
	cmd.Flags().StringVar(&input, "input", "", "Input dataset (.csv or .xlsx)")
	cmd.Flags().StringVar(&cfg.Target, "target", "", "Target column")
	cmd.Flags().StringVar(&cfg.GroupColumn, "group", "", "Group column for grouped aggregates")
	cmd.Flags().StringVar(&cfg.DateColumn, "date", "", "Date column for time components")
	cmd.Flags().StringVar(&types, "types", "", "Comma separated feature types, one per column (categorical|numerical); inferred when empty")
	cmd.Flags().IntVar(&cfg.Budget, "budget", defaults.Budget, "Maximum number of derived nodes")
	cmd.Flags().StringVar(&ranking, "ranking", defaults.Ranking, "Node ranking: reward, cumulative or improvement")
	cmd.Flags().IntVar(&cfg.Folds, "folds", defaults.Folds, "Cross-validation folds")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", defaults.Seed, "Random seed for folds and forests")
	cmd.Flags().StringVar(&output, "out", "", "Augmented dataset path")
	cmd.Flags().StringVar(&replay, "replay", "", "Replay record JSON path")
	cmd.Flags().StringVar(&reportPath, "report", "", "Report path (.html or .md)")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "Skip the default report")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("target")

	return cmd
}

func newApplyCmd(c *container.Container) *cobra.Command {
	var input, replay, output string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Recompute the columns of a replay record on a new dataset",
		Long: `Apply a replay record written by "search" to a dataset with the same
columns, appending every recorded feature without searching again.

Example: featuregraph apply --input new_orders.csv --replay orders_replay.json --out new_orders_features.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = defaultArtifact(c, input, "_features"+filepath.Ext(input))
			}
			svc := app.NewFeatureSearchService(c.Reader, c.Writer, nil)
			table, err := svc.ApplyReplay(cmd.Context(), input, replay, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows and %d columns to %s\n", table.Len(), len(table.Columns), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Input dataset (.csv or .xlsx)")
	cmd.Flags().StringVar(&replay, "replay", "", "Replay record JSON")
	cmd.Flags().StringVar(&output, "out", "", "Output dataset path")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("replay")

	return cmd
}

// defaultArtifact places an artifact named after the input in the output directory
func defaultArtifact(c *container.Container, input, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(c.Config.Output.Dir, base+suffix)
}
