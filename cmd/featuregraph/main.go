package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"featuregraph/app"
	"featuregraph/internal"
	"featuregraph/internal/config"
	"featuregraph/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	internal.DefaultLogger = internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))

	c, err := container.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := newRootCmd(c)
	err = rootCmd.Execute()
	c.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(c *container.Container) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "featuregraph",
		Short:         "Automated feature engineering by greedy transformation graph search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.Reader.Sheet, "sheet", "", "Worksheet to read from .xlsx inputs (default: first sheet)")

	rootCmd.AddCommand(
		newSearchCmd(c),
		newApplyCmd(c),
		newPreselectCmd(c),
		newGroupCmd(c),
		newRunsCmd(c),
		newGenerateCmd(c),
	)
	return rootCmd
}

// searchService connects the database first when one is configured
func searchService(ctx context.Context, c *container.Container) (*app.FeatureSearchService, error) {
	if err := c.ConnectDatabase(ctx); err != nil {
		return nil, err
	}
	return c.SearchService(), nil
}
