package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"featuregraph/internal/config"
	"featuregraph/internal/container"
	"featuregraph/internal/testkit"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContainer(t *testing.T) *container.Container {
	c, err := container.New(&config.Config{
		Search: config.SearchConfig{Budget: 3, Ranking: "reward", Folds: 3},
		Learn:  config.LearnConfig{Trees: 5, MinLeaf: 1, Workers: 2},
		Output: config.OutputConfig{Dir: t.TempDir()},
	})
	require.NoError(t, err)
	return c
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) string {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestDefaultArtifact(t *testing.T) {
	c := testContainer(t)
	got := defaultArtifact(c, "/data/orders.xlsx", "_features.xlsx")
	assert.Equal(t, filepath.Join(c.Config.Output.Dir, "orders_features.xlsx"), got)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd(testContainer(t))
	for _, name := range []string{"search", "apply", "preselect", "group", "runs", "generate"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestGenerateCommand(t *testing.T) {
	c := testContainer(t)
	path := filepath.Join(c.Config.Output.Dir, "orders.csv")

	out := execute(t, newGenerateCmd(c), "--out", path, "--orders", "40", "--seed", "3")
	assert.Contains(t, out, "Wrote 40 orders")

	table, err := c.Reader.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, testkit.ShoppingColumns, table.Columns)
	assert.Equal(t, 40, table.Len())
}

func TestSearchAndApplyCommands(t *testing.T) {
	c := testContainer(t)
	dir := c.Config.Output.Dir
	input := filepath.Join(dir, "orders.csv")
	execute(t, newGenerateCmd(c), "--out", input, "--orders", "60")

	out := execute(t, newSearchCmd(c), "--input", input, "--target", "returned", "--group", "segment", "--date", "order_date", "--no-report")
	assert.Contains(t, out, "termination:")
	assert.FileExists(t, filepath.Join(dir, "orders_features.csv"))
	assert.FileExists(t, filepath.Join(dir, "orders_replay.json"))
	assert.NoFileExists(t, filepath.Join(dir, "orders_report.html"))

	applied := filepath.Join(dir, "applied.csv")
	out = execute(t, newApplyCmd(c), "--input", input, "--replay", filepath.Join(dir, "orders_replay.json"), "--out", applied)
	assert.Contains(t, out, "Wrote 60 rows")
	assert.FileExists(t, applied)
}

func TestRunsCommandWithoutDatabase(t *testing.T) {
	cmd := newRunsCmd(testContainer(t))
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}
