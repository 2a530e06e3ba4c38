package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"featuregraph/domain/dataset"
	"featuregraph/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.DatasetReader = (*DataReader)(nil)
	_ ports.DatasetWriter = (*DataWriter)(nil)
)

func sampleTable() *dataset.Table {
	return dataset.NewTable(
		[]string{"x", "city", "y"},
		[][]string{{"1.5", "lisbon", "yes"}, {"2", "", "no"}, {"-3e-05", "porto", "yes"}},
	)
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"data.csv", "data.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			ctx := context.Background()

			require.NoError(t, NewDataWriter().Write(ctx, path, sampleTable()))
			got, err := NewDataReader().Read(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, sampleTable(), got)
		})
	}
}

func TestReadTrimsAndPads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	require.NoError(t, os.WriteFile(path, []byte(" a , b ,c\n1, 2\n3,4,5\n"), 0o644))

	got, err := NewDataReader().Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got.Columns)
	assert.Equal(t, [][]string{{"1", "2", ""}, {"3", "4", "5"}}, got.Rows)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	r := NewDataReader()

	_, err := r.Read(ctx, filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	_, err = r.Read(ctx, filepath.Join(dir, "data.parquet"))
	assert.Error(t, err)

	headerOnly := filepath.Join(dir, "header.csv")
	require.NoError(t, os.WriteFile(headerOnly, []byte("a,b\n"), 0o644))
	_, err = r.Read(ctx, headerOnly)
	assert.Error(t, err)
}

func TestWriteNamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "named.xlsx")
	w := NewDataWriter()
	w.Sheet = "features"
	require.NoError(t, w.Write(context.Background(), path, sampleTable()))

	r := NewDataReader()
	r.Sheet = "features"
	got, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, sampleTable().Columns, got.Columns)
}
