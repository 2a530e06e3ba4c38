package container

import (
	"testing"

	"featuregraph/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestContainerWithoutDatabase(t *testing.T) {
	c, err := New(&config.Config{Learn: config.LearnConfig{Trees: 5, MinLeaf: 1, Workers: 1}})
	require.NoError(t, err)

	require.NoError(t, c.ConnectDatabase(t.Context()))
	assert.Nil(t, c.DB)
	assert.Nil(t, c.Runs)
	assert.NotNil(t, c.SearchService())
	assert.NotNil(t, c.PreselectService())
	assert.NotNil(t, c.GroupingService())
	assert.NoError(t, c.Shutdown())
	assert.Error(t, c.InitWithDatabase(nil))
}

func TestForestOptions(t *testing.T) {
	c, err := New(&config.Config{Learn: config.LearnConfig{Trees: 5, MinLeaf: 1, Workers: 1}})
	require.NoError(t, err)
	assert.Len(t, c.ForestOptions(), 3)

	c.Config.Learn.MaxDepth = 6
	assert.Len(t, c.ForestOptions(), 4)
}
