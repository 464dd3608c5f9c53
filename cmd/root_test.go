package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/nycdiscovery/config"
	"github.com/zalepa/nycdiscovery/store"
)

func withConfig(t *testing.T, c config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestLoadDatasetFromSnapshot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snap.db")
	db, err := store.Open(dbPath)
	require.NoError(t, err)
	saved, err := db.Save(context.Background(), webStore(), "test")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	withConfig(t, config.Config{DBPath: dbPath})
	st, imp, err := loadDataset(context.Background())
	require.NoError(t, err)
	require.NotNil(t, imp)
	assert.Equal(t, saved.ID, imp.ID)
	assert.Equal(t, 40, imp.Years)
	assert.Equal(t, 40, st.Numeric().Len())
}

func TestLoadDatasetEmptySnapshot(t *testing.T) {
	withConfig(t, config.Config{DBPath: filepath.Join(t.TempDir(), "empty.db")})
	_, imp, err := loadDataset(context.Background())
	assert.ErrorIs(t, err, store.ErrNoSnapshot)
	assert.Nil(t, imp)
}

func TestServeWatchFlag(t *testing.T) {
	t.Cleanup(func() {
		serveWatch = false
		serveCmd.Flags().Lookup("watch").Changed = false
	})
	require.NoError(t, serveCmd.Flags().Parse([]string{"--watch"}))
	assert.True(t, serveWatch)
	assert.True(t, serveCmd.Flags().Changed("watch"))
}
