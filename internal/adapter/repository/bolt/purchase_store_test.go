package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WorstGen/land-marketplace/internal/adapter/repository/repotest"
)

func TestPurchaseStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "land.db"))
	require.NoError(t, err)
	defer s.Close()

	repotest.Run(t, s)
}

func TestPurchaseStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "land.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)

	for _, p := range repotest.CommittedPlots(t, 3) {
		require.NoError(t, s.AppendPurchase(ctx, p))
	}
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	plots, err := s.ListPurchases(ctx)
	require.NoError(t, err)
	require.Len(t, plots, 3)
	assert.Equal(t, "8-4", plots[2].ID)
}
