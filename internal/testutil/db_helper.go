package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/discordmedals/internal/sqlite"
)

// NewMemoryStore opens an isolated in-memory sqlite store that is closed when the test ends.
//
// Usage:
//
//	store := testutil.NewMemoryStore(t)
func NewMemoryStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(sqlite.MemoryDSN(uuid.NewString()), zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})

	return store
}
