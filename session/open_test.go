package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-client/config"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, config.SessionConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	path := filepath.Join(t.TempDir(), "nested", "session.db")
	lite, err := Open(ctx, config.SessionConfig{Backend: config.BackendSQLite, Path: path, Key: "k3y"})
	require.NoError(t, err)
	defer lite.Close()
	assert.IsType(t, &SealedStore{}, lite)

	require.NoError(t, lite.Set(ctx, "token", "abc"))
	v, ok, err := lite.Get(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}
