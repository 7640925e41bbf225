package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/factory"
	"github.com/kilianp07/fleetops/core/store"
	"github.com/kilianp07/fleetops/core/store/storetest"
)

func openSQLite(t *testing.T) store.Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, Config{DSN: filepath.Join(t.TempDir(), "fleet.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteConformance(t *testing.T) {
	storetest.Run(t, openSQLite)
}

func TestSQLiteSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.db")
	s, err := Open(context.Background(), SQLite, Config{DSN: path})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), SQLite, Config{DSN: path})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRegisteredBackends(t *testing.T) {
	s, err := store.Open(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"dsn": filepath.Join(t.TempDir(), "x.db")}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = store.Open(factory.ModuleConfig{Type: "sqlite"})
	require.Error(t, err)
	require.Contains(t, store.Backends(), "postgres")
}
