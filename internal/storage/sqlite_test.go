package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDB_ReopenKeepsDataAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.db")

	db1, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db1.Put([]byte("wallet/CISP01"), []byte(`{"name":"a"}`)))
	require.NoError(t, db1.Close())

	// Migrations are idempotent on reopen.
	db2, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db2.Close() })

	val, err := db2.Get([]byte("wallet/CISP01"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a"}`, string(val))
}

func TestSQLiteDB_ForEachOrdered(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "wallets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, k := range []string{"w/c", "w/a", "w/b", "x/z"} {
		require.NoError(t, db.Put([]byte(k), []byte(k)))
	}

	var keys []string
	err = db.ForEach([]byte("w/"), func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"w/a", "w/b", "w/c"}, keys)
}

func TestOpen_Backends(t *testing.T) {
	for _, backend := range []string{BackendMemory, BackendBadger, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			db, err := Open(backend, t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			require.NoError(t, db.Put([]byte("k"), []byte("v")))
			got, err := db.Get([]byte("k"))
			require.NoError(t, err)
			assert.Equal(t, "v", string(got))
		})
	}
}
