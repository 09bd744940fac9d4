package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, path, key string) *DB {
	t.Helper()
	database, err := Open(path, key)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestMigrationsAreIdempotent(t *testing.T) {
	database := openTemp(t, filepath.Join(t.TempDir(), "billhours.db"), "k&y#1")

	require.NoError(t, database.RunMigrations())
	require.NoError(t, database.RunMigrations())

	v, err := database.Version()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)

	var fk int
	require.NoError(t, database.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "billhours.db")

	database, err := Open(path, "right")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations())
	require.NoError(t, database.Close())

	_, err = Open(path, "wrong")
	assert.Error(t, err)

	database = openTemp(t, path, "right")
	v, err := database.Version()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestInTxRollsBackOnError(t *testing.T) {
	database := openTemp(t, filepath.Join(t.TempDir(), "billhours.db"), "key")
	require.NoError(t, database.RunMigrations())
	ctx := context.Background()

	boom := errors.New("boom")
	err := database.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO users (login, name) VALUES ('alice', 'Alice')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, database.QueryRow("SELECT count(*) FROM users").Scan(&n))
	assert.Zero(t, n)

	require.NoError(t, database.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO users (login, name) VALUES ('alice', 'Alice')")
		return err
	}))
	require.NoError(t, database.QueryRow("SELECT count(*) FROM users").Scan(&n))
	assert.Equal(t, 1, n)
}
