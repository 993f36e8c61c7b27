package repository

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_Embedded(t *testing.T) {
	conn := &mockDB{}

	require.NoError(t, Migrate(context.Background(), conn))

	require.Len(t, conn.execs, 1)
	assert.Contains(t, conn.execs[0], "CREATE TABLE IF NOT EXISTS priced_orders")
}

func TestMigrate_NameOrder(t *testing.T) {
	conn := &mockDB{}
	fsys := fstest.MapFS{
		"migrations/002_index.sql": {Data: []byte("second")},
		"migrations/001_table.sql": {Data: []byte("first")},
		"migrations/README.md":     {Data: []byte("ignored")},
	}

	require.NoError(t, migrate(context.Background(), conn, fsys))
	assert.Equal(t, []string{"first", "second"}, conn.execs)
}

func TestMigrate_Errors(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		err := migrate(context.Background(), &mockDB{}, fstest.MapFS{})
		require.Error(t, err)
	})
	t.Run("ExecFails", func(t *testing.T) {
		conn := &mockDB{execErr: errors.New("permission denied")}
		fsys := fstest.MapFS{"migrations/001_table.sql": {Data: []byte("first")}}

		err := migrate(context.Background(), conn, fsys)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "apply migrations/001_table.sql")
	})
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "postgres://%zz")
	require.Error(t, err)
}
