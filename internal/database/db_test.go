package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coach.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"ingredients", "client_restrictions", "plans", "plan_versions", "plan_overrides", "execution_metrics", "chat_sessions"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coach.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}

func TestWithTxRollsBack(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "coach.db"))
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	err = db.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO plans (id, client_id, created_at) VALUES ('p1', 'c1', '2026-01-01T00:00:00.000000000Z')`)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.SQL.QueryRow(`SELECT COUNT(*) FROM plans`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestTimeLayoutRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 120, time.FixedZone("X", 3600))
	s := FormatTime(ts)
	assert.Equal(t, "2026-03-01T08:30:00.000000120Z", s)

	back, err := ParseTime(s)
	require.NoError(t, err)
	assert.True(t, back.Equal(ts))

	none, err := ParseNullTime(NullTime(nil))
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}
