package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/standup-agent/internal/config"
)

func TestOpenAndMigrate_SQLite(t *testing.T) {
	gdb, err := Open(config.DatabaseConfig{
		URL:          "file::memory:",
		Driver:       "sqlite",
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, Migrate(gdb))
	for _, table := range []string{"standup_reports", "daily_summaries", "conversation_turns", "conversation_states"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{URL: "x", Driver: "oracle"}, nil)
	require.Error(t, err)
}
