package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faxioman/sofa/internal/config"
	"github.com/faxioman/sofa/internal/document"
	"github.com/faxioman/sofa/internal/registry"
)

func testConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.Storage.Path = ":memory:"
	cfg.NATS.URL = ""
	return cfg
}

func registerTestProviders(db *sql.DB, b *registry.Builder) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			email    TEXT
		);
		CREATE TABLE IF NOT EXISTS groups (
			name TEXT PRIMARY KEY,
			role TEXT
		);
	`); err != nil {
		return err
	}
	if err := b.Register("user", document.NewRowProvider(db, "users", "username", []string{"email"})); err != nil {
		return err
	}
	return b.Register("groups", document.NewSingletonProvider(db, "groups", "name", []string{"role"}))
}

func TestManager_Init(t *testing.T) {
	mgr := NewManager(testConfig(), Options{}, registerTestProviders)
	require.NoError(t, mgr.Init(context.Background()))
	defer mgr.Shutdown(context.Background())

	assert.NotNil(t, mgr.Notifier())
	assert.NotNil(t, mgr.Registry())

	_, err := mgr.Registry().Resolve("user")
	assert.NoError(t, err)
}

func TestManager_Init_RegisterError(t *testing.T) {
	register := func(db *sql.DB, b *registry.Builder) error {
		if err := b.Register("user", document.NewRowProvider(db, "users", "username", nil)); err != nil {
			return err
		}
		return b.Register("user", document.NewRowProvider(db, "users", "username", nil))
	}
	mgr := NewManager(testConfig(), Options{}, register)
	err := mgr.Init(context.Background())
	assert.Error(t, err)
}

func TestManager_InitRevisions(t *testing.T) {
	mgr := NewManager(testConfig(), Options{}, registerTestProviders)
	ctx := context.Background()
	require.NoError(t, mgr.Init(ctx))
	defer mgr.Shutdown(ctx)

	_, err := mgr.db.Exec(`INSERT INTO users (username, email) VALUES ('alice', 'a@x'), ('bob', 'b@x')`)
	require.NoError(t, err)

	// Seed, then verify one change per user plus the singleton.
	require.NoError(t, mgr.InitRevisions(ctx))

	rows, err := mgr.log.ChangesSince(ctx, 0, 100)
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.DocumentID)
	}
	assert.ElementsMatch(t, []string{"user:alice", "user:bob", "groups"}, ids)

	// Re-running resets rather than duplicating.
	require.NoError(t, mgr.InitRevisions(ctx))
	rows, err = mgr.log.ChangesSince(ctx, 0, 100)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestManager_Reload(t *testing.T) {
	mgr := NewManager(testConfig(), Options{}, registerTestProviders)
	ctx := context.Background()
	require.NoError(t, mgr.Init(ctx))
	defer mgr.Shutdown(ctx)

	mgr.register = func(db *sql.DB, b *registry.Builder) error {
		return b.Register("order", document.NewRowProvider(db, "users", "username", nil))
	}
	require.NoError(t, mgr.Reload())

	_, err := mgr.Registry().Resolve("user")
	assert.Error(t, err)
	_, err = mgr.Registry().Resolve("order")
	assert.NoError(t, err)
}
