package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Ensure no env vars interfere
	os.Unsetenv("SOFA_DB_PATH")
	os.Unsetenv("DB_NAME")
	os.Unsetenv("API_PORT")
	os.Unsetenv("NATS_URL")

	cfg := LoadConfig()

	assert.Equal(t, "sofa.db", cfg.Storage.Path)
	assert.Equal(t, "db", cfg.Storage.DatabaseName)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "", cfg.NATS.URL)
}

func TestLoadConfig_EnvVars(t *testing.T) {
	os.Setenv("SOFA_DB_PATH", "/tmp/test.db")
	os.Setenv("DB_NAME", "testdb")
	os.Setenv("API_PORT", "9090")
	os.Setenv("NATS_URL", "nats://test:4222")
	defer func() {
		os.Unsetenv("SOFA_DB_PATH")
		os.Unsetenv("DB_NAME")
		os.Unsetenv("API_PORT")
		os.Unsetenv("NATS_URL")
	}()

	cfg := LoadConfig()

	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, "testdb", cfg.Storage.DatabaseName)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "nats://test:4222", cfg.NATS.URL)
}

func TestLoadConfig_FileOverride(t *testing.T) {
	// Create config directory
	err := os.Mkdir("config", 0755)
	require.NoError(t, err)
	defer os.RemoveAll("config")

	// Create a temporary config.yml in the config directory
	configContent := []byte(`
storage:
  path: "/data/file.db"
  database_name: "filedb"
api:
  port: 7070
`)
	err = os.WriteFile("config/config.yml", configContent, 0644)
	require.NoError(t, err)

	cfg := LoadConfig()

	assert.Equal(t, "/data/file.db", cfg.Storage.Path)
	assert.Equal(t, "filedb", cfg.Storage.DatabaseName)
	assert.Equal(t, 7070, cfg.API.Port)
}

func TestLoadConfig_LocalFileOverride(t *testing.T) {
	// Create config directory
	err := os.Mkdir("config", 0755)
	require.NoError(t, err)
	defer os.RemoveAll("config")

	// Create config.yml
	err = os.WriteFile("config/config.yml", []byte(`
storage:
  path: "/data/file.db"
  database_name: "filedb"
api:
  port: 7070
`), 0644)
	require.NoError(t, err)

	// Create config.local.yml
	err = os.WriteFile("config/config.local.yml", []byte(`
storage:
  path: "/data/local.db"
`), 0644)
	require.NoError(t, err)

	cfg := LoadConfig()

	assert.Equal(t, "/data/local.db", cfg.Storage.Path) // Overridden
	assert.Equal(t, "filedb", cfg.Storage.DatabaseName) // Inherited from config.yml
	assert.Equal(t, 7070, cfg.API.Port)                 // Inherited from config.yml
}

func TestLoadConfig_EnvOverrideFile(t *testing.T) {
	// Create config directory
	err := os.Mkdir("config", 0755)
	require.NoError(t, err)
	defer os.RemoveAll("config")

	// Create config.yml
	err = os.WriteFile("config/config.yml", []byte(`
storage:
  path: "/data/file.db"
`), 0644)
	require.NoError(t, err)

	os.Setenv("SOFA_DB_PATH", "/data/env.db")
	defer os.Unsetenv("SOFA_DB_PATH")

	cfg := LoadConfig()

	assert.Equal(t, "/data/env.db", cfg.Storage.Path)
}
