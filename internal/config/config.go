package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	API     APIConfig     `yaml:"api"`
	NATS    NATSConfig    `yaml:"nats"`
}

type StorageConfig struct {
	// Path is the SQLite database file backing the gateway.
	Path string `yaml:"path"`

	// DatabaseName is the logical database name reported to peers.
	DatabaseName string `yaml:"database_name"`
}

type APIConfig struct {
	Port int `yaml:"port"`
}

type NATSConfig struct {
	// URL of the NATS server for change fan-out. Empty disables publishing.
	URL string `yaml:"url"`
}

// LoadConfig builds the configuration from, in increasing precedence:
// defaults, config/config.yml, config/config.local.yml, environment
// variables.
func LoadConfig() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			Path:         "sofa.db",
			DatabaseName: "db",
		},
		API: APIConfig{
			Port: 8080,
		},
	}

	for _, path := range []string{"config/config.yml", "config/config.local.yml"} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
		}
	}

	if v := os.Getenv("SOFA_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Storage.DatabaseName = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}

	return cfg
}
