// Package config loads the familytree configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AndrivA89/family-graph/internal/logging"
)

const (
	DriverBadger = "badger"
	DriverNeo4j  = "neo4j"
)

type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Badger BadgerConfig `yaml:"badger"`
	Neo4j  Neo4jConfig  `yaml:"neo4j"`
	HTTP   HTTPConfig   `yaml:"http"`
	Log    LogConfig    `yaml:"log"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	// BatchLimit caps cascade chunks below the driver's own batch limit.
	BatchLimit int `yaml:"batch_limit"`
}

type BadgerConfig struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func DefaultConfig() Config {
	return Config{
		Store:  StoreConfig{Driver: DriverBadger, BatchLimit: 500},
		Badger: BadgerConfig{Path: "data/familygraph", SyncWrites: true},
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read the config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse the config file %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for key, dst := range map[string]*string{
		"FAMILYGRAPH_STORE_DRIVER":   &c.Store.Driver,
		"FAMILYGRAPH_NEO4J_URI":      &c.Neo4j.URI,
		"FAMILYGRAPH_NEO4J_PASSWORD": &c.Neo4j.Password,
		"FAMILYGRAPH_HTTP_ADDR":      &c.HTTP.Addr,
		"FAMILYGRAPH_LOG_LEVEL":      &c.Log.Level,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
}

func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Store.Driver) {
	case DriverBadger:
		if !c.Badger.InMemory && c.Badger.Path == "" {
			errs = append(errs, errors.New("badger.path is required unless badger.in_memory is set"))
		}
	case DriverNeo4j:
		if c.Neo4j.URI == "" {
			errs = append(errs, errors.New("neo4j.uri is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", DriverBadger, DriverNeo4j, c.Store.Driver))
	}
	if c.Store.BatchLimit <= 0 {
		errs = append(errs, fmt.Errorf("store.batch_limit must be positive, got %d", c.Store.BatchLimit))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
