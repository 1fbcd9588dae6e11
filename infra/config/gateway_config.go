package config

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

// Keys of the persisted gateway configuration.
const (
	KeyClientID            = "clientId"
	KeyClientSecret        = "clientSecret"
	KeyExperienceProfileID = "experienceProfileId"
	KeyEnvironment         = "environment"
)

// gatewayConfigName is the single row the hosted-checkout gateway uses; the
// storage schema allows named configs so a future second environment does not
// need a migration.
const gatewayConfigName = "gateway"

// GatewayConfig manages the gateway credentials and environment. Values set
// at runtime are persisted to SQLite and win over the environment variables
// they were bootstrapped from.
type GatewayConfig struct {
	values  map[string]string
	storage *SQLiteStorage
	mu      sync.RWMutex
}

// NewGatewayConfig creates the gateway configuration, backed by SQLite when
// the storage can be opened and memory-only otherwise.
func NewGatewayConfig() *GatewayConfig {
	c := &GatewayConfig{
		values: make(map[string]string),
	}

	storage, err := NewSQLiteStorage(GetAppConfig().ConfigDBPath)
	if err != nil {
		log.Printf("Warning: Failed to initialize SQLite storage (%v), falling back to memory-only mode", err)
		return c
	}
	c.storage = storage

	if err := c.loadFromStorage(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Printf("Warning: Failed to load gateway config from SQLite: %v", err)
	}
	return c
}

// NewMemoryGatewayConfig creates a gateway configuration without persistent
// storage. Intended for tests and ephemeral deployments.
func NewMemoryGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		values: make(map[string]string),
	}
}

func (c *GatewayConfig) loadFromStorage() error {
	stored, err := c.storage.LoadGatewayConfig(gatewayConfigName)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range stored {
		c.values[k] = v
	}
	return nil
}

// LoadFromEnv fills any values not already present from the process
// environment. Stored values win over env.
func (c *GatewayConfig) LoadFromEnv() {
	cfg := GetAppConfig()

	c.mu.Lock()
	defer c.mu.Unlock()
	setIfAbsent := func(key, value string) {
		if c.values[key] == "" && value != "" {
			c.values[key] = value
		}
	}
	setIfAbsent(KeyClientID, cfg.GatewayClientID)
	setIfAbsent(KeyClientSecret, cfg.GatewayClientSecret)
	setIfAbsent(KeyExperienceProfileID, cfg.GatewayExperienceProfileID)
	setIfAbsent(KeyEnvironment, cfg.GatewayEnvironment)
}

// SetConfig replaces the gateway configuration and persists it.
func (c *GatewayConfig) SetConfig(values map[string]string) error {
	if len(values) == 0 {
		return fmt.Errorf("config cannot be empty")
	}
	for key := range values {
		switch key {
		case KeyClientID, KeyClientSecret, KeyExperienceProfileID, KeyEnvironment:
		default:
			return fmt.Errorf("unknown gateway config key %q", key)
		}
	}
	if env, ok := values[KeyEnvironment]; ok {
		env = strings.ToLower(env)
		if env != "sandbox" && env != "production" {
			return fmt.Errorf("environment must be 'sandbox' or 'production', got %q", values[KeyEnvironment])
		}
		values[KeyEnvironment] = env
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage != nil {
		merged := make(map[string]string, len(c.values)+len(values))
		for k, v := range c.values {
			merged[k] = v
		}
		for k, v := range values {
			merged[k] = v
		}
		if err := c.storage.SaveGatewayConfig(gatewayConfigName, merged); err != nil {
			return fmt.Errorf("failed to persist gateway config: %w", err)
		}
	}

	for k, v := range values {
		c.values[k] = v
	}
	return nil
}

// Get returns a single configuration value.
func (c *GatewayConfig) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// Environment returns the configured gateway environment, defaulting to
// sandbox.
func (c *GatewayConfig) Environment() string {
	if env := c.Get(KeyEnvironment); env != "" {
		return env
	}
	return "sandbox"
}

// IsConfigured reports whether both credential values are present.
func (c *GatewayConfig) IsConfigured() bool {
	return c.Get(KeyClientID) != "" && c.Get(KeyClientSecret) != ""
}

// BaseURL returns the service's externally visible base URL used to build
// the default return and cancel callback URLs.
func (c *GatewayConfig) BaseURL() string {
	return strings.TrimRight(GetAppConfig().BaseURL, "/")
}

// Close releases the underlying storage.
func (c *GatewayConfig) Close() error {
	if c.storage == nil {
		return nil
	}
	return c.storage.Close()
}
