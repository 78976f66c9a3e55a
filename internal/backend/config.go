package backend

import (
	"fmt"
	"strings"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to store config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	storeType := StoreType(appConfig.TokenStore)
	if !storeType.IsValid() {
		return Config{}, fmt.Errorf("invalid token store in config: %s", appConfig.TokenStore)
	}

	return Config{
		Type:           storeType,
		SQLiteDBPath:   appConfig.SQLiteDBPath,
		RedisAddr:      appConfig.RedisAddr,
		RedisPassword:  appConfig.RedisPassword,
		RedisKeyPrefix: appConfig.RedisKeyPrefix,
	}, nil
}

// Validate checks that the selected store has what it needs
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid token store %q: must be one of %s", c.Type, strings.Join(GetStoreTypeStrings(), ", "))
	}

	switch c.Type {
	case SQLiteStore:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite token store")
		}
	case RedisStore:
		if c.RedisAddr == "" {
			return fmt.Errorf("Redis address is required for redis token store")
		}
	case MemoryStore:
	}

	return nil
}

// GetStoreTypeStrings returns all valid store type strings
func GetStoreTypeStrings() []string {
	types := []StoreType{MemoryStore, SQLiteStore, RedisStore}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
