package backend

import (
	"context"

	"fintrack/internal/storage"
)

// CleanupFunc releases resources held by a store.
type CleanupFunc func() error

// StoreResult contains the token store and optional cleanup function
type StoreResult struct {
	Store   storage.TokenStore
	Cleanup CleanupFunc
}

// Factory creates token stores based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
}

// Config holds configuration for token store creation
type Config struct {
	Type StoreType

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisAddr      string
	RedisPassword  string
	RedisKeyPrefix string
}

// StoreType names a credential persistence backend
type StoreType string

const (
	MemoryStore StoreType = "memory"
	SQLiteStore StoreType = "sqlite"
	RedisStore  StoreType = "redis"
)

func (st StoreType) String() string {
	return string(st)
}

// IsValid returns true if the store type is known
func (st StoreType) IsValid() bool {
	switch st {
	case MemoryStore, SQLiteStore, RedisStore:
		return true
	default:
		return false
	}
}
