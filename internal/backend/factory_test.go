package backend

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

func TestFromAppConfig(t *testing.T) {
	app := config.Defaults()
	app.TokenStore = "redis"
	app.RedisAddr = "cache:6379"

	c, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if c.Type != RedisStore || c.RedisAddr != "cache:6379" || c.RedisKeyPrefix != "fintrack:" {
		t.Fatalf("unexpected config: %+v", c)
	}

	app.TokenStore = "cookie"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for unknown store")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{Type: SQLiteStore}).Validate(); err == nil {
		t.Fatal("sqlite without path should fail")
	}
	if err := (Config{Type: RedisStore}).Validate(); err == nil {
		t.Fatal("redis without address should fail")
	}
	if err := (Config{Type: MemoryStore}).Validate(); err != nil {
		t.Fatalf("memory: %v", err)
	}
}

func TestCreateStore(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	res, err := f.CreateStore(ctx, Config{Type: MemoryStore})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := res.Store.(*memory.Store); !ok || res.Cleanup != nil {
		t.Fatalf("unexpected memory result: %#v", res)
	}

	path := filepath.Join(t.TempDir(), "fintrack.db")
	res, err = f.CreateStore(ctx, Config{Type: SQLiteStore, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if _, ok := res.Store.(*storage.SQLiteStore); !ok {
		t.Fatalf("expected SQLite store, got %T", res.Store)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if got := GetStoreTypeStrings(); len(got) != 3 {
		t.Fatalf("unexpected store types: %v", got)
	}
}
