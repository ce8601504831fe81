package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config to be non-nil")
	}

	// Check defaults
	if cfg.Database.Driver != "pgx" {
		t.Errorf("expected default driver 'pgx', got %s", cfg.Database.Driver)
	}

	if cfg.Cache.Backend != "memory" {
		t.Errorf("expected default cache backend 'memory', got %s", cfg.Cache.Backend)
	}

	if cfg.Cache.Prefix != "schemasync:" {
		t.Errorf("expected default cache prefix 'schemasync:', got %s", cfg.Cache.Prefix)
	}

	if !cfg.Sync.SoftDelete {
		t.Error("expected soft delete to be enabled by default")
	}

	if cfg.Sync.ManageDeletions {
		t.Error("expected manage_deletions to be disabled by default")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Log.Level)
	}

	if cfg.Catalog.Path != "catalog.yaml" {
		t.Errorf("expected default catalog path 'catalog.yaml', got %s", cfg.Catalog.Path)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	// Create temporary directory with config file
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	// Write config file
	configContent := `
database:
  driver: sqlite3
  url: file:weather.db
cache:
  backend: redis
  redis:
    addr: cache:6379
    db: 2
sync:
  manage_deletions: true
  soft_delete: false
log:
  level: debug
  development: true
`
	os.WriteFile("schemasync.yaml", []byte(configContent), 0644)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("expected driver 'sqlite3', got %s", cfg.Database.Driver)
	}

	if cfg.Database.URL != "file:weather.db" {
		t.Errorf("expected database URL, got %s", cfg.Database.URL)
	}

	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis.Addr != "cache:6379" || cfg.Cache.Redis.DB != 2 {
		t.Errorf("unexpected redis config: %+v", cfg.Cache)
	}

	if !cfg.Sync.ManageDeletions || cfg.Sync.SoftDelete {
		t.Errorf("unexpected sync config: %+v", cfg.Sync)
	}

	if cfg.Log.Level != "debug" || !cfg.Log.Development {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	os.WriteFile(path, []byte("catalog:\n  path: defs/weather.yaml\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.Catalog.Path != "defs/weather.yaml" {
		t.Errorf("expected catalog path from file, got %s", cfg.Catalog.Path)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing explicit config file, got nil")
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	t.Setenv("SCHEMASYNC_DATABASE_URL", "postgresql://env/testdb")
	t.Setenv("SCHEMASYNC_SYNC_SOFT_DELETE", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Database.URL != "postgresql://env/testdb" {
		t.Errorf("expected database URL from environment, got %s", cfg.Database.URL)
	}

	if cfg.Sync.SoftDelete {
		t.Error("expected soft delete disabled from environment")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown driver", "database:\n  driver: mysql\n"},
		{"unknown cache backend", "cache:\n  backend: memcached\n"},
		{"redis without address", "cache:\n  backend: redis\n  redis:\n    addr: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "schemasync.yaml")
			os.WriteFile(path, []byte(tt.content), 0644)

			if _, err := Load(path); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
