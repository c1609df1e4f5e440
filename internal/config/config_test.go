package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Redis.VerdictTTL.Std() != time.Hour {
		t.Errorf("VerdictTTL = %v", cfg.Redis.VerdictTTL.Std())
	}
	if cfg.Mongo.Database != "vantage" {
		t.Errorf("Database = %q", cfg.Mongo.Database)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vantage.toml")
	content := `
[server]
addr = ":9090"
read_timeout = "5s"

[mongo]
uri = "mongodb://localhost:27017"

[redis]
addr = "localhost:6379"
verdict_ttl = "10m"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout.Std() != 5*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.Server.ReadTimeout.Std())
	}
	if cfg.Redis.VerdictTTL.Std() != 10*time.Minute {
		t.Errorf("VerdictTTL = %v", cfg.Redis.VerdictTTL.Std())
	}
	// unset keys keep their defaults
	if cfg.Server.WriteTimeout.Std() != 30*time.Second {
		t.Errorf("WriteTimeout = %v", cfg.Server.WriteTimeout.Std())
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("explicit missing file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VANTAGE_ADDR", ":7070")
	t.Setenv("VANTAGE_MONGO_URI", "mongodb://db:27017")
	t.Setenv("VANTAGE_REDIS_ADDR", "cache:6379")

	// run from an empty directory so no vantage.toml is picked up
	cwd, _ := os.Getwd()
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer func() { _ = os.Chdir(cwd) }()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Mongo.URI != "mongodb://db:27017" {
		t.Errorf("URI = %q", cfg.Mongo.URI)
	}
	if cfg.Redis.Addr != "cache:6379" {
		t.Errorf("Redis Addr = %q", cfg.Redis.Addr)
	}
}
