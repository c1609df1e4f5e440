// Package config loads the vantage configuration from a TOML file with
// environment overrides for deployment-specific addresses.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where Load looks when no explicit path is given.
const DefaultPath = "vantage.toml"

// Config is the full server/storage configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Mongo  MongoConfig  `toml:"mongo"`
	Redis  RedisConfig  `toml:"redis"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     duration `toml:"read_timeout"`
	WriteTimeout    duration `toml:"write_timeout"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// MongoConfig configures the workspace store. An empty URI selects the
// in-memory store.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// RedisConfig configures the verdict cache. An empty Addr disables it.
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	VerdictTTL duration `toml:"verdict_ttl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// duration lets TOML carry values like "30s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     duration(15 * time.Second),
			WriteTimeout:    duration(30 * time.Second),
			ShutdownTimeout: duration(10 * time.Second),
		},
		Mongo: MongoConfig{
			Database: "vantage",
		},
		Redis: RedisConfig{
			VerdictTTL: duration(time.Hour),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path and applies environment overrides.
// With an empty path, DefaultPath is used if it exists; otherwise the
// defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !explicit && os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return Config{}, err
	}
	return applyEnv(cfg), nil
}

// applyEnv lets deployments override addresses without editing the file.
func applyEnv(cfg Config) Config {
	if v := os.Getenv("VANTAGE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("VANTAGE_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("VANTAGE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	return cfg
}
