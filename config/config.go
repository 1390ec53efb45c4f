package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds
const (
	SourceCSV   = "csv"
	SourceXLSX  = "xlsx"
	SourceRedis = "redis"
)

// Config holds all rollcall server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Source  SourceConfig  `yaml:"source"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Listen          string `yaml:"listen"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	Mode            string `yaml:"mode"` // gin mode: debug, release, test
}

// SourceConfig selects where the roster is read from at startup.
type SourceConfig struct {
	Kind  string `yaml:"kind"`  // csv, xlsx, redis
	Path  string `yaml:"path"`  // csv and xlsx; relative paths resolve against the executable directory
	Sheet string `yaml:"sheet"` // xlsx only
}

// RedisConfig configures the redis source.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	ListKey     string `yaml:"list_key"`
	DialTimeout string `yaml:"dial_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			ShutdownTimeout: "5s",
			Mode:            "release",
		},
		Source: SourceConfig{
			Kind: SourceCSV,
			Path: filepath.Join("data", "data.csv"),
		},
		Redis: RedisConfig{
			Addr:        "127.0.0.1:6379",
			ListKey:     "roster:students",
			DialTimeout: "5s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from path. A missing file yields the defaults;
// environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("ROLLCALL_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("ROLLCALL_SOURCE"); v != "" {
		c.Source.Kind = v
	}
	if v := os.Getenv("ROLLCALL_DATA_PATH"); v != "" {
		c.Source.Path = v
	}
	if v := os.Getenv("ROLLCALL_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("ROLLCALL_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("ROLLCALL_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ROLLCALL_REDIS_DB: invalid database number %q: %w", v, err)
		}
		c.Redis.DB = db
	}
	if v := os.Getenv("ROLLCALL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode: unknown mode %q", c.Server.Mode)
	}

	switch c.Source.Kind {
	case SourceCSV, SourceXLSX:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for %s sources", c.Source.Kind)
		}
	case SourceRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for redis sources")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("redis.db: must not be negative, got %d", c.Redis.DB)
		}
		if _, err := time.ParseDuration(c.Redis.DialTimeout); err != nil {
			return fmt.Errorf("redis.dial_timeout: %w", err)
		}
	default:
		return fmt.Errorf("source.kind: unknown kind %q", c.Source.Kind)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}
	return nil
}

// GetShutdownTimeout returns the graceful shutdown timeout.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetRedisDialTimeout returns the redis dial timeout.
func (c *Config) GetRedisDialTimeout() time.Duration {
	d, err := time.ParseDuration(c.Redis.DialTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// ResolveDataPath returns Source.Path made absolute against baseDir, the
// directory the program is installed in. Absolute paths are returned as is.
func (c *Config) ResolveDataPath(baseDir string) string {
	if filepath.IsAbs(c.Source.Path) {
		return c.Source.Path
	}
	return filepath.Join(baseDir, c.Source.Path)
}

// ExecutableDir returns the directory holding the running binary, with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
