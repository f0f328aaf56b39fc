// Package config loads the dashboard settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	// EnvDB overrides the database path.
	EnvDB = "MISSION_CONTROL_DB"
	// EnvConfig overrides the config file path.
	EnvConfig = "MISSION_CONTROL_CONFIG"

	appDir = ".mission-control"
)

// Duration is a time.Duration written as a string such as "300ms" in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Search   SearchConfig   `toml:"search"`
	Logging  LoggingConfig  `toml:"logging"`
	Server   ServerConfig   `toml:"server"`
	Indexer  IndexerConfig  `toml:"indexer"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type SearchConfig struct {
	Limit       int      `toml:"limit"`
	RecentLimit int      `toml:"recent_limit"`
	Debounce    Duration `toml:"debounce"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text | logfmt | json
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type IndexerConfig struct {
	Roots        []string `toml:"roots"`
	Include      []string `toml:"include"`
	Ignore       []string `toml:"ignore"`
	MaxFileBytes int64    `toml:"max_file_bytes"`
	Debounce     Duration `toml:"debounce"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error", "fatal"}
	logFormats = []string{"text", "logfmt", "json"}
)

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Search: SearchConfig{
			Limit:       20,
			RecentLimit: 50,
			Debounce:    Duration(300 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Indexer: IndexerConfig{
			Include:      []string{"**/*.md", "**/*.markdown", "**/*.txt", "**/*.go", "**/*.ts", "**/*.json", "**/*.toml", "**/*.yaml", "**/*.yml"},
			Ignore:       []string{"**/.git/**", "**/node_modules/**", "**/vendor/**"},
			MaxFileBytes: 1 << 20,
			Debounce:     Duration(500 * time.Millisecond),
		},
	}
}

// Load reads path over defaults. A missing or empty file yields defaults.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	if c.Search.Limit <= 0 {
		return fmt.Errorf("search.limit must be > 0, got %d", c.Search.Limit)
	}
	if c.Search.RecentLimit <= 0 {
		return fmt.Errorf("search.recent_limit must be > 0, got %d", c.Search.RecentLimit)
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("search.debounce must be >= 0, got %s", c.Search.Debounce.Std())
	}

	if !slices.Contains(logLevels, strings.ToLower(strings.TrimSpace(c.Logging.Level))) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if !slices.Contains(logFormats, strings.ToLower(strings.TrimSpace(c.Logging.Format))) {
		return fmt.Errorf("invalid logging.format: %q", c.Logging.Format)
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}

	for i, p := range c.Indexer.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("indexer.include[%d] is not a valid glob: %q", i, p)
		}
	}
	for i, p := range c.Indexer.Ignore {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("indexer.ignore[%d] is not a valid glob: %q", i, p)
		}
	}
	if c.Indexer.MaxFileBytes < 0 {
		return fmt.Errorf("indexer.max_file_bytes must be >= 0, got %d", c.Indexer.MaxFileBytes)
	}
	if c.Indexer.Debounce < 0 {
		return fmt.Errorf("indexer.debounce must be >= 0, got %s", c.Indexer.Debounce.Std())
	}

	return nil
}

// HomeDir returns ~/.mission-control.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, appDir), nil
}

// DefaultDBPath returns ~/.mission-control/dashboard.db.
func DefaultDBPath() string {
	dir, err := HomeDir()
	if err != nil {
		return filepath.Join(appDir, "dashboard.db")
	}
	return filepath.Join(dir, "dashboard.db")
}

// ResolvePath picks the config file: flag, then $MISSION_CONTROL_CONFIG,
// then ~/.mission-control/config.toml.
func ResolvePath(flag string) string {
	if p := strings.TrimSpace(flag); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p
	}
	dir, err := HomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

// Resolve loads the config file and applies the database path precedence:
// flag, then $MISSION_CONTROL_DB, then the file, then the default path.
func Resolve(configFlag, dbFlag string) (Config, error) {
	cfg, err := Load(ResolvePath(configFlag), Default(DefaultDBPath()))
	if err != nil {
		return Config{}, err
	}
	if p := strings.TrimSpace(os.Getenv(EnvDB)); p != "" {
		cfg.Database.Path = p
	}
	if p := strings.TrimSpace(dbFlag); p != "" {
		cfg.Database.Path = p
	}
	return cfg, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
