// Package config loads and validates the labelassist configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/openannotate/labelassist/internal/assist"
	"github.com/openannotate/labelassist/internal/assist/scheduler"
	"github.com/openannotate/labelassist/internal/assist/store"
)

// Common errors
var (
	ErrMissingCachePath = errors.New("disk_cache.path is required when disk_cache.enabled is true")
	ErrMissingRedisAddr = errors.New("redis.addr is required when store is \"redis\"")
)

// Store backends
const (
	StoreDisk  = "disk"
	StoreRedis = "redis"
)

type DiskCacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PrefetchConfig struct {
	WarmUpPageCount int `yaml:"warm_up_page_count"`
	OnNext          int `yaml:"on_next"`
	OnPrev          int `yaml:"on_prev"`
}

type IncludeConfig struct {
	All            bool                     `yaml:"all"`
	SpecialInclude map[int]map[int][]string `yaml:"special_include"`
}

type BackendConfig struct {
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"`
}

type ProjectConfig struct {
	ItemCount int                `yaml:"item_count"`
	Fields    []assist.FieldSpec `yaml:"fields"`
}

// Config is the full recognized configuration surface.
type Config struct {
	Enabled   bool            `yaml:"enabled"`
	Workers   int             `yaml:"workers"`
	Store     string          `yaml:"store"`
	DiskCache DiskCacheConfig `yaml:"disk_cache"`
	Redis     RedisConfig     `yaml:"redis"`
	Prefetch  PrefetchConfig  `yaml:"prefetch"`
	Include   IncludeConfig   `yaml:"include"`
	Backend   BackendConfig   `yaml:"backend"`
	Project   ProjectConfig   `yaml:"project"`
}

// Load reads the YAML config at path, applies environment overrides, fills
// defaults, and validates. Configuration errors are fatal by design: a
// misconfigured cache must abort startup, not limp along.
func Load(path string) (*Config, error) {
	// A .env file is optional; plain environment variables work the same.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{Enabled: true}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if url := os.Getenv("LABELASSIST_BACKEND_URL"); url != "" {
		cfg.Backend.URL = url
	}
	if key := os.Getenv("LABELASSIST_BACKEND_KEY"); key != "" {
		cfg.Backend.APIKey = key
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = scheduler.DefaultWorkers
	}
	if c.Store == "" {
		c.Store = StoreDisk
	}
}

// Validate enforces the invariants that must hold before anything is built.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreDisk:
		if c.DiskCache.Enabled && c.DiskCache.Path == "" {
			return ErrMissingCachePath
		}
	case StoreRedis:
		if c.DiskCache.Enabled && c.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return fmt.Errorf("%w: %q", assist.ErrUnknownBackend, c.Store)
	}

	for item, fields := range c.Include.SpecialInclude {
		if item < 0 {
			return fmt.Errorf("include.special_include: negative item index %d", item)
		}
		for field := range fields {
			if field < 0 {
				return fmt.Errorf("include.special_include: negative field index %d for item %d", field, item)
			}
		}
	}
	return nil
}

// BuildStore constructs the configured store backend. With persistence
// disabled every backend degrades to the in-memory no-op store.
func (c *Config) BuildStore() (assist.Store, error) {
	if !c.DiskCache.Enabled {
		return store.NewNopStore(), nil
	}

	switch c.Store {
	case StoreDisk:
		return store.NewDiskStore(c.DiskCache.Path)
	case StoreRedis:
		return store.NewRedisStore(store.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
	default:
		return nil, fmt.Errorf("%w: %q", assist.ErrUnknownBackend, c.Store)
	}
}
