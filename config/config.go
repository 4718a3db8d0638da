// Package config loads the container-facing settings from the process
// environment: the application environment consulted by interface
// bindings, and the definition-store backend selection.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/km-arc/go-injector/cache"
	"github.com/km-arc/go-injector/container"
)

// Config is the central typed configuration struct.
type Config struct {
	App   AppConfig
	Cache CacheConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
}

// CacheConfig selects and parameterizes the definition store.
type CacheConfig struct {
	Driver   string // memory | file | redis | sqlite
	Dir      string // file driver: cache directory
	Addr     string // redis driver: host:port
	Password string // redis driver
	Path     string // sqlite driver: database file
	Table    string // sqlite driver: table name, optional
}

// Load reads .env (if present) and populates a Config from environment
// variables. Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "go-injector"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
		},
		Cache: CacheConfig{
			Driver:   env("CACHE_DRIVER", "memory"),
			Dir:      env("CACHE_DIR", "./storage/cache"),
			Addr:     env("CACHE_REDIS_ADDR", "127.0.0.1:6379"),
			Password: env("CACHE_REDIS_PASSWORD", ""),
			Path:     env("CACHE_SQLITE_PATH", "./storage/cache.db"),
			Table:    env("CACHE_SQLITE_TABLE", ""),
		},
	}
}

// Store builds the definition store named by Cache.Driver.
func (c *Config) Store(ctx context.Context) (container.Store, error) {
	switch c.Cache.Driver {
	case "", "memory":
		return cache.NewMemory(), nil
	case "file":
		return cache.NewFile(c.Cache.Dir)
	case "redis":
		return cache.NewRedis(ctx, c.Cache.Addr, c.Cache.Password, "injector:")
	case "sqlite":
		return cache.NewSQLite(ctx, c.Cache.Path, c.Cache.Table)
	default:
		return nil, fmt.Errorf("config: unknown cache driver %q", c.Cache.Driver)
	}
}

// EnvAttribute returns the resolver backing `inject:"env:VAR"` tags: it
// reads VAR from the process environment and lets the container cast the
// string to the field's type. Unset variables resolve to "".
func EnvAttribute() container.AttributeResolver {
	return container.AttributeResolverFunc(func(ctx container.AttributeContext) (any, error) {
		return os.Getenv(ctx.Arg), nil
	})
}

// Apply wires a loaded Config into a container: the environment for
// interface bindings and the env attribute resolver.
func (c *Config) Apply(ctr *container.Container) error {
	if err := ctr.SetEnvironment(c.App.Env); err != nil {
		return err
	}
	return ctr.RegisterAttribute("env", EnvAttribute())
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
