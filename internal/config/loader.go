// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from four layers (highest
precedence last):

  1. Built-in defaults (see `defaults`).
  2. `conf/global.yaml`, when present.
  3. Optional `conf/.env` file, exported into the process environment.
  4. Environment variables prefixed `HUELIP_`, where `__` maps to “.”
     (e.g., `HUELIP_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into typed structs, Vault
references are resolved, the shared sections are validated, and the
result is cached in an `atomic.Pointer` for lock-free reads.  `Reload()`
calls `Load()` again and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read.
  • ERROR spans: YAML parse, env overlay, unmarshal, validation failures.
  • INFO span: final “config loaded” with key highlights.
  • Logs use the global sugared logger (`zap.S()`) so early boot issues
    surface before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/api` work from any sub-directory.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/huelip/huelip/internal/vault"
)

const envPrefix = "HUELIP_"

var current atomic.Pointer[Config]

// defaults seeds every key that has a sensible value out of the box.
var defaults = map[string]any{
	"http.listen_addr":        ":8000",
	"http.cors_origin":        "*",
	"http.force_https":        false,
	"redis.db":                0,
	"redis.key_prefix":        "huelip:session:",
	"session.ttl":             "168h",
	"session.bcrypt_cost":     10,
	"session.memory_capacity": 10000,
	"client.api_url":          "http://localhost:8000/api",
	"client.timeout_ms":       30000,
	"log.level":               "info",
}

// newVault is swapped in tests.
var newVault = func(ctx context.Context) (vault.KV, error) {
	return vault.New(ctx, zap.S())
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves HUELIP_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("HUELIP_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load discovers the root directory and loads from it.
func Load() (*Config, error) {
	return LoadFrom(rootDir())
}

// LoadFrom reads defaults, YAML, .env, and env overrides under root,
// validates, and caches Config.
func LoadFrom(root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, err
		}
	}

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if _, err := os.Stat(yamlPath); errors.Is(err, fs.ErrNotExist) {
		zap.S().Debugw("config yaml absent, using defaults", "file", yamlPath)
	} else if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	} else {
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// .env (optional, no error if missing); never overrides real env vars.
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	// Env overrides: HUELIP_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}
	cfg.Paths.Root = root

	if secrets := cfg.secrets(); vault.HasRefs(secrets...) {
		kv, err := newVault(context.Background())
		if err != nil {
			return nil, fmt.Errorf("config: vault: %w", err)
		}
		if err := vault.ResolveAll(context.Background(), kv, secrets...); err != nil {
			zap.S().Errorw("config vault resolution failed", "err", err)
			return nil, err
		}
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"api_url", cfg.Client.APIURL,
		"redis", cfg.Redis.Addr != "",
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps HUELIP_SESSION__BCRYPT_COST to session.bcrypt_cost.
func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
