package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huelip/huelip/internal/vault"
)

func writeConf(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	if yaml == "" {
		return root
	}
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(writeConf(t, ""))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTP.ListenAddr != ":8000" || cfg.HTTP.CORSOrigin != "*" {
		t.Fatalf("http defaults = %+v", cfg.HTTP)
	}
	if cfg.Client.APIURL != "http://localhost:8000/api" || cfg.Client.Timeout() != 30*time.Second {
		t.Fatalf("client defaults = %+v", cfg.Client)
	}
	if cfg.Session.TTL != 168*time.Hour || cfg.Session.BcryptCost != 10 {
		t.Fatalf("session defaults = %+v", cfg.Session)
	}
	if Get() != cfg {
		t.Fatal("Get does not return the loaded config")
	}
	// No DSN: the CLI is fine, the server is not.
	if err := cfg.ValidateServer(); err == nil {
		t.Fatal("server validation passed without a DSN")
	}
}

func TestYAMLAndEnvOverlay(t *testing.T) {
	root := writeConf(t, `
http:
  listen_addr: ":9000"
database:
  dsn: "huelip:%s@tcp(db:3306)/huelip?parseTime=true"
  password: "pw"
session:
  ttl: 2h
forms:
  dirs: ["/etc/huelip/forms"]
`)
	t.Setenv("HUELIP_HTTP__LISTEN_ADDR", ":9100")
	t.Setenv("HUELIP_CLIENT__TIMEOUT_MS", "1500")
	t.Setenv("HUELIP_REDIS__ADDR", "redis:6379")

	cfg, err := LoadFrom(root)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTP.ListenAddr != ":9100" {
		t.Fatalf("env did not override yaml: %q", cfg.HTTP.ListenAddr)
	}
	if cfg.Client.Timeout() != 1500*time.Millisecond {
		t.Fatalf("timeout = %v", cfg.Client.Timeout())
	}
	if cfg.Session.TTL != 2*time.Hour || cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("session/redis = %+v %+v", cfg.Session, cfg.Redis)
	}
	if len(cfg.Forms.Dirs) != 1 || cfg.Paths.Root != root {
		t.Fatalf("forms/paths = %+v %+v", cfg.Forms, cfg.Paths)
	}
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("ValidateServer: %v", err)
	}
}

func TestInvalidClientSection(t *testing.T) {
	root := writeConf(t, "log:\n  level: loud\n")
	if _, err := LoadFrom(root); err == nil {
		t.Fatal("bad log level accepted")
	}
}

func TestNonPositiveTimeoutFallsBack(t *testing.T) {
	if got := (Client{TimeoutMS: -5}).Timeout(); got != DefaultClientTimeout {
		t.Fatalf("timeout = %v", got)
	}
}

type stubKV map[string]string

func (s stubKV) GetKV(_ context.Context, p, key string, _ time.Duration) (string, error) {
	if v, ok := s[p+"#"+key]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestVaultReferences(t *testing.T) {
	orig := newVault
	t.Cleanup(func() { newVault = orig })
	newVault = func(context.Context) (vault.KV, error) {
		return stubKV{"secret/huelip/db#password": "from-vault"}, nil
	}

	root := writeConf(t, `
database:
  dsn: "huelip:%s@tcp(db)/huelip"
  password: "vault:secret/huelip/db#password"
`)
	cfg, err := LoadFrom(root)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Database.Password != "from-vault" {
		t.Fatalf("password = %q", cfg.Database.Password)
	}

	bad := writeConf(t, `
database:
  password: "vault:secret/huelip/missing#password"
`)
	if _, err := LoadFrom(bad); err == nil {
		t.Fatal("unresolvable reference accepted")
	}
}

func TestEnvKey(t *testing.T) {
	if got := envKey("HUELIP_SESSION__BCRYPT_COST"); got != "session.bcrypt_cost" {
		t.Fatalf("envKey = %q", got)
	}
}
