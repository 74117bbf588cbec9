// internal/config/model.go
//
// Typed configuration model for Huelip.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from four overlay layers:
//
//   • built-in defaults                       – see defaults below,
//   • optional `conf/global.yaml`             – primary static file,
//   • optional `.env`                         – dotenv values,
//   • `HUELIP_`-prefixed environment overrides – highest precedence.
//
// Secret strings may be written as `vault:<mount>/<path>#<key>`; the loader
// resolves them through internal/vault before validation, so the model
// only ever holds plain values.
//
// Two binaries share the tree.  The CLI reads Client and Log only; the API
// server additionally calls ValidateServer.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	CORSOrigin string `koanf:"cors_origin" validate:"required"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The template is kept in YAML so operators can tweak host, port, or flags
// without touching Vault.  A single `%s` in it receives Password.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
}

//
// Redis section
//

// Redis selects the session backend.  An empty Addr keeps sessions in
// process memory.
type Redis struct {
	Addr      string `koanf:"addr"       validate:"omitempty,hostname_port"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"         validate:"min=0"`
	KeyPrefix string `koanf:"key_prefix"`
}

//
// Session section
//

type Session struct {
	TTL            time.Duration `koanf:"ttl"             validate:"gt=0"`
	SecureCookie   bool          `koanf:"secure_cookie"`
	BcryptCost     int           `koanf:"bcrypt_cost"     validate:"min=4,max=31"`
	MemoryCapacity int           `koanf:"memory_capacity" validate:"min=0"`
}

//
// GeoIP section
//

type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Client section (CLI)
//

// Client configures the outbound API client used by cmd/huelip.
type Client struct {
	APIURL      string `koanf:"api_url"      validate:"required,url"`
	TimeoutMS   int    `koanf:"timeout_ms"`
	SessionFile string `koanf:"session_file"`
}

// DefaultClientTimeout applies when TimeoutMS is not positive.
const DefaultClientTimeout = 30 * time.Second

// Timeout converts TimeoutMS, falling back to DefaultClientTimeout.
func (c Client) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return DefaultClientTimeout
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

//
// Log section
//

type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

//
// Forms section
//

// Forms lists directories of YAML form definitions that override the
// embedded ones.  Later directories win.
type Forms struct {
	Dirs []string `koanf:"dirs"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // HUELIP_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Redis    Redis    `koanf:"redis"`
	Session  Session  `koanf:"session"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Client   Client   `koanf:"client"`
	Log      Log      `koanf:"log"`
	Forms    Forms    `koanf:"forms"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

// secrets lists the fields that may hold Vault references.
func (c *Config) secrets() []*string {
	return []*string{&c.Database.DSN, &c.Database.Password, &c.Redis.Password}
}
