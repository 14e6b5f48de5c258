package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	yaml "github.com/goccy/go-yaml"

	customerrors "github.com/bavix/avwatch/internal/errors"
)

// DefaultPath is where the service looks for its configuration.
const DefaultPath = "/etc/avwatch/config.yaml"

// Device source types.
const (
	SourceHost = "host"
	SourceFile = "file"
	SourceNone = "none"
)

var (
	errAddressMustBeHostPort    = errors.New("address must be host:port or :port")
	errRefreshRateNegative      = errors.New("http.refresh_rate must be non-negative")
	errRefreshBurstNegative     = errors.New("http.refresh_burst must be non-negative")
	errTimeoutsNegative         = errors.New("timeouts must be non-negative")
	errMaxPendingNegative       = errors.New("permissions.max_pending must be non-negative")
	errUnknownLogLevel          = errors.New("unknown log level")
	errAuthSecretTooShort       = errors.New("http.auth_secret must be at least 32 bytes")
	errWatchRequiresWatchTarget = errors.New("source.watch requires watch_paths for host sources")
	errUsersRequireAuthSecret   = errors.New("http.users requires http.auth_secret")
	errUserIncomplete           = errors.New("http.users entries need name and password_hash")
	errDuplicateUser            = errors.New("duplicate user in http.users")
)

const (
	defaultHTTPListen       = "127.0.0.1:47824"
	defaultHTTPReadTimeout  = 30 * time.Second
	defaultHTTPWriteTimeout = 30 * time.Second
	defaultHTTPIdleTimeout  = 120 * time.Second
	defaultMaxHeaderBytes   = 1024 * 1024 // 1MB
	defaultRefreshRate      = 1.0
	defaultRefreshBurst     = 5
	defaultSourceTimeout    = 5 * time.Second
	defaultRequestTTL       = 2 * time.Minute
	defaultMaxPending       = 64
	minAuthSecretLength     = 32
)

// LogConfig defines logging configuration.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // console or json
}

// SourceConfig selects where device descriptors come from.
type SourceConfig struct {
	Type         string        `yaml:"type,omitempty"`
	Path         string        `yaml:"path,omitempty"`      // device list file for type "file"
	V4L2Root     string        `yaml:"v4l2_root,omitempty"` // sysfs class directory for type "host"
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Watch        bool          `yaml:"watch,omitempty"`
	WatchPaths   []string      `yaml:"watch_paths,omitempty"`
	RedactLabels bool          `yaml:"redact_labels,omitempty"`
}

// HTTPConfig defines HTTP admin server settings.
type HTTPConfig struct {
	Enabled        *bool         `yaml:"enabled,omitempty"`
	Listen         string        `yaml:"listen,omitempty"`
	ReadTimeout    time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout   time.Duration `yaml:"write_timeout,omitempty"`
	IdleTimeout    time.Duration `yaml:"idle_timeout,omitempty"`
	MaxHeaderBytes int           `yaml:"max_header_bytes,omitempty"`
	AuthSecret     string        `yaml:"auth_secret,omitempty"`   // HMAC secret for bearer tokens; empty disables auth
	RefreshRate    float64       `yaml:"refresh_rate,omitempty"`  // mutating requests per second per client
	RefreshBurst   int           `yaml:"refresh_burst,omitempty"` // burst of mutating requests per client
	CORSOrigins    []string      `yaml:"cors_origins,omitempty"`
	Users          []UserConfig  `yaml:"users,omitempty"` // operators that may log in with a password
	LoginTokenTTL  time.Duration `yaml:"login_token_ttl,omitempty"`
}

// IsEnabled reports whether the admin server should run. It defaults to true.
func (h HTTPConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// UserConfig is an operator account. PasswordHash is an argon2id hash as
// printed by `avwatch hash-password`.
type UserConfig struct {
	Name         string `yaml:"name"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role,omitempty"`
}

// PermissionsConfig defines how out of band permission requests are kept.
type PermissionsConfig struct {
	RequestTTL time.Duration `json:"request_ttl" yaml:"request_ttl,omitempty"`
	MaxPending int           `json:"max_pending" yaml:"max_pending,omitempty"`
}

// Config is the main application configuration.
type Config struct {
	AppName     string            `yaml:"app_name,omitempty"`
	Log         LogConfig         `yaml:"log,omitempty"`
	Source      SourceConfig      `yaml:"source,omitempty"`
	HTTP        HTTPConfig        `yaml:"http,omitempty"`
	Permissions PermissionsConfig `yaml:"permissions,omitempty"`
	Path        string            `yaml:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path) //nolint:gosec // config file path is provided by the operator
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Path = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "avwatch"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	c.Source.Type = strings.ToLower(strings.TrimSpace(c.Source.Type))
	if c.Source.Type == "" {
		c.Source.Type = SourceHost
	}

	if c.Source.Timeout == 0 {
		c.Source.Timeout = defaultSourceTimeout
	}

	if c.Source.Type == SourceHost && c.Source.Watch && len(c.Source.WatchPaths) == 0 {
		c.Source.WatchPaths = []string{"/dev", "/dev/snd"}
	}

	if c.HTTP.Listen == "" {
		c.HTTP.Listen = defaultHTTPListen
	}

	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = defaultHTTPReadTimeout
	}

	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = defaultHTTPWriteTimeout
	}

	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = defaultHTTPIdleTimeout
	}

	if c.HTTP.MaxHeaderBytes == 0 {
		c.HTTP.MaxHeaderBytes = defaultMaxHeaderBytes
	}

	if c.HTTP.RefreshRate == 0 {
		c.HTTP.RefreshRate = defaultRefreshRate
	}

	if c.HTTP.RefreshBurst == 0 {
		c.HTTP.RefreshBurst = defaultRefreshBurst
	}

	if c.Permissions.RequestTTL == 0 {
		c.Permissions.RequestTTL = defaultRequestTTL
	}

	if c.Permissions.MaxPending == 0 {
		c.Permissions.MaxPending = defaultMaxPending
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourceHost, SourceNone:
	case SourceFile:
		if c.Source.Path == "" {
			return fmt.Errorf("source: %w", customerrors.ErrSourcePathRequired)
		}
	default:
		return customerrors.ErrUnsupportedSourceTypeWithName(c.Source.Type)
	}

	if c.Source.Timeout < 0 || c.HTTP.ReadTimeout < 0 || c.HTTP.WriteTimeout < 0 ||
		c.HTTP.IdleTimeout < 0 || c.Permissions.RequestTTL < 0 {
		return errTimeoutsNegative
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("%w: %q", errUnknownLogLevel, c.Log.Level)
	}

	if c.Source.Watch && c.Source.Type == SourceHost && len(c.Source.WatchPaths) == 0 {
		return errWatchRequiresWatchTarget
	}

	if c.HTTP.IsEnabled() {
		if err := validateAddr(c.HTTP.Listen); err != nil {
			return fmt.Errorf("invalid http.listen: %w", err)
		}
	}

	if c.HTTP.RefreshRate < 0 {
		return errRefreshRateNegative
	}

	if c.HTTP.RefreshBurst < 0 {
		return errRefreshBurstNegative
	}

	if c.HTTP.AuthSecret != "" && len(c.HTTP.AuthSecret) < minAuthSecretLength {
		return errAuthSecretTooShort
	}

	if c.Permissions.MaxPending < 0 {
		return errMaxPendingNegative
	}

	return c.validateUsers()
}

func (c *Config) validateUsers() error {
	if len(c.HTTP.Users) > 0 && c.HTTP.AuthSecret == "" {
		return errUsersRequireAuthSecret
	}

	seen := make(map[string]struct{}, len(c.HTTP.Users))

	for _, u := range c.HTTP.Users {
		if u.Name == "" || u.PasswordHash == "" {
			return errUserIncomplete
		}

		if _, ok := seen[u.Name]; ok {
			return fmt.Errorf("%w: %q", errDuplicateUser, u.Name)
		}

		seen[u.Name] = struct{}{}
	}

	return nil
}

// SafeConfig is the configuration without secrets, for API responses.
type SafeConfig struct {
	AppName     string            `json:"app_name"`
	LogLevel    string            `json:"log_level"`
	SourceType  string            `json:"source_type"`
	SourcePath  string            `json:"source_path,omitempty"`
	Watch       bool              `json:"watch"`
	Redact      bool              `json:"redact_labels"`
	Listen      string            `json:"listen"`
	AuthEnabled bool              `json:"auth_enabled"`
	Users       int               `json:"users"`
	Permissions PermissionsConfig `json:"permissions"`
}

// ToSafeConfig converts Config to SafeConfig.
func (c *Config) ToSafeConfig() SafeConfig {
	return SafeConfig{
		AppName:     c.AppName,
		LogLevel:    c.Log.Level,
		SourceType:  c.Source.Type,
		SourcePath:  c.Source.Path,
		Watch:       c.Source.Watch,
		Redact:      c.Source.RedactLabels,
		Listen:      c.HTTP.Listen,
		AuthEnabled: c.HTTP.AuthSecret != "",
		Users:       len(c.HTTP.Users),
		Permissions: c.Permissions,
	}
}

func validateAddr(addr string) error {
	if !strings.HasPrefix(addr, ":") && !strings.Contains(addr, ":") {
		return errAddressMustBeHostPort
	}

	_, _, err := net.SplitHostPort(addr)

	return err
}
