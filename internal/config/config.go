// Package config implements the Configuration component (SPEC_FULL §4.7):
// the "ordered configuration record" of spec §3, assembled from flags,
// environment variables, and an optional config file via
// github.com/spf13/viper, validated once at startup.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the immutable, validated record handed to every collaborator
// at construction time (spec §5: "Request Parser and File Handler hold
// only immutable configuration after construction").
type Config struct {
	MaxRequestLine   int    `mapstructure:"max_request_line"`
	MaxHeaderSection int    `mapstructure:"max_header_section"`
	MaxHeaderCount   int    `mapstructure:"max_header_count"`
	MaxBodyBytes     int    `mapstructure:"max_body_bytes"`
	ClientReadTimeoutMs int `mapstructure:"client_read_timeout_ms"`
	DocumentRoot     string `mapstructure:"document_root"`
	MetricsPath      string `mapstructure:"metrics_endpoint_path"`
	AccessLogEnabled bool   `mapstructure:"access_log_enabled"`
	MetricsEnabled   bool   `mapstructure:"metrics_enabled"`
	ListenAddress    string `mapstructure:"listen_address"`
	LogFormat        string `mapstructure:"log_format"`
}

// envPrefix is the environment-variable namespace (SPEC_FULL §4.7:
// "environment variables (prefix ORIGINSERVER_)").
const envPrefix = "ORIGINSERVER"

// defaults mirrors spec §6's configuration-surface table plus the
// SPEC_FULL §4.7 additions (listen_address, log_format).
func defaults() map[string]any {
	return map[string]any{
		"max_request_line":       8192,
		"max_header_section":     8192,
		"max_header_count":       100,
		"max_body_bytes":         10 * 1024 * 1024,
		"client_read_timeout_ms": 15000,
		"document_root":          "./public",
		"metrics_endpoint_path":  "/metrics",
		"access_log_enabled":     true,
		"metrics_enabled":        true,
		"listen_address":         ":8080",
		"log_format":             "production",
	}
}

// Load assembles a Config from, in priority order (highest wins):
// explicit flags already bound to v, environment variables under
// ORIGINSERVER_*, an optional config file at configFile (skipped if
// empty or missing), then the package defaults.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(err, "config: reading config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshalling")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the invariants SPEC_FULL §4.7 names explicitly.
func (c *Config) Validate() error {
	if c.MaxHeaderCount <= 0 {
		return errors.New("config: max_header_count must be > 0")
	}
	if c.MaxRequestLine <= 0 || c.MaxHeaderSection <= 0 || c.MaxBodyBytes <= 0 {
		return errors.New("config: size limits must be > 0")
	}
	if c.ClientReadTimeoutMs <= 0 {
		return errors.New("config: client_read_timeout_ms must be > 0")
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		return errors.New("config: metrics_endpoint_path must start with '/'")
	}
	if c.DocumentRoot == "" {
		return errors.New("config: document_root must not be empty")
	}
	if err := os.MkdirAll(c.DocumentRoot, 0o755); err != nil {
		return errors.Wrap(err, "config: document_root must be creatable")
	}
	return nil
}
