// Package config loads jobboard settings from defaults, a config file and the
// environment, in increasing order of precedence.
//
// The config file is jobboard.toml (or .yaml/.json) searched in the working
// directory and then in $HOME/.config/jobboard. Environment variables use the
// JOBBOARD_ prefix with dots replaced by underscores (JOBBOARD_SITE_TITLE).
// The unprefixed legacy names DEFAULT_DATABASE, JOBS_PER_PAGE, SITE_TITLE,
// SITE_DESC, AIRTABLE_BASE_ID and AIRTABLE_API_KEY are honored as well.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrMissingCredentials is returned when the Airtable source is selected but
// the base id or API key is not configured.
var ErrMissingCredentials = errors.New("missing Airtable credentials")

// FileName is the config file base name, without extension.
const FileName = "jobboard"

// Source kinds.
const (
	SourceAirtable = "airtable"
	SourceFile     = "file"
)

// Config is the complete jobboard configuration.
type Config struct {
	Database    string `mapstructure:"database" toml:"database" validate:"required"`
	JobsPerPage int    `mapstructure:"jobs_per_page" toml:"jobs_per_page" validate:"min=1,max=500"`
	Listen      string `mapstructure:"listen" toml:"listen" validate:"required"`
	Source      string `mapstructure:"source" toml:"source" validate:"oneof=airtable file"`
	SourceDir   string `mapstructure:"source_dir" toml:"source_dir,omitempty" validate:"required_if=Source file"`

	Site     SiteConfig     `mapstructure:"site" toml:"site"`
	Airtable AirtableConfig `mapstructure:"airtable" toml:"airtable"`
	Sync     SyncConfig     `mapstructure:"sync" toml:"sync"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
}

// SiteConfig is shown on every page.
type SiteConfig struct {
	Title       string `mapstructure:"title" toml:"title"`
	Description string `mapstructure:"description" toml:"description"`
}

// AirtableConfig configures the Airtable source.
type AirtableConfig struct {
	BaseID    string `mapstructure:"base_id" toml:"base_id,omitempty"`
	APIKey    string `mapstructure:"api_key" toml:"api_key,omitempty"`
	BaseURL   string `mapstructure:"base_url" toml:"base_url" validate:"required,url"`
	RateLimit int    `mapstructure:"rate_limit" toml:"rate_limit" validate:"min=1"`
}

// SyncConfig configures scheduled syncs while serving.
type SyncConfig struct {
	// Schedule is a cron spec; empty disables scheduled syncs.
	Schedule string `mapstructure:"schedule" toml:"schedule,omitempty"`
}

// LogConfig configures log output.
type LogConfig struct {
	// File, when set, receives a copy of all log output with rotation.
	File       string `mapstructure:"file" toml:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb" validate:"min=0"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" toml:"max_age_days" validate:"min=0"`
	Verbose    bool   `mapstructure:"verbose" toml:"verbose"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database:    "db.sqlite3",
		JobsPerPage: 20,
		Listen:      ":8080",
		Source:      SourceAirtable,
		Site: SiteConfig{
			Title:       "Site Title",
			Description: "Site Description",
		},
		Airtable: AirtableConfig{
			BaseURL:   "https://api.airtable.com",
			RateLimit: 5,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// legacyEnv lists the unprefixed environment names bound in addition to the
// JOBBOARD_ ones. Earlier names take precedence.
var legacyEnv = map[string][]string{
	"database":         {"DEFAULT_DATABASE"},
	"jobs_per_page":    {"JOBS_PER_PAGE"},
	"site.title":       {"SITE_TITLE"},
	"site.description": {"SITE_DESC"},
	"airtable.base_id": {"AIRTABLE_BASE_ID", "AIRTABLE_BASE_KEY"},
	"airtable.api_key": {"AIRTABLE_API_KEY"},
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database", d.Database)
	v.SetDefault("jobs_per_page", d.JobsPerPage)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("source", d.Source)
	v.SetDefault("source_dir", d.SourceDir)
	v.SetDefault("site.title", d.Site.Title)
	v.SetDefault("site.description", d.Site.Description)
	v.SetDefault("airtable.base_id", "")
	v.SetDefault("airtable.api_key", "")
	v.SetDefault("airtable.base_url", d.Airtable.BaseURL)
	v.SetDefault("airtable.rate_limit", d.Airtable.RateLimit)
	v.SetDefault("sync.schedule", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.verbose", false)

	v.SetEnvPrefix("JOBBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		prefixed := "JOBBOARD_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, prefixed}, names...)...)
	}
}

// Load reads the configuration into a validated Config.
//
// If configFile is empty the default search path is used and a missing file
// is not an error. An explicit configFile must exist.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if dir, err := UserConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UserConfigDir returns $HOME/.config/jobboard.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", FileName), nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// RequireAirtable returns ErrMissingCredentials, naming the missing keys,
// unless both Airtable credentials are set.
func (c *Config) RequireAirtable() error {
	var missing []string
	if c.Airtable.BaseID == "" {
		missing = append(missing, "airtable.base_id (AIRTABLE_BASE_ID)")
	}
	if c.Airtable.APIKey == "" {
		missing = append(missing, "airtable.api_key (AIRTABLE_API_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// WriteFile writes c to path as TOML, creating parent directories. The file
// is readable by the owner only since it may hold the API key.
func (c *Config) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return f.Close()
}
