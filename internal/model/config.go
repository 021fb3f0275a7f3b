package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RemoteConfig is the webhook the submissions are relayed to.
type RemoteConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key" json:"apiKey"`
}

// RemotePatch is a partial RemoteConfig. Nil fields are left untouched
// when overlaid; a non-nil empty string clears the field.
type RemotePatch struct {
	Endpoint *string
	APIKey   *string
}

// Overlay returns c with every field set in p replaced.
func (c RemoteConfig) Overlay(p RemotePatch) RemoteConfig {
	if p.Endpoint != nil {
		c.Endpoint = strings.TrimSpace(*p.Endpoint)
	}
	if p.APIKey != nil {
		c.APIKey = strings.TrimSpace(*p.APIKey)
	}
	return c
}

// DefaultRemote is the hardcoded base that persisted remote settings are
// overlaid on. Nothing is relayed until an endpoint is configured.
func DefaultRemote() RemoteConfig {
	return RemoteConfig{}
}

// SyncConfig tunes delivery.
type SyncConfig struct {
	// Enabled turns relaying off entirely; submissions still persist.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Interval between periodic sync passes.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// Timeout aborts a single outbound call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// RetryAttempts bounds in-call retries of the resilient client and
	// replays of a queued entry.
	RetryAttempts int `mapstructure:"retry_attempts" yaml:"retry_attempts"`

	// RetryDelay is the linear backoff base: attempt n waits n*RetryDelay.
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`

	// ProbeInterval is how often connectivity is checked.
	ProbeInterval time.Duration `mapstructure:"probe_interval" yaml:"probe_interval"`
}

// StorageConfig locates the local database.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// DisplayConfig holds terminal preferences.
type DisplayConfig struct {
	DarkMode bool `mapstructure:"dark_mode" yaml:"dark_mode"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Remote  RemoteConfig  `mapstructure:"remote" yaml:"remote"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	User    User          `mapstructure:"user" yaml:"user"`
}

// Defaults for SyncConfig.
const (
	DefaultSyncInterval  = 5 * time.Minute
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
	DefaultProbeInterval = 30 * time.Second
)

// DefaultConfigDir returns ~/.config/pointake.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "pointake")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/pointake/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Remote: DefaultRemote(),
		Sync: SyncConfig{
			Enabled:       true,
			Interval:      DefaultSyncInterval,
			Timeout:       DefaultTimeout,
			RetryAttempts: DefaultRetryAttempts,
			RetryDelay:    DefaultRetryDelay,
			ProbeInterval: DefaultProbeInterval,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(DefaultConfigDir(), "pointake.db"),
		},
		Log: LogConfig{Level: "info", Format: "text"},
		User: User{
			ID:   "local",
			Name: "Local User",
			Role: "user",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("remote.endpoint", d.Remote.Endpoint)
	v.SetDefault("remote.api_key", d.Remote.APIKey)
	v.SetDefault("sync.enabled", d.Sync.Enabled)
	v.SetDefault("sync.interval", d.Sync.Interval)
	v.SetDefault("sync.timeout", d.Sync.Timeout)
	v.SetDefault("sync.retry_attempts", d.Sync.RetryAttempts)
	v.SetDefault("sync.retry_delay", d.Sync.RetryDelay)
	v.SetDefault("sync.probe_interval", d.Sync.ProbeInterval)
	v.SetDefault("storage.db_path", d.Storage.DBPath)
	v.SetDefault("display.dark_mode", d.Display.DarkMode)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("user.id", d.User.ID)
	v.SetDefault("user.name", d.User.Name)
	v.SetDefault("user.role", d.User.Role)
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// with POINTAKE_* environment variables taking precedence (for example
// POINTAKE_REMOTE_ENDPOINT). If the file does not exist, defaults and
// environment are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("POINTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, missing := err.(viper.ConfigFileNotFoundError)
		if _, ok := err.(*os.PathError); ok {
			missing = true
		}
		if !missing {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Sync = cfg.Sync.withDefaults()

	return cfg, nil
}

// withDefaults replaces non-positive values with the package defaults.
func (c SyncConfig) withDefaults() SyncConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultSyncInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	return c
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The API key is never written
// here; it belongs in the keyring.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("remote.endpoint", cfg.Remote.Endpoint)
	v.Set("sync.enabled", cfg.Sync.Enabled)
	v.Set("sync.interval", cfg.Sync.Interval.String())
	v.Set("sync.timeout", cfg.Sync.Timeout.String())
	v.Set("sync.retry_attempts", cfg.Sync.RetryAttempts)
	v.Set("sync.retry_delay", cfg.Sync.RetryDelay.String())
	v.Set("sync.probe_interval", cfg.Sync.ProbeInterval.String())
	v.Set("storage.db_path", cfg.Storage.DBPath)
	v.Set("display.dark_mode", cfg.Display.DarkMode)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("user.id", cfg.User.ID)
	v.Set("user.name", cfg.User.Name)
	v.Set("user.role", cfg.User.Role)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
