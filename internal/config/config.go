package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const appName = "subtxt"

type Config struct {
	Browser  BrowserConfig  `toml:"browser" mapstructure:"browser"`
	Provider ProviderConfig `toml:"provider" mapstructure:"provider"`
	Output   OutputConfig   `toml:"output" mapstructure:"output"`
	Session  SessionConfig  `toml:"session" mapstructure:"session"`
	Notify   NotifyConfig   `toml:"notify" mapstructure:"notify"`
	Logging  LoggingConfig  `toml:"logging" mapstructure:"logging"`
}

type BrowserConfig struct {
	DevToolsURL string `toml:"devtools_url" mapstructure:"devtools_url"`
	App         string `toml:"app" mapstructure:"app"`
	Timeout     int    `toml:"timeout" mapstructure:"timeout"`
}

type ProviderConfig struct {
	Backend      string `toml:"backend" mapstructure:"backend"`
	YtDlpPath    string `toml:"ytdlp_path" mapstructure:"ytdlp_path"`
	Timeout      int    `toml:"timeout" mapstructure:"timeout"`
	AutoCaptions bool   `toml:"auto_captions" mapstructure:"auto_captions"`
	JavaScript   string `toml:"javascript" mapstructure:"javascript"`
	UserAgent    string `toml:"user_agent" mapstructure:"user_agent"`
	BrowserAgent string `toml:"browser_agent" mapstructure:"browser_agent"`
}

type OutputConfig struct {
	Dir          string `toml:"dir" mapstructure:"dir"`
	KeepCaptions bool   `toml:"keep_captions" mapstructure:"keep_captions"`
}

type SessionConfig struct {
	LockFile           string   `toml:"lock_file" mapstructure:"lock_file"`
	PreferredLanguages []string `toml:"preferred_languages" mapstructure:"preferred_languages"`
}

type NotifyConfig struct {
	Desktop bool `toml:"desktop" mapstructure:"desktop"`
	Console bool `toml:"console" mapstructure:"console"`
}

type LoggingConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	File  string `toml:"file" mapstructure:"file"`
}

func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			DevToolsURL: "http://127.0.0.1:9222",
			App:         "",
			Timeout:     5,
		},
		Provider: ProviderConfig{
			Backend:      "ytdlp",
			YtDlpPath:    "yt-dlp",
			Timeout:      120,
			AutoCaptions: false,
			JavaScript:   "auto",
			UserAgent:    "",
			BrowserAgent: "chrome",
		},
		Output: OutputConfig{
			Dir:          "",
			KeepCaptions: false,
		},
		Session: SessionConfig{
			LockFile:           defaultLockFile(),
			PreferredLanguages: []string{},
		},
		Notify: NotifyConfig{
			Desktop: true,
			Console: true,
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  "",
		},
	}
}

// Dir returns $XDG_CONFIG_HOME/subtxt, falling back to ~/.config/subtxt.
func Dir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error finding home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName), nil
}

// DefaultPath is the config file read when no --config flag is given.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func defaultLockFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), appName+".lock")
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, appName, appName+".lock")
}

// Load reads configFile, or the default location when empty. A missing file
// is not an error. Environment variables prefixed with SUBTXT_ override file
// values, e.g. SUBTXT_PROVIDER_BACKEND=watchpage.
func Load(configFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()
	v.SetConfigType("toml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return cfg, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SUBTXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configFile == "" && errors.Is(err, os.ErrNotExist)) {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can override values that
// are absent from the file.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("browser.devtools_url", cfg.Browser.DevToolsURL)
	v.SetDefault("browser.app", cfg.Browser.App)
	v.SetDefault("browser.timeout", cfg.Browser.Timeout)
	v.SetDefault("provider.backend", cfg.Provider.Backend)
	v.SetDefault("provider.ytdlp_path", cfg.Provider.YtDlpPath)
	v.SetDefault("provider.timeout", cfg.Provider.Timeout)
	v.SetDefault("provider.auto_captions", cfg.Provider.AutoCaptions)
	v.SetDefault("provider.javascript", cfg.Provider.JavaScript)
	v.SetDefault("provider.user_agent", cfg.Provider.UserAgent)
	v.SetDefault("provider.browser_agent", cfg.Provider.BrowserAgent)
	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.keep_captions", cfg.Output.KeepCaptions)
	v.SetDefault("session.lock_file", cfg.Session.LockFile)
	v.SetDefault("session.preferred_languages", cfg.Session.PreferredLanguages)
	v.SetDefault("notify.desktop", cfg.Notify.Desktop)
	v.SetDefault("notify.console", cfg.Notify.Console)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Provider.Backend {
	case "", "ytdlp", "watchpage":
	default:
		return fmt.Errorf("provider.backend: unsupported value %q", c.Provider.Backend)
	}
	switch strings.ToLower(c.Provider.JavaScript) {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("provider.javascript: unsupported value %q", c.Provider.JavaScript)
	}
	if c.Provider.Timeout < 0 || c.Browser.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

func (c *Config) BrowserTimeout() time.Duration {
	return time.Duration(c.Browser.Timeout) * time.Second
}

func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.Timeout) * time.Second
}

const exampleHeader = `# subtxt configuration file
#
# [browser]   Chromium remote-debugging endpoint used to find the active tab.
#             Start the browser with --remote-debugging-port=9222.
# [provider]  backend = "ytdlp" | "watchpage"; javascript = "auto" | "always" | "never"
# [output]    dir = "" writes to ~/Downloads
# [session]   preferred_languages are picked without asking when offered
# [logging]   level = "debug" | "info" | "warn" | "error"

`

// WriteExample renders the defaults to path, creating parent directories.
func (c *Config) WriteExample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(exampleHeader)
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
