package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Provider.Backend != "ytdlp" {
		t.Errorf("unexpected backend %q", cfg.Provider.Backend)
	}
	if cfg.Browser.DevToolsURL != "http://127.0.0.1:9222" {
		t.Errorf("unexpected devtools url %q", cfg.Browser.DevToolsURL)
	}
	if !cfg.Notify.Console || !cfg.Notify.Desktop {
		t.Error("notifications should be enabled by default")
	}
	if cfg.Session.LockFile == "" {
		t.Error("lock file should have a default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[provider]
backend = "watchpage"
timeout = 30
auto_captions = true

[output]
dir = "/tmp/subs"
keep_captions = true

[session]
preferred_languages = ["de", "en"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Backend != "watchpage" || !cfg.Provider.AutoCaptions {
		t.Errorf("provider not loaded: %+v", cfg.Provider)
	}
	if cfg.ProviderTimeout() != 30*time.Second {
		t.Errorf("unexpected timeout %v", cfg.ProviderTimeout())
	}
	if cfg.Output.Dir != "/tmp/subs" || !cfg.Output.KeepCaptions {
		t.Errorf("output not loaded: %+v", cfg.Output)
	}
	if !slices.Equal(cfg.Session.PreferredLanguages, []string{"de", "en"}) {
		t.Errorf("unexpected languages %v", cfg.Session.PreferredLanguages)
	}
	// untouched sections keep their defaults
	if cfg.Browser.DevToolsURL != "http://127.0.0.1:9222" {
		t.Errorf("unexpected devtools url %q", cfg.Browser.DevToolsURL)
	}
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Backend != "ytdlp" {
		t.Errorf("expected defaults, got %+v", cfg.Provider)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SUBTXT_PROVIDER_BACKEND", "watchpage")
	t.Setenv("SUBTXT_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Backend != "watchpage" {
		t.Errorf("env override ignored: %q", cfg.Provider.Backend)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("env override ignored: %q", cfg.Logging.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[provider]\nbackend = \"rss\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "provider.backend") {
		t.Errorf("expected backend validation error, got %v", err)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestWriteExample_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := Default()
	if err := want.WriteExample(path); err != nil {
		t.Fatalf("WriteExample() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# subtxt configuration file") {
		t.Error("missing header")
	}

	var got Config
	if err := toml.Unmarshal(data, &got); err != nil {
		t.Fatalf("example is not valid TOML: %v", err)
	}
	if got.Provider != want.Provider || got.Browser != want.Browser || got.Notify != want.Notify {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of example error = %v", err)
	}
	if loaded.Session.LockFile != want.Session.LockFile {
		t.Errorf("unexpected lock file %q", loaded.Session.LockFile)
	}
}
