package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spofree/spofree/internal/provider"
)

func validConfig() Config {
	cfg := Config{API: APIConfig{Instances: []string{"https://api.one.example", "http://api.two.example:8080/"}}}
	applyDefaults(&cfg)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"no instances", func(c *Config) { c.API.Instances = nil }, true},
		{"bad scheme", func(c *Config) { c.API.Instances = []string{"ftp://x"} }, true},
		{"no host", func(c *Config) { c.API.Instances = []string{"https://"} }, true},
		{"negative rate", func(c *Config) { c.API.RequestsPerSecond = -1 }, true},
		{"volume out of range", func(c *Config) { c.Player.InitialVolume = 101 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"bad log output", func(c *Config) { c.Log.Output = "syslog" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !provider.IsInvalidConfig(err) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[api]
instances = ["https://a.example", "https://b.example"]
stream_timeout_ms = 20000

[queue]
persist = false

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, resolved, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %s", resolved)
	}
	if len(cfg.API.Instances) != 2 || cfg.API.Instances[1] != "https://b.example" {
		t.Errorf("instances = %v", cfg.API.Instances)
	}
	if cfg.API.SearchTimeoutMS != 5000 || cfg.API.StreamTimeoutMS != 20000 || cfg.API.RequestTimeoutMS != 10000 {
		t.Errorf("unexpected timeouts %+v", cfg.API)
	}
	if cfg.Queue.PersistEnabled() {
		t.Error("explicit persist=false must survive defaults")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" || cfg.Player.InitialVolume != 70 || cfg.UI.Theme != "rainbow" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadMissingFileNeedsInstances(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !provider.IsInvalidConfig(err) {
		t.Fatalf("expected invalid config for defaults without instances, got %v", err)
	}
}

func TestLoadParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	_ = os.WriteFile(path, []byte("[api\ninstances = "), 0o644)
	if _, _, err := Load(path); err == nil || provider.IsInvalidConfig(err) {
		t.Fatalf("expected a parse error, got %v", err)
	}
}

func TestPersistDefaultsOn(t *testing.T) {
	if !(QueueConfig{}).PersistEnabled() {
		t.Error("expected persistence on by default")
	}
}

func TestValidatePlayer(t *testing.T) {
	orig := execLookPath
	defer func() { execLookPath = orig }()

	tmp, err := os.CreateTemp(t.TempDir(), "mpv")
	if err != nil {
		t.Fatal(err)
	}
	tmp.Close()
	cfg := validConfig()
	cfg.Player.MPVPath = tmp.Name()
	if err := ValidatePlayer(cfg); err != nil {
		t.Errorf("existing path: %v", err)
	}

	execLookPath = func(string) (string, error) { return "", errors.New("not found") }
	cfg.Player.MPVPath = "/invalid/mpv/path"
	if err := ValidatePlayer(cfg); err == nil {
		t.Error("expected error for missing mpv")
	}
}

func TestDeadlineContext(t *testing.T) {
	cfg := validConfig()
	ctx, cancel := cfg.DeadlineContext()
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected a deadline")
	}
}

func TestStateDirUnderUserConfig(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	dir, err := StateDir()
	if err != nil {
		t.Fatalf("StateDir: %v", err)
	}
	if want := filepath.Join(base, "spofree", "state"); dir != want {
		t.Errorf("StateDir() = %s, want %s", dir, want)
	}
}
