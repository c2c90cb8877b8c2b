package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spofree/spofree/internal/provider"
)

// Config holds runtime configuration loaded from TOML.
type Config struct {
	API     APIConfig     `toml:"api"`
	Library LibraryConfig `toml:"library"`
	Queue   QueueConfig   `toml:"queue"`
	Player  PlayerConfig  `toml:"player"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`
}

// APIConfig lists the interchangeable backend instances, tried in order.
type APIConfig struct {
	Instances         []string `toml:"instances"`
	SearchTimeoutMS   int      `toml:"search_timeout_ms"`
	StreamTimeoutMS   int      `toml:"stream_timeout_ms"`
	RequestTimeoutMS  int      `toml:"request_timeout_ms"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

func (a APIConfig) SearchTimeout() time.Duration {
	return time.Duration(a.SearchTimeoutMS) * time.Millisecond
}

func (a APIConfig) StreamTimeout() time.Duration {
	return time.Duration(a.StreamTimeoutMS) * time.Millisecond
}

func (a APIConfig) RequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeoutMS) * time.Millisecond
}

type LibraryConfig struct {
	// Path of the SQLite file. Empty means <state>/library.db.
	Path string `toml:"path"`
}

// QueueConfig holds queue persistence settings.
type QueueConfig struct {
	// Persist is a pointer so an explicit false survives defaulting.
	Persist *bool  `toml:"persist"`
	Path    string `toml:"path"`
}

func (q QueueConfig) PersistEnabled() bool {
	return q.Persist == nil || *q.Persist
}

type PlayerConfig struct {
	MPVPath       string `toml:"mpv_path"`
	IPC           string `toml:"ipc"`
	InitialVolume int    `toml:"initial_volume"`
}

type UIConfig struct {
	Theme   string `toml:"theme"`
	NoColor bool   `toml:"no_color"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json
	Output string `toml:"output"` // file, stderr
}

// Load reads configuration from disk. If path is empty, a default OS-specific
// location is used. A missing file yields the defaults; it still has to pass
// validation, so at least one instance must come from somewhere.
func Load(path string) (*Config, string, error) {
	cfgPath := path
	if cfgPath == "" {
		var err error
		cfgPath, err = defaultPath()
		if err != nil {
			return nil, "", fmt.Errorf("resolve config path: %w", err)
		}
	}

	var cfg Config
	data, err := os.ReadFile(cfgPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, cfgPath, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, cfgPath, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		return nil, cfgPath, err
	}

	return &cfg, cfgPath, nil
}

func defaultPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(dir, "Spofree")
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(dir, "spofree")
	}
	return filepath.Join(base, "config.toml"), nil
}

// StateDir returns the directory holding logs and databases
// (<user config dir>/spofree/state).
func StateDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "spofree", "state"), nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.SearchTimeoutMS == 0 {
		cfg.API.SearchTimeoutMS = 5000
	}
	if cfg.API.StreamTimeoutMS == 0 {
		cfg.API.StreamTimeoutMS = 15000
	}
	if cfg.API.RequestTimeoutMS == 0 {
		cfg.API.RequestTimeoutMS = 10000
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = "rainbow"
	}
	if cfg.Player.MPVPath == "" {
		cfg.Player.MPVPath = "mpv"
	}
	if cfg.Player.InitialVolume == 0 {
		cfg.Player.InitialVolume = 70
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "file"
	}
}

// Validate performs semantic validation of config. Failures wrap
// provider.ErrInvalidConfig.
func Validate(cfg Config) error {
	if err := validate(cfg); err != nil {
		return fmt.Errorf("%w: %w", provider.ErrInvalidConfig, err)
	}
	return nil
}

func validate(cfg Config) error {
	if len(cfg.API.Instances) == 0 {
		return errors.New("api.instances needs at least one base url")
	}
	for _, raw := range cfg.API.Instances {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api.instances: %q is not an http(s) url", raw)
		}
	}
	if cfg.API.SearchTimeoutMS < 0 || cfg.API.StreamTimeoutMS < 0 || cfg.API.RequestTimeoutMS < 0 {
		return errors.New("api timeouts must not be negative")
	}
	if cfg.API.RequestsPerSecond < 0 {
		return errors.New("api.requests_per_second must not be negative")
	}
	if cfg.Player.InitialVolume < 0 || cfg.Player.InitialVolume > 100 {
		return fmt.Errorf("player.initial_volume must be 0-100")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be debug, info, warn or error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", cfg.Log.Format)
	}
	switch cfg.Log.Output {
	case "file", "stderr":
	default:
		return fmt.Errorf("log.output %q must be file or stderr", cfg.Log.Output)
	}
	return nil
}

// ValidatePlayer checks that mpv can be found. Only needed when audio is
// actually played.
func ValidatePlayer(cfg Config) error {
	if _, err := os.Stat(cfg.Player.MPVPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if _, lookErr := execLookPath(cfg.Player.MPVPath); lookErr != nil {
				return fmt.Errorf("mpv not found (%s): %w", cfg.Player.MPVPath, lookErr)
			}
		}
	}
	return nil
}

// DeadlineContext returns a context bounded by the api request timeout.
func (c Config) DeadlineContext() (context.Context, context.CancelFunc) {
	d := c.API.RequestTimeout()
	if d == 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}

// execLookPath is a test seam.
var execLookPath = func(file string) (string, error) {
	return exec.LookPath(file)
}
