package config

import (
	stderrors "errors"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/odvcencio/hoverkit/pkg/errors"
	"github.com/odvcencio/hoverkit/pkg/logging"
	"github.com/odvcencio/hoverkit/pkg/ui/theme"
)

// Default configuration values exported for documentation and validation
const (
	DefaultDelay        = 350 * time.Millisecond
	DefaultRequestDelay = 200 * time.Millisecond
	DefaultTheme        = "dark"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = string(logging.FormatText)

	dirName  = ".hoverkit"
	fileName = "config.yaml"
	envFile  = "config.env"
)

// Config represents the complete hoverkit configuration
type Config struct {
	Hover   HoverConfig   `yaml:"hover"`
	Theme   string        `yaml:"theme"`
	Log     LogConfig     `yaml:"log"`
	LSP     LSPConfig     `yaml:"lsp"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// HoverConfig controls when popovers appear.
type HoverConfig struct {
	Enabled bool `yaml:"enabled"`
	// Delay is the pause between the pointer settling and the popover
	// appearing. RequestDelay is when the backend is asked; it never
	// exceeds Delay.
	Delay        time.Duration `yaml:"delay"`
	RequestDelay time.Duration `yaml:"request_delay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LSPConfig names the language server the CLI spawns.
type LSPConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Root    string   `yaml:"root"`
}

type MetricsConfig struct {
	// Listen is a host:port for the Prometheus endpoint. Empty disables it.
	Listen string `yaml:"listen"`
}

// DefaultConfig returns a config with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Hover: HoverConfig{
			Enabled:      true,
			Delay:        DefaultDelay,
			RequestDelay: DefaultRequestDelay,
		},
		Theme: DefaultTheme,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		LSP: LSPConfig{
			Command: "gopls",
		},
	}
}

// Load loads configuration from default locations with proper precedence:
// defaults, ~/.hoverkit/config.yaml, ./.hoverkit/config.yaml, then
// environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	configEnv := loadConfigEnvVars()

	if home := homeDir(); home != "" {
		if err := loadIfExists(cfg, filepath.Join(home, dirName, fileName)); err != nil {
			return nil, err
		}
	}
	if err := loadIfExists(cfg, filepath.Join(".", dirName, fileName)); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg, configEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()
	configEnv := loadConfigEnvVars()

	if err := loadAndMerge(cfg, path); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg, configEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadIfExists(cfg *Config, path string) error {
	err := loadAndMerge(cfg, path)
	if err != nil && stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return home
}

// applyEnvOverrides applies HOVERKIT_* variables. Values from the process
// environment win over ~/.hoverkit/config.env.
func applyEnvOverrides(cfg *Config, configEnv map[string]string) {
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return configEnv[key]
	}

	if val, ok := parseBool(lookup("HOVERKIT_HOVER_ENABLED")); ok {
		cfg.Hover.Enabled = val
	}
	if d, err := time.ParseDuration(lookup("HOVERKIT_HOVER_DELAY")); err == nil {
		cfg.Hover.Delay = d
	}
	if d, err := time.ParseDuration(lookup("HOVERKIT_HOVER_REQUEST_DELAY")); err == nil {
		cfg.Hover.RequestDelay = d
	}
	if v := lookup("HOVERKIT_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := lookup("HOVERKIT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if fields := strings.Fields(lookup("HOVERKIT_LSP_COMMAND")); len(fields) > 0 {
		cfg.LSP.Command = fields[0]
		cfg.LSP.Args = fields[1:]
	}
	if v := lookup("HOVERKIT_METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
}

func parseBool(val string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Hover.Delay <= 0 {
		return invalid("hover.delay must be positive", c.Hover.Delay)
	}
	if c.Hover.RequestDelay <= 0 {
		return invalid("hover.request_delay must be positive", c.Hover.RequestDelay)
	}
	if c.Hover.RequestDelay > c.Hover.Delay {
		return invalid("hover.request_delay must not exceed hover.delay", c.Hover.RequestDelay)
	}

	if _, ok := theme.Lookup(c.Theme); !ok {
		return invalid("unknown theme (valid: "+strings.Join(theme.Names(), ", ")+")", c.Theme)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch logging.Format(strings.ToLower(c.Log.Format)) {
	case logging.FormatJSON, logging.FormatText:
	default:
		return invalid("log.format must be json or text", c.Log.Format)
	}

	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "metrics.listen must be host:port").
				WithContext("value", c.Metrics.Listen)
		}
	}
	return nil
}

func invalid(message string, value any) error {
	return errors.New(errors.ErrCodeConfigInvalid, message).WithContext("value", value)
}

// ResolvedTheme returns the configured built-in theme.
func (c *Config) ResolvedTheme() *theme.Theme {
	if t, ok := theme.Lookup(c.Theme); ok {
		return t
	}
	return theme.DefaultTheme()
}

// LogLevel returns the parsed log level, info when invalid.
func (c *Config) LogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// LogFormat returns the slog handler format.
func (c *Config) LogFormat() logging.Format {
	return logging.Format(strings.ToLower(c.Log.Format))
}

// LSPCommand returns the language server argv, or nil when unset.
func (c *Config) LSPCommand() []string {
	if strings.TrimSpace(c.LSP.Command) == "" {
		return nil
	}
	return append([]string{c.LSP.Command}, c.LSP.Args...)
}

// loadConfigEnvVars reads KEY=value lines from ~/.hoverkit/config.env.
func loadConfigEnvVars() map[string]string {
	home := homeDir()
	if home == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(home, dirName, envFile))
	if err != nil {
		return nil
	}

	vars := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		vars[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	return vars
}
