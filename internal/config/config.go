// Package config loads the lazypanel configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Generator backend names accepted in the configuration.
const (
	GeneratorAuto   = "auto"
	GeneratorGemini = "gemini"
	GeneratorCLI    = "cli"
	GeneratorOff    = "off"
)

// AppConfig defines the global lazypanel configuration options.
type AppConfig struct {
	StaleWindowMS  int    // Cache staleness window in milliseconds
	QuietPeriodMS  int    // Filesystem change debounce quiet period in milliseconds
	CommitsInitial int    // Commit history page size on first load
	CommitsMax     int    // Upper bound reached via load-more
	AutoRefresh    bool   // Watch the repository and refresh on changes
	Generator      string // Message generator backend: auto, gemini, cli, off
	GeminiModel    string // Model name for the gemini backend
	APIKeyEnv      string // Environment variable holding the Gemini API key
	ClaudePath     string // Binary used by the cli backend
	DebugLog       string // Debug log file path
}

// DefaultConfig returns the default configuration values.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		StaleWindowMS:  2000,
		QuietPeriodMS:  1000,
		CommitsInitial: 20,
		CommitsMax:     50,
		AutoRefresh:    true,
		Generator:      GeneratorAuto,
		GeminiModel:    "gemini-2.0-flash",
		APIKeyEnv:      "GEMINI_API_KEY",
		ClaudePath:     "claude",
	}
}

// StaleWindow returns the cache staleness window as a duration.
func (c *AppConfig) StaleWindow() time.Duration {
	return time.Duration(c.StaleWindowMS) * time.Millisecond
}

// QuietPeriod returns the debounce quiet period as a duration.
func (c *AppConfig) QuietPeriod() time.Duration {
	return time.Duration(c.QuietPeriodMS) * time.Millisecond
}

func getConfigDir() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}

// LoadConfig reads the configuration from configPath, or from the default
// XDG location when configPath is empty. Missing files yield the defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	var paths []string
	if configPath != "" {
		paths = []string{configPath}
	} else {
		base := filepath.Join(getConfigDir(), "lazypanel")
		paths = []string{
			filepath.Join(base, "config.yaml"),
			filepath.Join(base, "config.yml"),
		}
	}

	cfg := DefaultConfig()
	for _, path := range paths {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the user's own flag or config dir
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return cfg, err
		}

		var yamlData map[string]any
		if err := yaml.Unmarshal(data, &yamlData); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		applyYAML(cfg, yamlData)
		break
	}
	return cfg, nil
}

func applyYAML(cfg *AppConfig, data map[string]any) {
	for key, value := range data {
		_ = applyValue(cfg, key, value)
	}
}

// ApplyOverrides applies repeatable --config key=value overrides. Keys may
// carry an optional "lp." prefix.
func ApplyOverrides(cfg *AppConfig, overrides []string) error {
	for _, override := range overrides {
		key, value, found := strings.Cut(override, "=")
		if !found {
			return fmt.Errorf("invalid config override %q (want key=value)", override)
		}
		key = strings.TrimPrefix(strings.TrimSpace(key), "lp.")
		if err := applyValue(cfg, key, strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	return nil
}

func applyValue(cfg *AppConfig, key string, value any) error {
	switch key {
	case "stale_window_ms":
		cfg.StaleWindowMS = coerceInt(value, cfg.StaleWindowMS)
	case "quiet_period_ms":
		cfg.QuietPeriodMS = coerceInt(value, cfg.QuietPeriodMS)
	case "commits_initial":
		cfg.CommitsInitial = coerceInt(value, cfg.CommitsInitial)
	case "commits_max":
		cfg.CommitsMax = coerceInt(value, cfg.CommitsMax)
	case "auto_refresh":
		cfg.AutoRefresh = coerceBool(value, cfg.AutoRefresh)
	case "generator":
		generator := coerceString(value, cfg.Generator)
		switch generator {
		case GeneratorAuto, GeneratorGemini, GeneratorCLI, GeneratorOff:
			cfg.Generator = generator
		default:
			return fmt.Errorf("unknown generator %q", generator)
		}
	case "gemini_model":
		cfg.GeminiModel = coerceString(value, cfg.GeminiModel)
	case "api_key_env":
		cfg.APIKeyEnv = coerceString(value, cfg.APIKeyEnv)
	case "claude_path":
		cfg.ClaudePath = coerceString(value, cfg.ClaudePath)
	case "debug_log":
		cfg.DebugLog = coerceString(value, cfg.DebugLog)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func coerceString(value any, defaultVal string) string {
	if value == nil {
		return defaultVal
	}
	text := strings.TrimSpace(fmt.Sprintf("%v", value))
	if text == "" {
		return defaultVal
	}
	return text
}

func coerceInt(value any, defaultVal int) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return defaultVal
}

func coerceBool(value any, defaultVal bool) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return defaultVal
}
