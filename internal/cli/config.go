package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
//
// Matching settings (Sort, Limit, CaseSensitive) are defaults for the search
// commands; flags override them per invocation. They are threaded explicitly
// into the engine rather than read from globals.
type Config struct {
	Library       string `json:"library,omitempty"`        // path to the catalog file
	Sort          string `json:"sort,omitempty"`           // default sort key
	Limit         *int   `json:"limit,omitempty"`          // default result cap, 0 = unlimited
	CaseSensitive bool   `json:"case_sensitive,omitempty"` // disable smartcase
}

// EffectiveLimit resolves the default result cap; absent means unlimited.
func (c Config) EffectiveLimit() int {
	if c.Limit == nil {
		return 0
	}

	return *c.Limit
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".tv.json"

// globalConfigPath returns the global config location:
// $XDG_CONFIG_HOME/tv/config.json if set, otherwise ~/.config/tv/config.json.
// Returns empty string if the home directory cannot be determined.
func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "tv", "config.json")
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tv", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "tv", "config.json")
	}

	return ""
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/tv/config.json)
// 3. Project config file (.tv.json in the work directory, if it exists)
// 4. Explicit config file via configPath (if non-empty)
// 5. CLI overrides.
func LoadConfig(
	workDir, configPath string, overrides Config, hasLibraryOverride bool, env map[string]string,
) (Config, ConfigSources, error) {
	var cfg Config

	var sources ConfigSources

	globalCfg, globalPath, err := loadConfigFile(globalConfigPath(env), false)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectFile := filepath.Join(workDir, ConfigFileName)
	mustExist := false

	if configPath != "" {
		projectFile = configPath
		if !filepath.IsAbs(projectFile) {
			projectFile = filepath.Join(workDir, projectFile)
		}

		mustExist = true
	}

	projectCfg, projectPath, err := loadConfigFile(projectFile, mustExist)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	if hasLibraryOverride {
		cfg.Library = overrides.Library
	}

	return cfg, sources, nil
}

// loadConfigFile loads one config file. Missing files are not an error
// unless mustExist is set. Returns the config, the path when loaded, and
// any error.
func loadConfigFile(path string, mustExist bool) (Config, string, error) {
	if path == "" {
		return Config{}, "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, "", fmt.Errorf("%w: %s", errConfigFileNotFound, path)
		}

		return Config{}, "", nil
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, "", fmt.Errorf("%w %s: %w", errConfigInvalid, path, parseErr)
	}

	return cfg, path, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON so config files may carry comments.
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if cfg.Limit != nil && *cfg.Limit < 0 {
		return Config{}, fmt.Errorf("limit must be non-negative, got %d", *cfg.Limit)
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.Library != "" {
		base.Library = overlay.Library
	}

	if overlay.Sort != "" {
		base.Sort = overlay.Sort
	}

	// Limit is a pointer so an explicit "limit": 0 in a higher-precedence
	// file resets a lower one back to unlimited.
	if overlay.Limit != nil {
		base.Limit = overlay.Limit
	}

	if overlay.CaseSensitive {
		base.CaseSensitive = true
	}

	return base
}

// FormatConfig returns the config as formatted JSON.
func FormatConfig(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}

// WriteProjectConfig writes cfg to path atomically, so a crash mid-write
// never leaves a truncated config behind.
func WriteProjectConfig(path string, cfg Config) error {
	formatted, err := FormatConfig(cfg)
	if err != nil {
		return err
	}

	err = atomic.WriteFile(path, strings.NewReader(formatted+"\n"))
	if err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}

	return nil
}
