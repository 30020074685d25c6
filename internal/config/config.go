// Package config loads scull shell configuration from JSONC files and
// command-line overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
//
//nolint:tagliatelle // snake_case for config file
type Config struct {
	Devices  int    `json:"devices"`
	Quantum  int    `json:"quantum"`
	QSet     int    `json:"qset"`
	Size     int64  `json:"size"`
	MaxBytes int64  `json:"max_bytes"`
	LogLevel string `json:"log_level"`
	History  string `json:"history,omitempty"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// FileName is the default project config file name.
const FileName = ".scull.json"

// Keys are the JSON names of every option, as used by [Load] overrides.
const (
	KeyDevices  = "devices"
	KeyQuantum  = "quantum"
	KeyQSet     = "qset"
	KeySize     = "size"
	KeyMaxBytes = "max_bytes"
	KeyLogLevel = "log_level"
	KeyHistory  = "history"
)

var logLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}

// Default returns the default configuration: four devices with the classic
// scull geometry and no memory limit.
func Default() Config {
	return Config{
		Devices:  4,
		Quantum:  4000,
		QSet:     1000,
		LogLevel: "info",
	}
}

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/scull/config.json if set, otherwise
// ~/.config/scull/config.json. Returns "" if neither can be determined.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "scull", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "scull", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "scull", "config.json")
	}

	return ""
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/scull/config.json or ~/.config/scull/config.json)
// 3. Project config file in workDir (.scull.json, if exists)
// 4. Explicit config file via configPath (replaces 3, must exist)
// 5. overrides, for the keys listed in set.
func Load(workDir, configPath string, overrides Config, set []string, env map[string]string) (Config, Sources, error) {
	cfg := Default()

	var sources Sources

	if path := globalPath(env); path != "" {
		fileCfg, present, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, Sources{}, err
		}

		if loaded {
			sources.Global = path
			cfg = merge(cfg, fileCfg, present)
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false

	if configPath != "" {
		projectPath, mustExist = configPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}

		_, statErr := os.Stat(projectPath)
		if statErr != nil {
			return Config{}, Sources{}, fmt.Errorf("%w: %s", ErrFileNotFound, configPath)
		}
	}

	fileCfg, present, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, Sources{}, err
	}

	if loaded {
		sources.Project = projectPath
		cfg = merge(cfg, fileCfg, present)
	}

	overridden := make(map[string]bool, len(set))
	for _, key := range set {
		overridden[key] = true
	}

	cfg = merge(cfg, overrides, overridden)

	err = Validate(cfg)
	if err != nil {
		return Config{}, Sources{}, err
	}

	return cfg, sources, nil
}

// loadFile loads a config file. If mustExist is false, missing files return
// loaded=false. present lists the keys the file sets.
func loadFile(path string, mustExist bool) (Config, map[string]bool, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil, false, nil
		}

		if mustExist {
			return Config{}, nil, false, fmt.Errorf("%w: %s", ErrFileRead, path)
		}

		return Config{}, nil, false, nil
	}

	cfg, present, parseErr := Parse(data)
	if parseErr != nil {
		return Config{}, nil, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, parseErr)
	}

	return cfg, present, true, nil
}

// Parse decodes JSONC (JSON with comments and trailing commas) and reports
// which keys were present.
func Parse(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	var raw map[string]json.RawMessage

	_ = json.Unmarshal(standardized, &raw)

	present := make(map[string]bool, len(raw))
	for key := range raw {
		present[key] = true
	}

	return cfg, present, nil
}

func merge(base, overlay Config, present map[string]bool) Config {
	if present[KeyDevices] {
		base.Devices = overlay.Devices
	}

	if present[KeyQuantum] {
		base.Quantum = overlay.Quantum
	}

	if present[KeyQSet] {
		base.QSet = overlay.QSet
	}

	if present[KeySize] {
		base.Size = overlay.Size
	}

	if present[KeyMaxBytes] {
		base.MaxBytes = overlay.MaxBytes
	}

	if present[KeyLogLevel] {
		base.LogLevel = overlay.LogLevel
	}

	if present[KeyHistory] {
		base.History = overlay.History
	}

	return base
}

// Validate checks ranges and enumerations.
func Validate(cfg Config) error {
	switch {
	case cfg.Devices < 1:
		return fmt.Errorf("%w: devices must be >= 1, got %d", ErrInvalid, cfg.Devices)
	case cfg.Quantum < 1:
		return fmt.Errorf("%w: quantum must be >= 1, got %d", ErrInvalid, cfg.Quantum)
	case cfg.QSet < 1:
		return fmt.Errorf("%w: qset must be >= 1, got %d", ErrInvalid, cfg.QSet)
	case cfg.Size < 0:
		return fmt.Errorf("%w: size must be >= 0, got %d", ErrInvalid, cfg.Size)
	case cfg.MaxBytes < 0:
		return fmt.Errorf("%w: max_bytes must be >= 0, got %d", ErrInvalid, cfg.MaxBytes)
	case !slices.Contains(logLevels, cfg.LogLevel):
		return fmt.Errorf("%w: log_level %q is not one of %v", ErrInvalid, cfg.LogLevel, logLevels)
	}

	return nil
}

// Format returns the config as formatted JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}
