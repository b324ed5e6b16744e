// Package config loads, normalizes, and validates ECGAnnotator configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. Obtain settings through this package so
// downstream code receives sanitized absolute paths and clear validation
// errors.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations.
type Paths struct {
	DataDir         string `toml:"data_dir"`
	AnnotationsFile string `toml:"annotations_file"`
	AuditFile       string `toml:"audit_file"`
}

// Display contains waveform rendering settings.
type Display struct {
	Seconds          float64 `toml:"seconds"`
	MaxPointsPerLead int     `toml:"max_points_per_lead"`
}

// Watch contains data directory watching settings.
type Watch struct {
	Enabled    bool `toml:"enabled"`
	DebounceMS int  `toml:"debounce_ms"`
}

// Log contains log output settings.
type Log struct {
	Level string `toml:"level"`
}

// Config encapsulates all configuration values for ECGAnnotator.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Display Display `toml:"display"`
	Watch   Watch   `toml:"watch"`
	Log     Log     `toml:"log"`
}

// WatchDebounce returns the folder settle delay as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ecgannotator/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing file is not
// an error; defaults apply and exists reports false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ecgannotator.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) != "" {
		if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
			return fmt.Errorf("paths.data_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.AnnotationsFile) == "" {
		c.Paths.AnnotationsFile = defaultAnnotationsFile
	}
	if c.Paths.AnnotationsFile, err = expandPath(c.Paths.AnnotationsFile); err != nil {
		return fmt.Errorf("paths.annotations_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.AuditFile) == "" {
		stem := strings.TrimSuffix(c.Paths.AnnotationsFile, filepath.Ext(c.Paths.AnnotationsFile))
		c.Paths.AuditFile = stem + "_audit.jsonl"
	}
	if c.Paths.AuditFile, err = expandPath(c.Paths.AuditFile); err != nil {
		return fmt.Errorf("paths.audit_file: %w", err)
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = defaultLogLevel
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
