package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for durable state and logs.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	LogDir       string `toml:"log_dir"`
	StagingDir   string `toml:"staging_dir"`
}

// Discovery contains configuration for the candidate-document listing client.
type Discovery struct {
	BaseURL        string   `toml:"base_url"`
	Categories     []string `toml:"categories"`
	PageSize       int      `toml:"page_size"`
	RequestTimeout int      `toml:"request_timeout"`
}

// Registry contains configuration for the identity registry store.
type Registry struct {
	Path               string  `toml:"path"`
	TitleMatchMinScore float64 `toml:"title_match_min_score"`
}

// Extraction contains configuration for the extraction fallback chain.
type Extraction struct {
	MinQualityScore float64  `toml:"min_quality_score"`
	BackendOrder    []string `toml:"backend_order"`

	TextLayerBinary  string `toml:"text_layer_binary"`
	TextLayerTimeout int    `toml:"text_layer_timeout"`

	MLServiceURL     string `toml:"ml_service_url"`
	MLServiceAPIKey  string `toml:"ml_service_api_key"`
	MLServiceTimeout int    `toml:"ml_service_timeout"`
}

// Pipeline contains configuration for the concurrent scheduler.
type Pipeline struct {
	Workers               int     `toml:"workers"`
	QueueCapacity         int     `toml:"queue_capacity"`
	RatePerSecond         float64 `toml:"rate_per_second"`
	RateBurst             int     `toml:"rate_burst"`
	MaxAttempts           int     `toml:"max_attempts"`
	BackoffBaseSeconds    int     `toml:"backoff_base_seconds"`
	BackoffCeilingSeconds int     `toml:"backoff_ceiling_seconds"`
	JobTimeout            int     `toml:"job_timeout"`
}

// Ledger contains configuration for the sqlite run ledger.
type Ledger struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Folio.
//
// Configuration sections by subsystem:
//   - Paths: workspace, staging, and log directories
//   - Discovery: candidate listing source and paging
//   - Registry: identity registry checkpoint location and fuzzy-match threshold
//   - Extraction: backend order, per-backend deadlines, quality floor
//   - Pipeline: worker pool sizing, backpressure, rate limiting, retry policy
//   - Ledger: per-run outcome audit store
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Discovery  Discovery  `toml:"discovery"`
	Registry   Registry   `toml:"registry"`
	Extraction Extraction `toml:"extraction"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Ledger     Ledger     `toml:"ledger"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/folio/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// config file was found at the resolved path.
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

	projectPath, err := filepath.Abs("folio.toml")
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

// EnsureDirectories creates the directories required for a run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.LogDir, c.Paths.StagingDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RegistryLockPath returns the lock file guarding the registry checkpoint.
func (c *Config) RegistryLockPath() string {
	return c.Registry.Path + ".lock"
}

func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.WorkspaceDir,
		&c.Paths.LogDir,
		&c.Paths.StagingDir,
		&c.Registry.Path,
		&c.Ledger.Path,
	}
	for _, field := range pathFields {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Discovery.BaseURL = strings.TrimSpace(c.Discovery.BaseURL)
	c.Extraction.TextLayerBinary = strings.TrimSpace(c.Extraction.TextLayerBinary)
	c.Extraction.MLServiceURL = strings.TrimSpace(c.Extraction.MLServiceURL)
	c.Extraction.MLServiceAPIKey = strings.TrimSpace(c.Extraction.MLServiceAPIKey)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	trimmedCategories := make([]string, 0, len(c.Discovery.Categories))
	for _, cat := range c.Discovery.Categories {
		if cat = strings.TrimSpace(cat); cat != "" {
			trimmedCategories = append(trimmedCategories, cat)
		}
	}
	c.Discovery.Categories = trimmedCategories

	order := make([]string, 0, len(c.Extraction.BackendOrder))
	for _, name := range c.Extraction.BackendOrder {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			order = append(order, name)
		}
	}
	c.Extraction.BackendOrder = order

	if key, ok := os.LookupEnv("FOLIO_ML_SERVICE_API_KEY"); ok && c.Extraction.MLServiceAPIKey == "" {
		c.Extraction.MLServiceAPIKey = strings.TrimSpace(key)
	}

	if c.Registry.Path == "" && c.Paths.WorkspaceDir != "" {
		c.Registry.Path = filepath.Join(c.Paths.WorkspaceDir, "registry.json")
	}
	if c.Ledger.Path == "" && c.Paths.WorkspaceDir != "" {
		c.Ledger.Path = filepath.Join(c.Paths.WorkspaceDir, "ledger.db")
	}
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
