package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownBackends = map[string]struct{}{
	"textlayer": {},
	"mlservice": {},
	"rawtext":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validateRegistry(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		return errors.New("paths.workspace_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	if c.Discovery.BaseURL == "" {
		return errors.New("discovery.base_url must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"discovery.page_size":       c.Discovery.PageSize,
		"discovery.request_timeout": c.Discovery.RequestTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRegistry() error {
	if strings.TrimSpace(c.Registry.Path) == "" {
		return errors.New("registry.path must be set")
	}
	if c.Registry.TitleMatchMinScore <= 0 || c.Registry.TitleMatchMinScore > 1 {
		return errors.New("registry.title_match_min_score must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.MinQualityScore < 0 || c.Extraction.MinQualityScore > 1 {
		return errors.New("extraction.min_quality_score must be between 0 and 1")
	}
	if len(c.Extraction.BackendOrder) == 0 {
		return errors.New("extraction.backend_order must include at least one backend")
	}
	seen := make(map[string]struct{}, len(c.Extraction.BackendOrder))
	for _, name := range c.Extraction.BackendOrder {
		if _, ok := knownBackends[name]; !ok {
			return fmt.Errorf("extraction.backend_order contains unknown backend %q", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("extraction.backend_order lists backend %q twice", name)
		}
		seen[name] = struct{}{}
	}
	if err := ensurePositiveMap(map[string]int{
		"extraction.text_layer_timeout": c.Extraction.TextLayerTimeout,
		"extraction.ml_service_timeout": c.Extraction.MLServiceTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"pipeline.workers":                 c.Pipeline.Workers,
		"pipeline.queue_capacity":          c.Pipeline.QueueCapacity,
		"pipeline.max_attempts":            c.Pipeline.MaxAttempts,
		"pipeline.backoff_base_seconds":    c.Pipeline.BackoffBaseSeconds,
		"pipeline.backoff_ceiling_seconds": c.Pipeline.BackoffCeilingSeconds,
		"pipeline.job_timeout":             c.Pipeline.JobTimeout,
	}); err != nil {
		return err
	}
	if c.Pipeline.RatePerSecond <= 0 {
		return errors.New("pipeline.rate_per_second must be positive")
	}
	if c.Pipeline.RateBurst < 1 {
		return errors.New("pipeline.rate_burst must be >= 1")
	}
	if c.Pipeline.BackoffCeilingSeconds < c.Pipeline.BackoffBaseSeconds {
		return errors.New("pipeline.backoff_ceiling_seconds must be >= pipeline.backoff_base_seconds")
	}
	return nil
}

func (c *Config) validateLedger() error {
	if !c.Ledger.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		return errors.New("ledger.path must be set when ledger.enabled is true")
	}
	if c.Ledger.RetentionDays <= 0 {
		return errors.New("ledger.retention_days must be positive when ledger.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
