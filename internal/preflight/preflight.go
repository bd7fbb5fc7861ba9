// Package preflight verifies the runtime environment before a batch run:
// directory permissions, the text-layer tool, and ML service reachability.
// Checks report rather than abort; the caller decides what is fatal.
package preflight

import (
	"context"
	"path/filepath"

	"folio/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks only run for features the configuration actually enables.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Registry directory", filepath.Dir(cfg.Registry.Path)))

	for _, backend := range cfg.Extraction.BackendOrder {
		switch backend {
		case "textlayer":
			results = append(results, CheckBinary("Text layer tool", cfg.Extraction.TextLayerBinary))
		case "mlservice":
			results = append(results, CheckMLService(ctx, cfg.Extraction.MLServiceURL, cfg.Extraction.MLServiceAPIKey))
		}
	}

	return results
}

// AllPassed reports whether every check in the slice passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
