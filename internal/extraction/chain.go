package extraction

import (
	"fmt"

	"folio/internal/config"
)

// BuildChain constructs the configured backends in priority order. Backends
// whose configuration is absent (such as an ML service with no URL) are
// skipped rather than failing the whole chain.
func BuildChain(cfg *config.Config) ([]Backend, error) {
	backends := make([]Backend, 0, len(cfg.Extraction.BackendOrder))
	for _, name := range cfg.Extraction.BackendOrder {
		switch name {
		case "textlayer":
			backend, err := NewTextLayerBackend(cfg.Extraction.TextLayerBinary, cfg.Extraction.TextLayerTimeout)
			if err != nil {
				return nil, fmt.Errorf("configure textlayer backend: %w", err)
			}
			backends = append(backends, backend)
		case "mlservice":
			if cfg.Extraction.MLServiceURL == "" {
				continue
			}
			backend, err := NewMLServiceBackend(cfg.Extraction.MLServiceURL, cfg.Extraction.MLServiceAPIKey, cfg.Extraction.MLServiceTimeout)
			if err != nil {
				return nil, fmt.Errorf("configure mlservice backend: %w", err)
			}
			backends = append(backends, backend)
		case "rawtext":
			backends = append(backends, NewRawTextBackend())
		default:
			return nil, fmt.Errorf("unknown extraction backend %q", name)
		}
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no extraction backends available")
	}
	return backends, nil
}
