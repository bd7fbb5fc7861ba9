package config

const (
	defaultWorkspaceDir       = "~/.local/share/folio"
	defaultLogDir             = "~/.local/share/folio/logs"
	defaultStagingDir         = "~/.local/share/folio/staging"
	defaultDiscoveryBaseURL   = "https://arxiv.org"
	defaultDiscoveryPageSize  = 200
	defaultDiscoveryTimeout   = 20
	defaultTitleMatchMinScore = 0.95
	defaultMinQualityScore    = 0.5
	defaultTextLayerBinary    = "pdftotext"
	defaultTextLayerTimeout   = 60
	defaultMLServiceTimeout   = 300
	defaultWorkers            = 4
	defaultQueueCapacity      = 16
	defaultRatePerSecond      = 2.0
	defaultRateBurst          = 4
	defaultMaxAttempts        = 3
	defaultBackoffBase        = 2
	defaultBackoffCeiling     = 60
	defaultJobTimeout         = 600
	defaultLedgerRetention    = 90
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
			StagingDir:   defaultStagingDir,
		},
		Discovery: Discovery{
			BaseURL:        defaultDiscoveryBaseURL,
			Categories:     []string{"cs.DC"},
			PageSize:       defaultDiscoveryPageSize,
			RequestTimeout: defaultDiscoveryTimeout,
		},
		Registry: Registry{
			TitleMatchMinScore: defaultTitleMatchMinScore,
		},
		Extraction: Extraction{
			MinQualityScore:  defaultMinQualityScore,
			BackendOrder:     []string{"textlayer", "mlservice", "rawtext"},
			TextLayerBinary:  defaultTextLayerBinary,
			TextLayerTimeout: defaultTextLayerTimeout,
			MLServiceTimeout: defaultMLServiceTimeout,
		},
		Pipeline: Pipeline{
			Workers:               defaultWorkers,
			QueueCapacity:         defaultQueueCapacity,
			RatePerSecond:         defaultRatePerSecond,
			RateBurst:             defaultRateBurst,
			MaxAttempts:           defaultMaxAttempts,
			BackoffBaseSeconds:    defaultBackoffBase,
			BackoffCeilingSeconds: defaultBackoffCeiling,
			JobTimeout:            defaultJobTimeout,
		},
		Ledger: Ledger{
			Enabled:       true,
			RetentionDays: defaultLedgerRetention,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
