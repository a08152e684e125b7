package config

// Default configuration values.
const (
	DefaultStateFile       = "datalens.db"
	DefaultOutput          = "text"
	DefaultCatalogDriver   = "postgres"
	DefaultScanWorkers     = 4
	DefaultTransitiveDepth = 5
	DefaultQueryDepth      = 3
	DefaultMaxPathLength   = 10
	DefaultPIIListFile     = "pii.yaml"
)

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		StatePath: DefaultStateFile,
		Output:    DefaultOutput,
		Catalog: CatalogConfig{
			Driver: DefaultCatalogDriver,
		},
		Scan: ScanConfig{
			Workers:         DefaultScanWorkers,
			TransitiveDepth: DefaultTransitiveDepth,
		},
		PII: PIIConfig{
			ListPath: DefaultPIIListFile,
		},
		Query: QueryConfig{
			MaxDepth:      DefaultQueryDepth,
			MaxPathLength: DefaultMaxPathLength,
		},
	}
}
