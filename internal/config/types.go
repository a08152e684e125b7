// Package config provides configuration management for datalens.
//
// Precedence (highest to lowest): flags > environment variables > config
// file > defaults. The config file is datalens.yaml (or .yml) in the
// working directory unless an explicit path is given.
package config

// Config is the root configuration.
type Config struct {
	// StatePath is the SQLite database holding scans, the persisted graph,
	// and the review queue. ":memory:" is accepted for throwaway runs.
	StatePath string `koanf:"state_path"`

	// Output selects the CLI rendering format: "text" or "json".
	Output string `koanf:"output"`

	Verbose bool `koanf:"verbose"`

	Catalog CatalogConfig `koanf:"catalog"`
	Scan    ScanConfig    `koanf:"scan"`
	PII     PIIConfig     `koanf:"pii"`
	Query   QueryConfig   `koanf:"query"`
}

// CatalogConfig selects where object definitions come from.
type CatalogConfig struct {
	// Driver is "postgres" for a live catalog or "file" for a parsed
	// object dump.
	Driver string `koanf:"driver"`

	// DSN is the postgres connection string for the postgres driver.
	DSN string `koanf:"dsn"`

	// ObjectsFile is the parsed-objects JSON file for the file driver.
	ObjectsFile string `koanf:"objects_file"`
}

// ScanConfig tunes scan execution.
type ScanConfig struct {
	// Workers bounds the per-scan extraction pool.
	Workers int `koanf:"workers"`

	// TransitiveDepth bounds the reverse walk behind the transitive
	// dependent count.
	TransitiveDepth int `koanf:"transitive_depth"`
}

// PIIConfig locates the known-PII column list.
type PIIConfig struct {
	ListPath string `koanf:"list_path"`

	// Watch reloads the list when the file changes.
	Watch bool `koanf:"watch"`
}

// QueryConfig tunes traversal queries.
type QueryConfig struct {
	// MaxDepth is the default hop limit for dependency traversals.
	MaxDepth int `koanf:"max_depth"`

	// MaxPathLength bounds PII flow path enumeration, in nodes.
	MaxPathLength int `koanf:"max_path_length"`
}
