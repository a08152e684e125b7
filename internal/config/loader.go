package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// findConfigFile finds the config file to use.
// Priority: explicit path > datalens.yaml > datalens.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"datalens.yaml", "datalens.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// An explicit cfgFile that does not exist is an error; the implicit
// datalens.yaml is optional.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path":            DefaultStateFile,
		"output":                DefaultOutput,
		"verbose":               false,
		"catalog.driver":        DefaultCatalogDriver,
		"scan.workers":          DefaultScanWorkers,
		"scan.transitive_depth": DefaultTransitiveDepth,
		"pii.list_path":         DefaultPIIListFile,
		"query.max_depth":       DefaultQueryDepth,
		"query.max_path_length": DefaultMaxPathLength,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if cfgFile != "" {
		return nil, fmt.Errorf("config file %s not found", cfgFile)
	}

	if err := k.Load(env.Provider("DATALENS_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps an environment variable to its config key:
// DATALENS_SCAN_WORKERS -> scan.workers, DATALENS_STATE_PATH -> state_path.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "DATALENS_"))
	switch s {
	case "state_path", "output", "verbose":
		return s
	}
	if i := strings.Index(s, "_"); i > 0 {
		return s[:i] + "." + s[i+1:]
	}
	return s
}

// flagKey maps a CLI flag name to its config key.
func flagKey(name string) string {
	switch name {
	case "state":
		return "state_path"
	case "workers":
		return "scan.workers"
	case "pii-list":
		return "pii.list_path"
	case "dsn":
		return "catalog.dsn"
	case "objects-file":
		return "catalog.objects_file"
	case "catalog-driver":
		return "catalog.driver"
	default:
		return strings.ReplaceAll(name, "-", "_")
	}
}

// Validate rejects configurations no component could run with.
func (c *Config) Validate() error {
	if c.Output != "text" && c.Output != "json" {
		return fmt.Errorf("invalid output format %q (want text or json)", c.Output)
	}
	switch c.Catalog.Driver {
	case "postgres", "file":
	default:
		return fmt.Errorf("invalid catalog driver %q (want postgres or file)", c.Catalog.Driver)
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative")
	}
	return nil
}
