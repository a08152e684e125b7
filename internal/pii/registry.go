// Package pii maintains the engine's known-PII column list.
// The list is loaded from a YAML file and can be hot-reloaded when the file
// changes, so newly classified columns take effect on the next scan without
// a restart.
package pii

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// listFile is the on-disk format of the PII list.
type listFile struct {
	Columns []listEntry `yaml:"columns"`
}

// listEntry maps one column (or a table wildcard) to a PII type.
type listEntry struct {
	// Column is "schema.table.column", or "schema.table.*" to mark every
	// column of a table.
	Column string `yaml:"column"`
	Type   string `yaml:"type"`
}

// Registry answers PII membership for column references. Lookups are exact
// first, then table-wildcard. Matching is case-insensitive; node identifiers
// elsewhere stay case-preserving.
type Registry struct {
	mu      sync.RWMutex
	exact   map[string]core.PIIType // "schema.table.column", lowercased
	tables  map[string]core.PIIType // "schema.table", lowercased
	path    string
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
// If logger is nil, a discard logger is used.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		exact:  make(map[string]core.PIIType),
		tables: make(map[string]core.PIIType),
		logger: logger,
	}
}

// Load reads the list file and replaces the current entries. A missing file
// leaves the registry empty without error, since a project may legitimately
// have no PII classification yet.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		r.logger.Debug("pii list not found, registry stays empty", "path", path)
		r.mu.Lock()
		r.path = path
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read pii list: %w", err)
	}

	var file listFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse pii list: %w", err)
	}

	exact := make(map[string]core.PIIType, len(file.Columns))
	tables := make(map[string]core.PIIType)
	for _, entry := range file.Columns {
		key := strings.ToLower(strings.TrimSpace(entry.Column))
		if key == "" {
			continue
		}
		piiType := parsePIIType(entry.Type)
		if table, ok := strings.CutSuffix(key, ".*"); ok {
			tables[table] = piiType
			continue
		}
		exact[key] = piiType
	}

	r.mu.Lock()
	r.exact = exact
	r.tables = tables
	r.path = path
	r.mu.Unlock()

	r.logger.Info("pii list loaded", "path", path, "columns", len(exact), "tables", len(tables))
	return nil
}

// Lookup reports whether schema.table.column is on the PII list and its type.
func (r *Registry) Lookup(schema, table, column string) (core.PIIType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(schema + "." + table + "." + column)
	if t, ok := r.exact[key]; ok {
		return t, true
	}
	if t, ok := r.tables[strings.ToLower(schema+"."+table)]; ok {
		return t, true
	}
	return "", false
}

// Len returns the number of exact column entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exact)
}

// Watch reloads the list whenever the file changes, until the context is
// cancelled. Reload failures are logged and the previous entries stay live.
func (r *Registry) Watch(ctx context.Context) error {
	r.mu.RLock()
	path := r.path
	r.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("registry has no list file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch pii list: %w", err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if err := r.Load(path); err != nil {
						r.logger.Warn("pii list reload failed", "error", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("pii list watcher error", "error", err)
			}
		}
	}()

	return nil
}

// parsePIIType maps a list-file type string to a PIIType, defaulting to other.
func parsePIIType(s string) core.PIIType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return core.PIITypeEmail
	case "ssn", "national-id":
		return core.PIITypeSSN
	case "phone":
		return core.PIITypePhone
	case "name":
		return core.PIITypeName
	case "dob", "birthdate":
		return core.PIITypeDOB
	case "address":
		return core.PIITypeAddress
	case "financial", "card":
		return core.PIITypeFinancial
	default:
		return core.PIITypeOther
	}
}
