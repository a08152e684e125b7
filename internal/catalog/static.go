package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// StaticSource serves a fixed object catalog from memory. It backs scans
// driven by an exported definition dump and is the test double for the
// database-backed sources.
type StaticSource struct {
	mu          sync.RWMutex
	objects     []Object
	definitions map[string]string
}

// NewStaticSource creates an empty static catalog.
func NewStaticSource() *StaticSource {
	return &StaticSource{definitions: make(map[string]string)}
}

// Add registers an object with its definition text, replacing any previous
// definition for the same object.
func (s *StaticSource) Add(obj Object, definition string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(obj.ID())
	if _, exists := s.definitions[key]; !exists {
		s.objects = append(s.objects, obj)
	}
	s.definitions[key] = definition
}

// ListObjects returns the registered objects matching the filters.
func (s *StaticSource) ListObjects(_ context.Context, schemaFilter, objectFilter string) ([]Object, error) {
	s.mu.RLock()
	objects := make([]Object, len(s.objects))
	copy(objects, s.objects)
	s.mu.RUnlock()

	objects = FilterObjects(objects, schemaFilter, objectFilter)
	sort.Slice(objects, func(i, j int) bool { return objects[i].ID() < objects[j].ID() })
	return objects, nil
}

// ObjectDefinition returns the registered definition text.
func (s *StaticSource) ObjectDefinition(_ context.Context, obj Object) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	definition, ok := s.definitions[strings.ToLower(obj.ID())]
	if !ok {
		return "", fmt.Errorf("object %s not in catalog", obj.ID())
	}
	return definition, nil
}

// Close is a no-op for the in-memory catalog.
func (s *StaticSource) Close() error { return nil }
