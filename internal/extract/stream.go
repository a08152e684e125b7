package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// LoadObjects decodes a parsed-object stream as emitted by the external SQL
// parser: a JSON array of objects with their statements.
func LoadObjects(r io.Reader) ([]*ParsedObject, error) {
	var objects []*ParsedObject
	dec := json.NewDecoder(r)
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("failed to decode parsed object stream: %w", err)
	}
	return objects, nil
}

// StreamParser implements Parser over a preloaded set of parsed objects,
// keyed by schema-qualified name. It backs file-driven scans, where the
// external parser ran ahead of time and left its output as a JSON stream.
type StreamParser struct {
	mu      sync.RWMutex
	objects map[string]*ParsedObject
}

// NewStreamParser creates a parser over the given objects.
func NewStreamParser(objects []*ParsedObject) *StreamParser {
	m := make(map[string]*ParsedObject, len(objects))
	for _, obj := range objects {
		m[objectKey(obj.Schema, obj.Name)] = obj
	}
	return &StreamParser{objects: m}
}

// Parse returns the preloaded object for schema.name. An object absent from
// the stream yields an empty statement list, not an error: the external
// parser simply had nothing to say about it.
func (p *StreamParser) Parse(_ context.Context, schema, name, _ string) (*ParsedObject, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if obj, ok := p.objects[objectKey(schema, name)]; ok {
		return obj, nil
	}
	return &ParsedObject{Schema: schema, Name: name}, nil
}

// Len returns the number of preloaded objects.
func (p *StreamParser) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.objects)
}

func objectKey(schema, name string) string {
	return strings.ToLower(schema + "." + name)
}
