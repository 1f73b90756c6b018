// Package file implements source.Source over a directory of exported tables.
//
// Each entity lives in its own file named after the lowercased table name:
//
//	export/
//	├── companies.json
//	├── jobs.yaml
//	└── tags.yml
//
// A file holds either a bare list of records or the Airtable list response
// shape, {"records": [...]}. JSON is parsed by the YAML decoder, so both
// formats share one code path.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jobboard/jobboard/internal/source"
)

// Extensions are tried in this order for every entity.
var Extensions = []string{".json", ".yaml", ".yml"}

// Source reads exported tables from Dir.
type Source struct {
	Dir string
}

// New returns a Source reading from dir.
func New(dir string) *Source {
	return &Source{Dir: dir}
}

// Path returns the export file for entity, or an error if none exists.
func (s *Source) Path(entity source.Entity) (string, error) {
	base := strings.ToLower(string(entity))
	for _, ext := range Extensions {
		path := filepath.Join(s.Dir, base+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("no export file for %s in %s (tried %s.{json,yaml,yml})", entity, s.Dir, base)
}

// FetchAll implements source.Source.
func (s *Source) FetchAll(ctx context.Context, entity source.Entity) ([]source.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.Path(entity)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	records, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

// Parse decodes an export document into records.
func Parse(data []byte) ([]source.Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		// Empty document.
		return nil, nil
	}

	node := &doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	if node.Kind == yaml.MappingNode {
		list, err := recordsField(node)
		if err != nil {
			return nil, err
		}
		node = list
	}

	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of records", node.Line)
	}

	var records []source.Record
	if err := node.Decode(&records); err != nil {
		return nil, err
	}
	for i, rec := range records {
		if rec.ID == "" {
			return nil, fmt.Errorf("record %d has no id", i)
		}
		if rec.Fields == nil {
			records[i].Fields = map[string]any{}
		}
	}
	return records, nil
}

func recordsField(mapping *yaml.Node) (*yaml.Node, error) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == "records" {
			return mapping.Content[i+1], nil
		}
	}
	return nil, fmt.Errorf("line %d: mapping has no \"records\" key", mapping.Line)
}
