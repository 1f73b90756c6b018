// Package source defines the external data source the job board mirrors.
//
// A Source returns every record of one entity table. Records are loosely
// typed: each carries its external id and a map of named fields whose values
// are whatever the upstream JSON decoded to. The accessors on Record turn
// those values into the optional strings and key lists the mapper needs.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Entity names an upstream table.
type Entity string

// The three tables mirrored into the local store.
const (
	Companies Entity = "Companies"
	Jobs      Entity = "Jobs"
	Tags      Entity = "Tags"
)

// Entities lists the mirrored tables in sync order.
var Entities = []Entity{Companies, Tags, Jobs}

// Source is the capability to fetch all records of an entity.
type Source interface {
	// FetchAll returns every record of entity. The order is the upstream
	// order; callers must not depend on it.
	FetchAll(ctx context.Context, entity Entity) ([]Record, error)
}

// Record is one upstream row.
type Record struct {
	ID          string         `json:"id" yaml:"id"`
	Fields      map[string]any `json:"fields" yaml:"fields"`
	CreatedTime string         `json:"createdTime,omitempty" yaml:"createdTime,omitempty"`
}

// Has reports whether the record carries field name at all.
func (r Record) Has(name string) bool {
	_, ok := r.Fields[name]
	return ok
}

// String returns field name as a string, or nil when the field is absent or
// null. Numbers and booleans are formatted; lists are joined with ", ".
func (r Record) String(name string) *string {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return nil
	}
	s := stringify(v)
	return &s
}

// Strings returns field name as a list of strings. A scalar value is treated
// as a one-element list; an absent field yields nil.
func (r Record) Strings(name string) []string {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if item == nil {
				continue
			}
			out = append(out, stringify(item))
		}
		return out
	case []string:
		return append([]string(nil), list...)
	default:
		return []string{stringify(v)}
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if item != nil {
				parts = append(parts, stringify(item))
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// Static is an in-memory Source, used by tests and by callers that already
// hold the records.
type Static map[Entity][]Record

// FetchAll implements Source. Unknown entities yield no records.
func (s Static) FetchAll(ctx context.Context, entity Entity) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s[entity], nil
}
