// Package fieldcache materializes per-node field values for a query session.
//
// A Cache is populated lazily: the first Populate call enumerates the scene and
// seeds the base fields, later calls resolve one field for a set of nodes. A
// value, once stored for a (node, field) pair, is never recomputed or replaced.
// Bulk fields are always computed for every node at once.
//
// A Cache is not safe for concurrent use.
package fieldcache

import (
	"fmt"
	"sort"
	"strings"
)

// AttrPrefix addresses a dynamic attribute, as in "attr:visibility".
const AttrPrefix = "attr:"

// FieldInfo describes one resolvable field.
type FieldInfo struct {
	Name        string
	Multi       bool // resolves to a set of values
	Bulk        bool // computed for every node in one pass
	Description string
}

var registry = map[string]FieldInfo{
	"name":       {Name: "name", Description: "short node name (last path component)"},
	"type":       {Name: "type", Description: "primitive node type"},
	"path":       {Name: "path", Description: "full node path"},
	"parent":     {Name: "parent", Description: "immediate DAG parent, none for roots"},
	"parents":    {Name: "parents", Multi: true, Description: "every DAG ancestor"},
	"children":   {Name: "children", Multi: true, Description: "immediate DAG children"},
	"shapes":     {Name: "shapes", Multi: true, Description: "immediate shape children"},
	"sets":       {Name: "sets", Multi: true, Description: "direct object set memberships"},
	"allsets":    {Name: "allsets", Multi: true, Bulk: true, Description: "transitive object set memberships"},
	"types":      {Name: "types", Multi: true, Description: "inherited type chain"},
	"inputs":     {Name: "inputs", Multi: true, Description: "upstream connected nodes"},
	"outputs":    {Name: "outputs", Multi: true, Description: "downstream connected nodes"},
	"default":    {Name: "default", Bulk: true, Description: "true for nodes every scene starts with"},
	"referenced": {Name: "referenced", Bulk: true, Description: "true for nodes from file references"},
	"layer":      {Name: "layer", Bulk: true, Description: "display layer, inherited from the closest assigned ancestor"},
}

// UnsupportedFieldError reports a field name with no resolution rule.
type UnsupportedFieldError struct {
	Field string
}

func (e *UnsupportedFieldError) Error() string {
	return fmt.Sprintf("unsupported field %q", e.Field)
}

// Lookup returns the description of a field name, including attr:<name> fields.
func Lookup(field string) (FieldInfo, error) {
	if attr, ok := strings.CutPrefix(field, AttrPrefix); ok {
		if attr == "" {
			return FieldInfo{}, &UnsupportedFieldError{Field: field}
		}
		return FieldInfo{Name: field, Description: "dynamic attribute " + attr}, nil
	}
	info, ok := registry[field]
	if !ok {
		return FieldInfo{}, &UnsupportedFieldError{Field: field}
	}
	return info, nil
}

// Fields lists the statically known fields sorted by name.
func Fields() []FieldInfo {
	out := make([]FieldInfo, 0, len(registry))
	for _, info := range registry {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
