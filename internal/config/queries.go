package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aidanlsb/sceneql/internal/slugs"
)

// ErrQueryNotFound indicates no saved query has the requested name.
var ErrQueryNotFound = errors.New("saved query not found")

// SavedQuery is a named query stored in the config file.
type SavedQuery struct {
	Query       string `toml:"query"`
	Description string `toml:"description,omitempty"`
}

// Query returns the saved query called name. Names are compared by slug,
// so "Hidden Meshes" finds "hidden-meshes".
func (c *Config) Query(name string) (SavedQuery, error) {
	key := slugs.QueryName(name)
	if key != "" {
		if q, ok := c.Queries[key]; ok {
			return q, nil
		}
		for stored, q := range c.Queries {
			if slugs.QueryName(stored) == key {
				return q, nil
			}
		}
	}
	return SavedQuery{}, fmt.Errorf("%w: %s", ErrQueryNotFound, name)
}

// SetQuery stores text under the slug of name and returns the stored name.
func (c *Config) SetQuery(name, text, description string) (string, error) {
	key := slugs.QueryName(name)
	if key == "" {
		return "", fmt.Errorf("invalid query name %q", name)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("query %q is empty", key)
	}
	if c.Queries == nil {
		c.Queries = make(map[string]SavedQuery)
	}
	c.Queries[key] = SavedQuery{Query: strings.TrimSpace(text), Description: description}
	return key, nil
}

// QueryNames returns the saved query names in order.
func (c *Config) QueryNames() []string {
	names := make([]string, 0, len(c.Queries))
	for name := range c.Queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
