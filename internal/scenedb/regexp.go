package scenedb

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"sync"

	"modernc.org/sqlite"

	"github.com/aidanlsb/sceneql/internal/scene"
)

func init() {
	// SQLite invokes "regexp" with (pattern, value) for the REGEXP operator.
	sqlite.MustRegisterDeterministicScalarFunction("regexp", 2, regexpFunc)
}

func regexpFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("regexp expects 2 arguments")
	}

	pattern, ok := driverValueToString(args[0])
	if !ok || pattern == "" {
		return int64(0), nil
	}
	value, ok := driverValueToString(args[1])
	if !ok {
		return int64(0), nil
	}

	re, err := lastPattern.compile(pattern)
	if err != nil {
		return nil, err
	}
	if re.MatchString(value) {
		return int64(1), nil
	}
	return int64(0), nil
}

// patternCache keeps the most recently compiled pattern. A scan passes the
// same pattern for every row.
type patternCache struct {
	mu      sync.Mutex
	pattern string
	re      *regexp.Regexp
}

var lastPattern patternCache

func (c *patternCache) compile(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.re != nil && c.pattern == pattern {
		return c.re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.pattern, c.re = pattern, re
	return re, nil
}

func driverValueToString(v driver.Value) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		return fmt.Sprint(val), true
	}
}

// FindByName returns the nodes whose short name matches pattern, anchored at
// the start of the name like the query language's match operator.
func (d *DB) FindByName(pattern string) ([]scene.NodeID, error) {
	anchored := "^(?:" + pattern + ")"
	if _, err := regexp.Compile(anchored); err != nil {
		return nil, fmt.Errorf("invalid name pattern %q: %w", pattern, err)
	}
	return d.queryIDs(`SELECT id FROM nodes WHERE name REGEXP ? ORDER BY seq`, anchored)
}
