package fieldcache

import (
	"go.uber.org/zap"

	"github.com/aidanlsb/sceneql/internal/scene"
)

// Field is the stored result of resolving one field on one node.
type Field struct {
	multi  bool
	scalar scene.Value
	values []scene.Value
}

// Scalar returns a single-valued field.
func Scalar(v scene.Value) Field { return Field{scalar: v} }

// Multi returns a set-valued field.
func Multi(values []scene.Value) Field {
	return Field{multi: true, values: values}
}

// IsMulti reports whether the field holds a set of values.
func (f Field) IsMulti() bool { return f.multi }

// Value returns the scalar value; multi fields report Absent.
func (f Field) Value() scene.Value {
	if f.multi {
		return scene.Absent()
	}
	return f.scalar
}

// Values returns every value reachable through the field. A scalar field
// yields its single value, which may be Absent.
func (f Field) Values() []scene.Value {
	if f.multi {
		return f.values
	}
	return []scene.Value{f.scalar}
}

// Stats summarizes the work a cache has done.
type Stats struct {
	Nodes       int `json:"nodes"`
	Fields      int `json:"fields"`
	SourceCalls int `json:"source_calls"`
}

// Cache maps node identifier to field name to value.
type Cache struct {
	src          scene.Source
	log          *zap.Logger
	nodes        map[scene.NodeID]map[string]Field
	order        []scene.NodeID
	bootstrapped bool
	bulkDone     map[string]bool
	fields       int
	calls        int
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for population events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns an empty cache reading from src.
func New(src scene.Source, opts ...Option) *Cache {
	c := &Cache{
		src:      src,
		log:      zap.NewNop(),
		nodes:    make(map[scene.NodeID]map[string]Field),
		bulkDone: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the data source backing the cache.
func (c *Cache) Source() scene.Source { return c.src }

// Len returns the number of known nodes.
func (c *Cache) Len() int { return len(c.order) }

// Has reports whether id was enumerated by the data source.
func (c *Cache) Has(id scene.NodeID) bool {
	_, ok := c.nodes[id]
	return ok
}

// Nodes returns every known node. It is empty until the cache is bootstrapped.
func (c *Cache) Nodes() scene.NodeSet {
	return scene.NewNodeSet(c.order...)
}

// Get returns the stored value of field on id.
func (c *Cache) Get(id scene.NodeID, field string) (Field, bool) {
	fields, ok := c.nodes[id]
	if !ok {
		return Field{}, false
	}
	f, ok := fields[field]
	return f, ok
}

// Stats reports the number of nodes, stored field values and source calls.
func (c *Cache) Stats() Stats {
	return Stats{Nodes: len(c.order), Fields: c.fields, SourceCalls: c.calls}
}

// set stores a value unless one is already present for (id, field).
func (c *Cache) set(id scene.NodeID, field string, f Field) {
	fields, ok := c.nodes[id]
	if !ok {
		return
	}
	if _, exists := fields[field]; exists {
		return
	}
	fields[field] = f
	c.fields++
}

// Bootstrap enumerates the scene and seeds name, type and path for every node.
// It runs once per cache; later calls are no-ops.
func (c *Cache) Bootstrap() error {
	if c.bootstrapped {
		return nil
	}
	c.calls++
	infos, err := c.src.ListAll()
	if err != nil {
		return &scene.SourceError{Op: "list", Err: err}
	}
	for _, info := range infos {
		if _, dup := c.nodes[info.ID]; dup {
			continue
		}
		c.nodes[info.ID] = make(map[string]Field, 8)
		c.order = append(c.order, info.ID)
		c.set(info.ID, "name", Scalar(scene.Text(info.ID.ShortName())))
		c.set(info.ID, "type", Scalar(scene.Text(info.Type)))
		c.set(info.ID, "path", Scalar(info.ID.Value()))
	}
	c.bootstrapped = true
	c.log.Debug("bootstrapped field cache", zap.Int("nodes", len(c.order)))
	return nil
}

// Populate ensures field is stored for every node in nodes. Bulk fields are
// computed for the whole node population regardless of nodes. Identifiers the
// data source did not enumerate are ignored.
func (c *Cache) Populate(field string, nodes scene.NodeSet) error {
	if err := c.Bootstrap(); err != nil {
		return err
	}
	info, err := Lookup(field)
	if err != nil {
		return err
	}
	if info.Bulk {
		return c.populateBulk(field)
	}

	resolved := 0
	for _, id := range c.order {
		if !nodes.Has(id) {
			continue
		}
		if _, ok := c.Get(id, field); ok {
			continue
		}
		f, err := c.resolve(id, field)
		if err != nil {
			return err
		}
		c.set(id, field, f)
		resolved++
	}
	if resolved > 0 {
		c.log.Debug("populated field",
			zap.String("field", field),
			zap.Int("requested", len(nodes)),
			zap.Int("resolved", resolved))
	}
	return nil
}

func (c *Cache) populateBulk(field string) error {
	if c.bulkDone[field] {
		return nil
	}
	var err error
	switch field {
	case "allsets":
		err = c.populateAllSets()
	case "default":
		err = c.populateFlag(field, scene.FilterDefault)
	case "referenced":
		err = c.populateFlag(field, scene.FilterReferenced)
	case "layer":
		err = c.populateLayer()
	default:
		err = &UnsupportedFieldError{Field: field}
	}
	if err != nil {
		return err
	}
	c.bulkDone[field] = true
	c.log.Debug("computed bulk field", zap.String("field", field), zap.Int("nodes", len(c.order)))
	return nil
}
