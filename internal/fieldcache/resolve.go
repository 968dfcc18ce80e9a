package fieldcache

import (
	"strings"

	"github.com/aidanlsb/sceneql/internal/scene"
)

func nodeValues(ids []scene.NodeID) []scene.Value {
	out := make([]scene.Value, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Value())
	}
	return out
}

func (c *Cache) sourceErr(op string, id scene.NodeID, err error) error {
	return &scene.SourceError{Op: op, Node: id, Err: err}
}

// resolve computes a per-node field through the data source.
func (c *Cache) resolve(id scene.NodeID, field string) (Field, error) {
	switch field {
	case "name":
		return Scalar(scene.Text(id.ShortName())), nil
	case "path":
		return Scalar(id.Value()), nil
	case "type":
		// Seeded at bootstrap for every enumerated node.
		return Scalar(scene.Absent()), nil
	case "types":
		c.calls++
		types, err := c.src.InheritedTypes(id)
		if err != nil {
			return Field{}, c.sourceErr("types", id, err)
		}
		values := make([]scene.Value, 0, len(types))
		for _, t := range types {
			values = append(values, scene.Text(t))
		}
		return Multi(values), nil
	case "sets":
		c.calls++
		sets, err := c.src.SetMemberships(id)
		if err != nil {
			return Field{}, c.sourceErr("sets", id, err)
		}
		return Multi(nodeValues(sets)), nil
	case "parent":
		c.calls++
		parent, ok, err := c.src.Parent(id)
		if err != nil {
			return Field{}, c.sourceErr("parent", id, err)
		}
		if !ok {
			return Scalar(scene.Absent()), nil
		}
		return Scalar(parent.Value()), nil
	case "parents":
		return c.resolveAncestors(id)
	case "children":
		c.calls++
		children, err := c.src.Children(id)
		if err != nil {
			return Field{}, c.sourceErr("children", id, err)
		}
		return Multi(nodeValues(children)), nil
	case "shapes":
		c.calls++
		shapes, err := c.src.Shapes(id)
		if err != nil {
			return Field{}, c.sourceErr("shapes", id, err)
		}
		return Multi(nodeValues(shapes)), nil
	case "inputs", "outputs":
		dir := scene.Upstream
		if field == "outputs" {
			dir = scene.Downstream
		}
		c.calls++
		conns, err := c.src.Connections(id, dir)
		if err != nil {
			return Field{}, c.sourceErr(field, id, err)
		}
		return Multi(nodeValues(conns)), nil
	}

	attr, ok := strings.CutPrefix(field, AttrPrefix)
	if !ok {
		return Field{}, &UnsupportedFieldError{Field: field}
	}
	c.calls++
	exists, err := c.src.AttributeExists(id, attr)
	if err != nil {
		return Field{}, c.sourceErr("attribute exists", id, err)
	}
	if !exists {
		return Scalar(scene.Absent()), nil
	}
	c.calls++
	v, err := c.src.AttributeValue(id, attr)
	if err != nil {
		return Field{}, c.sourceErr("attribute value", id, err)
	}
	return Scalar(v), nil
}

// resolveAncestors walks the parent chain up to the root. The walk is bounded
// by the node population so a cyclic source cannot loop forever.
func (c *Cache) resolveAncestors(id scene.NodeID) (Field, error) {
	var chain []scene.Value
	seen := map[scene.NodeID]bool{id: true}
	cur := id
	for len(chain) <= len(c.order) {
		c.calls++
		parent, ok, err := c.src.Parent(cur)
		if err != nil {
			return Field{}, c.sourceErr("parents", cur, err)
		}
		if !ok || seen[parent] {
			break
		}
		seen[parent] = true
		chain = append(chain, parent.Value())
		cur = parent
	}
	return Multi(chain), nil
}

// populateFlag defaults every node to false and marks the nodes listed by filter.
func (c *Cache) populateFlag(field string, filter scene.Filter) error {
	c.calls++
	ids, err := c.src.List(filter)
	if err != nil {
		return c.sourceErr("list "+filter.String(), "", err)
	}
	marked := scene.NewNodeSet(ids...)
	for _, id := range c.order {
		c.set(id, field, Scalar(scene.Bool(marked.Has(id))))
	}
	return nil
}

// populateLayer assigns every node the display layer of its closest assigned
// DAG ancestor (or itself). An explicit assignment on a descendant overrides
// the layer inherited from an ancestor.
func (c *Cache) populateLayer() error {
	c.calls++
	layers, err := c.src.List(scene.FilterDisplayLayer)
	if err != nil {
		return c.sourceErr("list "+scene.FilterDisplayLayer.String(), "", err)
	}
	assigned := make(map[scene.NodeID]scene.NodeID)
	for _, layer := range layers {
		c.calls++
		members, err := c.src.Connections(layer, scene.Downstream)
		if err != nil {
			return c.sourceErr("layer members", layer, err)
		}
		for _, m := range members {
			assigned[m] = layer
		}
	}

	for _, id := range c.order {
		value := scene.Absent()
		for p := string(id); p != ""; p = trimLastComponent(p) {
			if layer, ok := assigned[scene.NodeID(p)]; ok {
				value = layer.Value()
				break
			}
		}
		c.set(id, "layer", Scalar(value))
	}
	return nil
}

// trimLastComponent returns the ancestor path of a DAG path, or "" when p has
// no ancestor.
func trimLastComponent(p string) string {
	i := strings.LastIndex(p, scene.PathSeparator)
	if i <= 0 {
		return ""
	}
	return p[:i]
}

// populateAllSets stores the transitive closure of set membership for every node.
func (c *Cache) populateAllSets() error {
	if err := c.Populate("sets", c.Nodes()); err != nil {
		return err
	}
	for _, id := range c.order {
		seen := make(map[scene.NodeID]bool)
		var closure []scene.Value
		queue := c.directSets(id)
		for len(queue) > 0 {
			s := queue[0]
			queue = queue[1:]
			if seen[s] {
				continue
			}
			seen[s] = true
			closure = append(closure, s.Value())
			queue = append(queue, c.directSets(s)...)
		}
		c.set(id, "allsets", Multi(closure))
	}
	return nil
}

func (c *Cache) directSets(id scene.NodeID) []scene.NodeID {
	f, ok := c.Get(id, "sets")
	if !ok {
		return nil
	}
	var out []scene.NodeID
	for _, v := range f.Values() {
		if s, ok := v.AsNode(); ok {
			out = append(out, s)
		}
	}
	return out
}
