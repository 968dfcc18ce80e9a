package scene

import (
	"fmt"
	"strings"
)

// TypeDisplayLayer is the primitive type of display layer nodes. Members of a
// display layer are exposed as its downstream connections rather than as set
// memberships.
const TypeDisplayLayer = "displayLayer"

// NodeSpec describes one node added to a Graph.
type NodeSpec struct {
	ID         NodeID
	Type       string
	Types      []string // inherited type chain; defaults to [Type]
	Shape      bool
	Default    bool
	Referenced bool
	Members    []NodeID // set or display layer members
	Inputs     []NodeID // upstream connections
	Attrs      map[string]Value
}

type graphNode struct {
	spec     NodeSpec
	children []NodeID
	sets     []NodeID
	outputs  []NodeID
	layers   []NodeID
}

// Graph is an in-memory Source. DAG parenting is derived from node paths, so a
// node "|a|b" is a child of "|a". Nodes must be added parents first.
type Graph struct {
	nodes map[NodeID]*graphNode
	order []NodeID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[NodeID]*graphNode)}
}

// AddNode inserts a node. Members and inputs may reference nodes that are added
// later; Validate checks them once the graph is complete.
func (g *Graph) AddNode(spec NodeSpec) error {
	if spec.ID == "" {
		return fmt.Errorf("node id is required")
	}
	if spec.Type == "" {
		return fmt.Errorf("node %s: type is required", spec.ID)
	}
	if _, exists := g.nodes[spec.ID]; exists {
		return fmt.Errorf("duplicate node %s", spec.ID)
	}
	if parent, ok := pathParent(spec.ID); ok {
		p, exists := g.nodes[parent]
		if !exists {
			return fmt.Errorf("node %s: parent %w: %s", spec.ID, ErrNodeNotFound, parent)
		}
		p.children = append(p.children, spec.ID)
	}
	g.nodes[spec.ID] = &graphNode{spec: spec}
	g.order = append(g.order, spec.ID)
	return nil
}

// MustAddNode is AddNode for fixtures; it panics on error.
func (g *Graph) MustAddNode(spec NodeSpec) *Graph {
	if err := g.AddNode(spec); err != nil {
		panic(err)
	}
	return g
}

// Validate resolves set members and connections, reporting references to
// unknown nodes. It must be called before the graph is queried.
func (g *Graph) Validate() error {
	for _, n := range g.nodes {
		n.sets, n.outputs, n.layers = nil, nil, nil
	}
	for _, id := range g.order {
		n := g.nodes[id]
		for _, m := range n.spec.Members {
			member, ok := g.nodes[m]
			if !ok {
				return fmt.Errorf("node %s: member %w: %s", id, ErrNodeNotFound, m)
			}
			if n.spec.Type == TypeDisplayLayer {
				member.layers = append(member.layers, id)
			} else {
				member.sets = append(member.sets, id)
			}
		}
		for _, in := range n.spec.Inputs {
			src, ok := g.nodes[in]
			if !ok {
				return fmt.Errorf("node %s: input %w: %s", id, ErrNodeNotFound, in)
			}
			src.outputs = append(src.outputs, id)
		}
	}
	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.order) }

// Nodes returns the node specs in insertion order.
func (g *Graph) Nodes() []NodeSpec {
	out := make([]NodeSpec, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id].spec)
	}
	return out
}

func (g *Graph) node(id NodeID) (*graphNode, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

func (g *Graph) ListAll() ([]NodeInfo, error) {
	out := make([]NodeInfo, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, NodeInfo{ID: id, Type: g.nodes[id].spec.Type})
	}
	return out, nil
}

func (g *Graph) List(filter Filter) ([]NodeID, error) {
	var out []NodeID
	for _, id := range g.order {
		spec := g.nodes[id].spec
		var keep bool
		switch filter {
		case FilterDefault:
			keep = spec.Default
		case FilterReferenced:
			keep = spec.Referenced
		case FilterDisplayLayer:
			keep = spec.Type == TypeDisplayLayer
		default:
			return nil, fmt.Errorf("unknown filter %d", filter)
		}
		if keep {
			out = append(out, id)
		}
	}
	return out, nil
}

func (g *Graph) Parent(id NodeID) (NodeID, bool, error) {
	if _, err := g.node(id); err != nil {
		return "", false, err
	}
	parent, ok := pathParent(id)
	return parent, ok, nil
}

func (g *Graph) Children(id NodeID) ([]NodeID, error) {
	n, err := g.node(id)
	if err != nil {
		return nil, err
	}
	return append([]NodeID(nil), n.children...), nil
}

func (g *Graph) Shapes(id NodeID) ([]NodeID, error) {
	n, err := g.node(id)
	if err != nil {
		return nil, err
	}
	var out []NodeID
	for _, c := range n.children {
		if g.nodes[c].spec.Shape {
			out = append(out, c)
		}
	}
	return out, nil
}

func (g *Graph) SetMemberships(id NodeID) ([]NodeID, error) {
	n, err := g.node(id)
	if err != nil {
		return nil, err
	}
	return append([]NodeID(nil), n.sets...), nil
}

func (g *Graph) InheritedTypes(id NodeID) ([]string, error) {
	n, err := g.node(id)
	if err != nil {
		return nil, err
	}
	if len(n.spec.Types) == 0 {
		return []string{n.spec.Type}, nil
	}
	return append([]string(nil), n.spec.Types...), nil
}

func (g *Graph) Connections(id NodeID, dir Direction) ([]NodeID, error) {
	n, err := g.node(id)
	if err != nil {
		return nil, err
	}
	if dir == Upstream {
		out := append([]NodeID(nil), n.spec.Inputs...)
		return append(out, n.layers...), nil
	}
	out := append([]NodeID(nil), n.outputs...)
	if n.spec.Type == TypeDisplayLayer {
		out = append(out, n.spec.Members...)
	}
	return out, nil
}

func (g *Graph) AttributeExists(id NodeID, attr string) (bool, error) {
	n, err := g.node(id)
	if err != nil {
		return false, err
	}
	_, ok := n.spec.Attrs[attr]
	return ok, nil
}

func (g *Graph) AttributeValue(id NodeID, attr string) (Value, error) {
	n, err := g.node(id)
	if err != nil {
		return Absent(), err
	}
	return n.spec.Attrs[attr], nil
}

// pathParent derives the parent of a DAG path. Root DAG nodes and dependency
// nodes have no parent.
func pathParent(id NodeID) (NodeID, bool) {
	s := string(id)
	if !strings.HasPrefix(s, PathSeparator) {
		return "", false
	}
	i := strings.LastIndex(s, PathSeparator)
	if i <= 0 {
		return "", false
	}
	return NodeID(s[:i]), true
}
