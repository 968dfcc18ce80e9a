// Package scenefile loads scene snapshots written as YAML into an in-memory
// scene graph.
package scenefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/sceneql/internal/scene"
)

// File is the top-level snapshot document.
type File struct {
	Nodes []Node `yaml:"nodes"`
}

// Node is one node entry of a snapshot.
type Node struct {
	Path       string               `yaml:"path"`
	Type       string               `yaml:"type"`
	Types      []string             `yaml:"types,omitempty"`
	Default    bool                 `yaml:"default,omitempty"`
	Referenced bool                 `yaml:"referenced,omitempty"`
	Shape      bool                 `yaml:"shape,omitempty"`
	Attrs      map[string]yaml.Node `yaml:"attrs,omitempty"`
	Members    []string             `yaml:"members,omitempty"`
	Inputs     []string             `yaml:"inputs,omitempty"`
}

// Load reads and parses the snapshot at path.
func Load(path string) (*scene.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file %s: %w", path, err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene file %s: %w", path, err)
	}
	return g, nil
}

// Parse decodes a snapshot and builds a validated graph. Unknown keys are
// rejected. DAG nodes may appear in any order; parents are added before their
// children.
func Parse(data []byte) (*scene.Graph, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	nodes := append([]Node(nil), f.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		return depth(nodes[i].Path) < depth(nodes[j].Path)
	})

	g := scene.NewGraph()
	for _, n := range nodes {
		spec, err := n.spec()
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(spec); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (n Node) spec() (scene.NodeSpec, error) {
	spec := scene.NodeSpec{
		ID:         scene.NodeID(n.Path),
		Type:       n.Type,
		Types:      n.Types,
		Shape:      n.Shape,
		Default:    n.Default,
		Referenced: n.Referenced,
		Members:    nodeIDs(n.Members),
		Inputs:     nodeIDs(n.Inputs),
	}
	if len(n.Attrs) > 0 {
		spec.Attrs = make(map[string]scene.Value, len(n.Attrs))
		for name, raw := range n.Attrs {
			v, err := attrValue(raw)
			if err != nil {
				return scene.NodeSpec{}, fmt.Errorf("node %s: attribute %s: %w", n.Path, name, err)
			}
			spec.Attrs[name] = v
		}
	}
	return spec, nil
}

// attrValue converts a YAML scalar. Booleans stay booleans, null is the absent
// value and every other scalar keeps its written form as text.
func attrValue(n yaml.Node) (scene.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return scene.Value{}, fmt.Errorf("line %d: only scalar values are supported", n.Line)
	}
	switch n.Tag {
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return scene.Value{}, err
		}
		return scene.Bool(b), nil
	case "!!null":
		return scene.Absent(), nil
	}
	return scene.Text(n.Value), nil
}

func nodeIDs(in []string) []scene.NodeID {
	if len(in) == 0 {
		return nil
	}
	out := make([]scene.NodeID, len(in))
	for i, s := range in {
		out[i] = scene.NodeID(s)
	}
	return out
}

func depth(path string) int {
	if !strings.HasPrefix(path, scene.PathSeparator) {
		return 0
	}
	return strings.Count(path, scene.PathSeparator)
}
