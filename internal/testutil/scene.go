// Package testutil provides reusable scene fixtures and assertions for tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aidanlsb/sceneql/internal/scene"
)

// TestScene builds an in-memory scene for a test.
type TestScene struct {
	t     *testing.T
	graph *scene.Graph
}

// NewTestScene creates an empty scene builder.
func NewTestScene(t *testing.T) *TestScene {
	t.Helper()
	return &TestScene{t: t, graph: scene.NewGraph()}
}

// WithNode adds a node, failing the test on error.
func (s *TestScene) WithNode(spec scene.NodeSpec) *TestScene {
	s.t.Helper()
	if err := s.graph.AddNode(spec); err != nil {
		s.t.Fatalf("add node %s: %v", spec.ID, err)
	}
	return s
}

// WithTransform adds a transform node.
func (s *TestScene) WithTransform(id scene.NodeID) *TestScene {
	s.t.Helper()
	return s.WithNode(scene.NodeSpec{
		ID:    id,
		Type:  "transform",
		Types: []string{"containerBase", "entity", "dagNode", "transform"},
	})
}

// WithShape adds a shape node of the given type.
func (s *TestScene) WithShape(id scene.NodeID, typ string) *TestScene {
	s.t.Helper()
	return s.WithNode(scene.NodeSpec{
		ID:    id,
		Type:  typ,
		Types: []string{"containerBase", "entity", "dagNode", "shape", "surfaceShape", typ},
		Shape: true,
	})
}

// WithSet adds an object set holding members.
func (s *TestScene) WithSet(id scene.NodeID, members ...scene.NodeID) *TestScene {
	s.t.Helper()
	return s.WithNode(scene.NodeSpec{
		ID:      id,
		Type:    "objectSet",
		Types:   []string{"entity", "objectSet"},
		Members: members,
	})
}

// WithLayer adds a display layer holding members.
func (s *TestScene) WithLayer(id scene.NodeID, members ...scene.NodeID) *TestScene {
	s.t.Helper()
	return s.WithNode(scene.NodeSpec{
		ID:      id,
		Type:    scene.TypeDisplayLayer,
		Members: members,
	})
}

// Build validates and returns the scene.
func (s *TestScene) Build() *scene.Graph {
	s.t.Helper()
	if err := s.graph.Validate(); err != nil {
		s.t.Fatalf("validate scene: %v", err)
	}
	return s.graph
}

// DefaultNodes adds the nodes every new scene starts with.
func (s *TestScene) DefaultNodes() *TestScene {
	s.t.Helper()
	for _, cam := range []string{"persp", "top", "front", "side"} {
		s.WithNode(scene.NodeSpec{ID: scene.NodeID("|" + cam), Type: "transform", Default: true})
		s.WithNode(scene.NodeSpec{ID: scene.NodeID("|" + cam + "|" + cam + "Shape"), Type: "camera", Shape: true, Default: true})
	}
	s.WithNode(scene.NodeSpec{ID: "time1", Type: "time", Default: true})
	s.WithNode(scene.NodeSpec{ID: "defaultLayer", Type: scene.TypeDisplayLayer, Default: true})
	return s
}

// BasicScene is the root/mesh/meshShape hierarchy with the childSet and rootSet
// object sets:
//
//	|root            transform, member of rootSet
//	|root|mesh       transform, member of childSet
//	|root|mesh|meshShape  mesh
//	childSet         objectSet, member of rootSet
//	rootSet          objectSet
func BasicScene(t *testing.T) *scene.Graph {
	t.Helper()
	return NewTestScene(t).
		WithTransform("|root").
		WithTransform("|root|mesh").
		WithShape("|root|mesh|meshShape", "mesh").
		WithSet("childSet", "|root|mesh").
		WithSet("rootSet", "childSet", "|root").
		Build()
}

// WriteSceneFile writes YAML content to dir/name and returns its path.
func WriteSceneFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// BasicSceneYAML is BasicScene in snapshot file form.
const BasicSceneYAML = `
nodes:
  - path: "|root"
    type: transform
    types: [containerBase, entity, dagNode, transform]
    attrs:
      visibility: true
  - path: "|root|mesh"
    type: transform
    types: [containerBase, entity, dagNode, transform]
  - path: "|root|mesh|meshShape"
    type: mesh
    types: [containerBase, entity, dagNode, shape, surfaceShape, mesh]
    shape: true
    attrs:
      intermediateObject: false
      displaySmoothMesh: 0
  - path: childSet
    type: objectSet
    members: ["|root|mesh"]
  - path: rootSet
    type: objectSet
    members: [childSet, "|root"]
`
