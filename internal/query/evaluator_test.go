package query

import (
	"testing"

	"github.com/aidanlsb/sceneql/internal/scene"
	"github.com/aidanlsb/sceneql/internal/testutil"
)

func mustQuery(t *testing.T, src scene.Source, text string) scene.NodeSet {
	t.Helper()
	got, err := NewEngine(src).Query(text, nil)
	if err != nil {
		t.Fatalf("Query(%q): %v", text, err)
	}
	return got
}

func TestEvaluateBasicScene(t *testing.T) {
	src := testutil.BasicScene(t)

	tests := []struct {
		name  string
		query string
		want  []scene.NodeID
	}{
		{"type", "type is mesh", []scene.NodeID{"|root|mesh|meshShape"}},
		{"direct set membership", "sets.name is childSet", []scene.NodeID{"|root|mesh"}},
		{"transitive set membership", "allsets.name is rootSet", []scene.NodeID{"|root|mesh", "|root", "childSet"}},
		{"grandparent name", "parent.parent.name is root", []scene.NodeID{"|root|mesh|meshShape"}},
		{"grandparent sub-query", "parent.parent has (name is root and parent is none)", []scene.NodeID{"|root|mesh|meshShape"}},
		{"no parent", "parent is none and path match '[|]'", []scene.NodeID{"|root"}},
		{"children", "children.name is meshShape", []scene.NodeID{"|root|mesh"}},
		{"shapes", "shapes.type is mesh", []scene.NodeID{"|root|mesh"}},
		{"inherited types", "types is surfaceShape", []scene.NodeID{"|root|mesh|meshShape"}},
		{"ancestors", "parents.name is root", []scene.NodeID{"|root|mesh", "|root|mesh|meshShape"}},
		{"container", "name in (root, rootSet)", []scene.NodeID{"|root", "rootSet"}},
		{"inverted container", "type not_in (transform, objectSet)", []scene.NodeID{"|root|mesh|meshShape"}},
		{"inverted comparison", "type is_not transform", []scene.NodeID{"|root|mesh|meshShape", "childSet", "rootSet"}},
		{"not", "not type is objectSet", []scene.NodeID{"|root", "|root|mesh", "|root|mesh|meshShape"}},
		{"or", "name is root or name is mesh", []scene.NodeID{"|root", "|root|mesh"}},
		{"and", "type is transform and sets is childSet", []scene.NodeID{"|root|mesh"}},
		{"pattern is anchored at the start", "name match mesh", []scene.NodeID{"|root|mesh", "|root|mesh|meshShape"}},
		{"pattern not matching mid-word", "name match Shape", nil},
		{"pattern with wildcard", "name match '.*Shape'", []scene.NodeID{"|root|mesh|meshShape"}},
		{"text values are not followed", "name.name is root", nil},
		{"nested has", "children has (shapes has (type is mesh))", []scene.NodeID{"|root"}},
		{"absent parent is a dead end", "parent.name is none", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertNodes(t, mustQuery(t, src, tt.query), tt.want...)
		})
	}
}

func TestEvaluateDefaultNodes(t *testing.T) {
	src := testutil.NewTestScene(t).DefaultNodes().Build()

	testutil.AssertNodes(t, mustQuery(t, src, "default is false"))
	if got := mustQuery(t, src, "default is true"); got.Len() != src.Len() {
		t.Errorf("default is true matched %d nodes, want %d", got.Len(), src.Len())
	}
	testutil.AssertNodes(t, mustQuery(t, src, "type is camera and parent.name is persp"), "|persp|perspShape")
}

func TestEvaluateFlagsAndLayers(t *testing.T) {
	src := testutil.NewTestScene(t).
		WithTransform("|grp").
		WithTransform("|grp|child").
		WithTransform("|grpB").
		WithNode(scene.NodeSpec{ID: "|ref", Type: "transform", Referenced: true}).
		WithLayer("layer1", "|grp").
		Build()

	testutil.AssertNodes(t, mustQuery(t, src, "layer is layer1"), "|grp", "|grp|child")
	testutil.AssertNodes(t, mustQuery(t, src, "layer.name is layer1"), "|grp", "|grp|child")
	testutil.AssertNodes(t, mustQuery(t, src, "layer is none and type is transform"), "|grpB", "|ref")
	testutil.AssertNodes(t, mustQuery(t, src, "referenced is true"), "|ref")
}

func TestEvaluateAttributes(t *testing.T) {
	src := testutil.NewTestScene(t).
		WithNode(scene.NodeSpec{ID: "|a", Type: "mesh", Attrs: map[string]scene.Value{
			"intermediateObject": scene.Bool(true),
			"displaySmoothMesh":  scene.Text("0"),
		}}).
		WithNode(scene.NodeSpec{ID: "|b", Type: "mesh", Attrs: map[string]scene.Value{
			"intermediateObject": scene.Bool(false),
			"displaySmoothMesh":  scene.Text("2"),
		}}).
		WithNode(scene.NodeSpec{ID: "|c", Type: "mesh"}).
		Build()

	tests := []struct {
		query string
		want  []scene.NodeID
	}{
		{"attr:intermediateObject is true", []scene.NodeID{"|a"}},
		{"attr:intermediateObject is false", []scene.NodeID{"|b"}},
		{"attr:intermediateObject is none", []scene.NodeID{"|c"}},
		{"attr:intermediateObject is 'true'", []scene.NodeID{"|a"}},
		{"attr:intermediateObject is 'NONE'", []scene.NodeID{"|c"}},
		{"attr:intermediateObject match tr", []scene.NodeID{"|a"}},
		{"attr:displaySmoothMesh not_in (0, none)", []scene.NodeID{"|b"}},
		{"attr:displaySmoothMesh match '[0-9]'", []scene.NodeID{"|a", "|b"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			testutil.AssertNodes(t, mustQuery(t, src, tt.query), tt.want...)
		})
	}
}

func TestEvaluateProperties(t *testing.T) {
	src := testutil.BasicScene(t)
	eng := NewEngine(src)
	cache := eng.NewCache()
	if err := cache.Bootstrap(); err != nil {
		t.Fatal(err)
	}
	all := cache.Nodes()

	run := func(text string) scene.NodeSet {
		t.Helper()
		got, err := eng.Query(text, cache)
		if err != nil {
			t.Fatalf("Query(%q): %v", text, err)
		}
		return got
	}

	clauses := []string{
		"type is transform",
		"allsets.name is rootSet",
		"parent.parent has (name is root)",
		"name match m",
		"attr:visibility is none",
	}

	for _, q := range clauses {
		base := run(q)
		if got, want := run("not "+q), all.Difference(base); !got.Equal(want) {
			t.Errorf("not %s = %v, want %v", q, got.Sorted(), want.Sorted())
		}
		if got := run("not not " + q); !got.Equal(base) {
			t.Errorf("not not %s = %v, want %v", q, got.Sorted(), base.Sorted())
		}
		if got := run(q); !got.Equal(base) {
			t.Errorf("%s not idempotent: %v then %v", q, base.Sorted(), got.Sorted())
		}
	}

	if got, want := run("type is_not transform"), all.Difference(run("type is transform")); !got.Equal(want) {
		t.Errorf("is_not = %v, want %v", got.Sorted(), want.Sorted())
	}
	if got, want := run("name in (root, mesh)"), run("name is root or name is mesh"); !got.Equal(want) {
		t.Errorf("in = %v, or = %v", got.Sorted(), want.Sorted())
	}
	if got, want := run("name not_in (root, mesh)"), all.Difference(run("name in (root, mesh)")); !got.Equal(want) {
		t.Errorf("not_in = %v, want %v", got.Sorted(), want.Sorted())
	}
	if got, want := run("parent has (name is mesh)"), run("parent.name is mesh"); !got.Equal(want) {
		t.Errorf("has = %v, dotted = %v", got.Sorted(), want.Sorted())
	}
}

func TestEvaluateUniverse(t *testing.T) {
	src := testutil.BasicScene(t)
	eng := NewEngine(src)
	cache := eng.NewCache()

	expr, err := eng.Parse("not type is mesh")
	if err != nil {
		t.Fatal(err)
	}
	universe := scene.NewNodeSet("|root", "|root|mesh|meshShape")
	got, err := NewEvaluator(cache, nil).Evaluate(expr, universe)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertNodes(t, got, "|root")
}
