package scenefile

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aidanlsb/sceneql/internal/scene"
	"github.com/aidanlsb/sceneql/internal/testutil"
)

func TestLoadBasicScene(t *testing.T) {
	path := testutil.WriteSceneFile(t, t.TempDir(), "scene.yaml", testutil.BasicSceneYAML)

	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Len() != 5 {
		t.Fatalf("Len = %d, want 5", g.Len())
	}

	children, err := g.Children("|root|mesh")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]scene.NodeID{"|root|mesh|meshShape"}, children); diff != "" {
		t.Errorf("Children (-want +got):\n%s", diff)
	}

	sets, err := g.SetMemberships("childSet")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]scene.NodeID{"rootSet"}, sets); diff != "" {
		t.Errorf("SetMemberships (-want +got):\n%s", diff)
	}

	types, err := g.InheritedTypes("childSet")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"objectSet"}, types); diff != "" {
		t.Errorf("InheritedTypes (-want +got):\n%s", diff)
	}
}

func TestParseAttributes(t *testing.T) {
	g, err := Parse([]byte(`
nodes:
  - path: "|a"
    type: mesh
    attrs:
      visible: true
      hidden: False
      smooth: 0
      scale: 1.50
      label: "yes"
      unset: null
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tests := []struct {
		attr string
		want scene.Value
	}{
		{"visible", scene.Bool(true)},
		{"hidden", scene.Bool(false)},
		{"smooth", scene.Text("0")},
		{"scale", scene.Text("1.50")},
		{"label", scene.Text("yes")},
		{"unset", scene.Absent()},
	}
	for _, tt := range tests {
		got, err := g.AttributeValue("|a", tt.attr)
		if err != nil {
			t.Fatalf("AttributeValue(%s): %v", tt.attr, err)
		}
		if got != tt.want {
			t.Errorf("%s = %v (%v), want %v (%v)", tt.attr, got, got.Kind(), tt.want, tt.want.Kind())
		}
	}

	exists, err := g.AttributeExists("|a", "missing")
	if err != nil || exists {
		t.Errorf("AttributeExists(missing) = %v, %v", exists, err)
	}
}

func TestParseOrdersParentsFirst(t *testing.T) {
	g, err := Parse([]byte(`
nodes:
  - {path: "|a|b|c", type: mesh, shape: true}
  - {path: "|a|b", type: transform}
  - {path: "|a", type: transform}
  - {path: layer1, type: displayLayer, members: ["|a|b"]}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	parent, ok, err := g.Parent("|a|b|c")
	if err != nil || !ok || parent != "|a|b" {
		t.Errorf("Parent = %q, %v, %v", parent, ok, err)
	}
	members, err := g.Connections("layer1", scene.Downstream)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]scene.NodeID{"|a|b"}, members); diff != "" {
		t.Errorf("layer members (-want +got):\n%s", diff)
	}
}

func TestParseEmpty(t *testing.T) {
	g, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("Len = %d, want 0", g.Len())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"unknown key", "nodes:\n  - {path: a, type: t, colour: red}\n", "colour"},
		{"missing type", "nodes:\n  - {path: a}\n", "type is required"},
		{"duplicate node", "nodes:\n  - {path: a, type: t}\n  - {path: a, type: t}\n", "duplicate node"},
		{"unknown member", "nodes:\n  - {path: s, type: objectSet, members: [ghost]}\n", "ghost"},
		{"unknown input", "nodes:\n  - {path: s, type: t, inputs: [ghost]}\n", "ghost"},
		{"list attribute", "nodes:\n  - {path: a, type: t, attrs: {xs: [1, 2]}}\n", "only scalar"},
		{"missing parent", "nodes:\n  - {path: \"|a|b\", type: t}\n", "parent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error %v should wrap fs.ErrNotExist", err)
	}
}
