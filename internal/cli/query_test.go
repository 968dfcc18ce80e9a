package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aidanlsb/sceneql/internal/config"
	"github.com/aidanlsb/sceneql/internal/testutil"
)

type queryData struct {
	Query string     `json:"query"`
	Nodes []nodeView `json:"nodes"`
}

func runQueryJSON(t *testing.T, args ...string) (jsonResponse, queryData) {
	t.Helper()
	jsonOutput = true
	out := captureStdout(t, func() {
		if err := queryCmd.RunE(queryCmd, args); err != nil {
			t.Fatalf("queryCmd.RunE: %v", err)
		}
	})
	resp := decodeResponse(t, out)
	var data queryData
	if resp.OK {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			t.Fatalf("decode data: %v; out=%s", err, out)
		}
	}
	return resp, data
}

func TestQueryCommandJSON(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = writeBasicScene(t, dir)

	tests := []struct {
		query string
		want  []nodeView
	}{
		{"type is mesh", []nodeView{{Path: "|root|mesh|meshShape", Type: "mesh"}}},
		{"sets.name is childSet", []nodeView{{Path: "|root|mesh", Type: "transform"}}},
		{"allsets.name is rootSet", []nodeView{
			{Path: "childSet", Type: "objectSet"},
			{Path: "|root", Type: "transform"},
			{Path: "|root|mesh", Type: "transform"},
		}},
		{"parent.parent has (name is root and parent is none)", []nodeView{{Path: "|root|mesh|meshShape", Type: "mesh"}}},
		{"attr:visibility is true", []nodeView{{Path: "|root", Type: "transform"}}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, data := runQueryJSON(t, tt.query)
			if !resp.OK {
				t.Fatalf("expected ok=true, got error %+v", resp.Error)
			}
			if diff := cmp.Diff(tt.want, data.Nodes); diff != "" {
				t.Errorf("nodes (-want +got):\n%s", diff)
			}
			if resp.Meta == nil || resp.Meta.Count != len(tt.want) {
				t.Errorf("meta = %+v, want count %d", resp.Meta, len(tt.want))
			}
			if resp.Meta.Cache == nil || resp.Meta.Cache.Nodes != 5 {
				t.Errorf("meta.cache = %+v, want 5 nodes", resp.Meta.Cache)
			}
		})
	}
}

func TestQueryCommandEmptyResultWarns(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = writeBasicScene(t, dir)

	resp, data := runQueryJSON(t, "type is camera")
	if !resp.OK {
		t.Fatalf("expected ok=true, got %+v", resp.Error)
	}
	if len(data.Nodes) != 0 {
		t.Errorf("nodes = %v, want none", data.Nodes)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Code != WarnEmptyResult {
		t.Errorf("warnings = %+v, want %s", resp.Warnings, WarnEmptyResult)
	}
}

func TestQueryCommandErrorCodes(t *testing.T) {
	tests := []struct {
		name  string
		scene bool
		args  []string
		want  string
	}{
		{"syntax", true, []string{"type is"}, ErrQueryInvalid},
		{"unbalanced", true, []string{"(type is mesh"}, ErrQueryInvalid},
		{"unknown field", true, []string{"colour is red"}, ErrUnsupportedField},
		{"unknown saved query", true, []string{"nosuch"}, ErrQueryNotFound},
		{"no scene", false, []string{"type is mesh"}, ErrSceneNotFound},
		{"missing argument", true, nil, ErrMissingArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolateCLI(t)
			if tt.scene {
				sceneFlag = writeBasicScene(t, dir)
			}
			resp, _ := runQueryJSON(t, tt.args...)
			if resp.OK {
				t.Fatal("expected ok=false")
			}
			if resp.Error == nil || resp.Error.Code != tt.want {
				t.Fatalf("error = %+v, want code %s", resp.Error, tt.want)
			}
		})
	}
}

func TestQueryCommandMissingSceneFile(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = filepath.Join(dir, "missing.yaml")

	resp, _ := runQueryJSON(t, "type is mesh")
	if resp.Error == nil || resp.Error.Code != ErrSceneNotFound {
		t.Fatalf("error = %+v, want %s", resp.Error, ErrSceneNotFound)
	}
}

func TestQueryCommandMalformedScene(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = testutil.WriteSceneFile(t, dir, "bad.yaml", "nodes:\n  - path: \"|a\"\n    colour: red\n")

	resp, _ := runQueryJSON(t, "type is mesh")
	if resp.Error == nil || resp.Error.Code != ErrSceneInvalid {
		t.Fatalf("error = %+v, want %s", resp.Error, ErrSceneInvalid)
	}
}

func TestQueryCommandRunsSavedQuery(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = writeBasicScene(t, dir)
	cfg.Queries = map[string]config.SavedQuery{
		"meshes": {Query: "type is mesh"},
	}

	resp, data := runQueryJSON(t, "Meshes")
	if !resp.OK {
		t.Fatalf("expected ok=true, got %+v", resp.Error)
	}
	if data.Query != "type is mesh" {
		t.Errorf("query = %q, want the saved text", data.Query)
	}
	if len(data.Nodes) != 1 || data.Nodes[0].Path != "|root|mesh|meshShape" {
		t.Errorf("nodes = %v", data.Nodes)
	}
}

func TestQueryCommandSaveWritesConfig(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = writeBasicScene(t, dir)
	querySaveFlag = "Mesh Shapes"
	queryDescFlag = "every mesh"

	resp, _ := runQueryJSON(t, "type is mesh")
	if !resp.OK {
		t.Fatalf("expected ok=true, got %+v", resp.Error)
	}

	saved, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	want := map[string]config.SavedQuery{
		"mesh-shapes": {Query: "type is mesh", Description: "every mesh"},
	}
	if diff := cmp.Diff(want, saved.Queries); diff != "" {
		t.Errorf("saved queries (-want +got):\n%s", diff)
	}
}

func TestQueryCommandWhereName(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = writeBasicScene(t, dir)
	queryNameFilter = "me"

	resp, data := runQueryJSON(t, "type is transform")
	if !resp.OK {
		t.Fatalf("expected ok=true, got %+v", resp.Error)
	}
	want := []nodeView{{Path: "|root|mesh", Type: "transform"}}
	if diff := cmp.Diff(want, data.Nodes); diff != "" {
		t.Errorf("nodes (-want +got):\n%s", diff)
	}

	queryNameFilter = "("
	resp, _ = runQueryJSON(t, "type is transform")
	if resp.Error == nil || resp.Error.Code != ErrInvalidInput {
		t.Fatalf("error = %+v, want %s", resp.Error, ErrInvalidInput)
	}
}

func TestQueryCommandBatchFile(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = writeBasicScene(t, dir)
	queryFileFlag = filepath.Join(dir, "checks.txt")
	content := "# scene checks\ntype is mesh\n\nsets.name is childSet\n"
	if err := os.WriteFile(queryFileFlag, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, _ := runQueryJSON(t)
	if !resp.OK {
		t.Fatalf("expected ok=true, got %+v", resp.Error)
	}
	var data struct {
		Results []batchResult `json:"results"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	want := []batchResult{
		{Line: 2, Query: "type is mesh", Nodes: []nodeView{{Path: "|root|mesh|meshShape", Type: "mesh"}}},
		{Line: 4, Query: "sets.name is childSet", Nodes: []nodeView{{Path: "|root|mesh", Type: "transform"}}},
	}
	if diff := cmp.Diff(want, data.Results); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
	if resp.Meta.Cache == nil || resp.Meta.Cache.Nodes != 5 {
		t.Errorf("meta.cache = %+v", resp.Meta.Cache)
	}
}

func TestQueryCommandBatchFileReportsLine(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = writeBasicScene(t, dir)
	queryFileFlag = filepath.Join(dir, "checks.txt")
	if err := os.WriteFile(queryFileFlag, []byte("type is mesh\ntype is\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, _ := runQueryJSON(t)
	if resp.Error == nil || resp.Error.Code != ErrQueryInvalid {
		t.Fatalf("error = %+v, want %s", resp.Error, ErrQueryInvalid)
	}
	if got := resp.Error.Message; len(got) < 7 || got[:7] != "line 2:" {
		t.Errorf("message = %q, want line prefix", got)
	}
}

func TestQueryCommandListSavedQueries(t *testing.T) {
	isolateCLI(t)
	queryListFlag = true
	cfg.Queries = map[string]config.SavedQuery{
		"meshes":  {Query: "type is mesh"},
		"cameras": {Query: "shapes.type is camera", Description: "camera transforms"},
	}

	resp, _ := runQueryJSON(t)
	var data struct {
		Queries []map[string]string `json:"queries"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Queries) != 2 || data.Queries[0]["name"] != "cameras" {
		t.Errorf("queries = %v, want cameras first", data.Queries)
	}
}

func TestQueryCommandAgainstImportedDatabase(t *testing.T) {
	dir := isolateCLI(t)
	scenePath := writeBasicScene(t, dir)
	dbFlag = filepath.Join(dir, "scene.db")

	jsonOutput = true
	out := captureStdout(t, func() {
		if err := importCmd.RunE(importCmd, []string{scenePath}); err != nil {
			t.Fatalf("importCmd.RunE: %v", err)
		}
	})
	if resp := decodeResponse(t, out); !resp.OK || resp.Meta.Count != 5 {
		t.Fatalf("import response = %s", out)
	}

	resp, data := runQueryJSON(t, "allsets.name is rootSet")
	if !resp.OK {
		t.Fatalf("expected ok=true, got %+v", resp.Error)
	}
	if len(data.Nodes) != 3 {
		t.Errorf("nodes = %v, want 3", data.Nodes)
	}

	queryNameFilter = "child"
	_, data = runQueryJSON(t, "allsets.name is rootSet")
	want := []nodeView{{Path: "childSet", Type: "objectSet"}}
	if diff := cmp.Diff(want, data.Nodes); diff != "" {
		t.Errorf("filtered nodes (-want +got):\n%s", diff)
	}
}

func TestQueryCommandMissingDatabase(t *testing.T) {
	dir := isolateCLI(t)
	dbFlag = filepath.Join(dir, "nope.db")

	resp, _ := runQueryJSON(t, "type is mesh")
	if resp.Error == nil || resp.Error.Code != ErrSceneNotFound {
		t.Fatalf("error = %+v, want %s", resp.Error, ErrSceneNotFound)
	}
	if _, err := os.Stat(dbFlag); !os.IsNotExist(err) {
		t.Errorf("query created the database file")
	}
}

func TestResolveScenePathsPrefersFlagsThenDatabase(t *testing.T) {
	isolateCLI(t)
	cfg.DefaultScene = "default.yaml"
	cfg.DefaultDB = "default.db"

	tests := []struct {
		scene, db         string
		wantScene, wantDB string
	}{
		{"", "", "", "default.db"},
		{"a.yaml", "", "a.yaml", ""},
		{"a.yaml", "a.db", "", "a.db"},
	}
	for _, tt := range tests {
		sceneFlag, dbFlag = tt.scene, tt.db
		gotScene, gotDB := resolveScenePaths()
		if gotScene != tt.wantScene || gotDB != tt.wantDB {
			t.Errorf("resolveScenePaths(%q, %q) = %q, %q; want %q, %q",
				tt.scene, tt.db, gotScene, gotDB, tt.wantScene, tt.wantDB)
		}
	}

	cfg.DefaultDB = ""
	sceneFlag, dbFlag = "", ""
	if gotScene, _ := resolveScenePaths(); gotScene != "default.yaml" {
		t.Errorf("scene = %q, want config default_scene", gotScene)
	}
}

func runQueryText(t *testing.T, args ...string) string {
	t.Helper()
	jsonOutput = false
	return captureStdout(t, func() {
		if err := queryCmd.RunE(queryCmd, args); err != nil {
			t.Fatalf("queryCmd.RunE: %v", err)
		}
	})
}

func TestQueryCommandTextListsEveryNode(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = writeBasicScene(t, dir)

	out := runQueryText(t, "allsets.name is rootSet")
	for _, want := range []string{"childSet", "|root", "|root|mesh", "(3 nodes)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "meshShape") {
		t.Errorf("output lists a non-matching node:\n%s", out)
	}
}

func TestQueryCommandTextBatchFile(t *testing.T) {
	dir := isolateCLI(t)
	sceneFlag = writeBasicScene(t, dir)
	queryFileFlag = filepath.Join(dir, "checks.txt")
	content := "type is transform\nallsets.name is rootSet\n"
	if err := os.WriteFile(queryFileFlag, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out := runQueryText(t)
	sections := strings.Split(out, "allsets.name is rootSet")
	if len(sections) != 2 {
		t.Fatalf("expected one section per query:\n%s", out)
	}
	first, second := sections[0], sections[1]
	for _, want := range []string{"type is transform", "|root", "|root|mesh", "(2 nodes)"} {
		if !strings.Contains(first, want) {
			t.Errorf("first section missing %q:\n%s", want, first)
		}
	}
	for _, want := range []string{"childSet", "|root", "|root|mesh", "(3 nodes)"} {
		if !strings.Contains(second, want) {
			t.Errorf("second section missing %q:\n%s", want, second)
		}
	}
}
