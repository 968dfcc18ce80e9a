package cli

import (
	"encoding/json"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	builtindocs "github.com/aidanlsb/sceneql/docs"
	"github.com/aidanlsb/sceneql/internal/query"
)

// TestBundledDocsExamplesParse checks every sceneql code block line in the
// bundled reference against the parser.
func TestBundledDocsExamplesParse(t *testing.T) {
	topics, err := listDocsTopicsFS(builtindocs.FS, docsRoot)
	if err != nil {
		t.Fatalf("listDocsTopicsFS: %v", err)
	}
	if len(topics) == 0 {
		t.Fatal("expected bundled docs topics")
	}

	engine := query.NewEngine(nil)
	total := 0
	for _, topic := range topics {
		content, err := fs.ReadFile(builtindocs.FS, topic.fsPath)
		if err != nil {
			t.Fatal(err)
		}
		for _, ex := range extractQueryExamples(topic.ID, content) {
			total++
			if _, err := engine.Parse(ex.Query); err != nil {
				t.Errorf("%s:%d %q: %v", ex.Topic, ex.Line, ex.Query, err)
			}
		}
	}
	if total == 0 {
		t.Fatal("expected example queries in bundled docs")
	}
}

func TestListDocsTopicsFS(t *testing.T) {
	fsys := fstest.MapFS{
		"ref/query_language.md": {Data: []byte("# Query Language\n\nText.\n")},
		"ref/fields.md":         {Data: []byte("Intro without heading.\n")},
		"ref/notes.txt":         {Data: []byte("# Not a topic\n")},
	}

	topics, err := listDocsTopicsFS(fsys, "ref")
	if err != nil {
		t.Fatal(err)
	}
	want := []docsTopic{
		{ID: "fields", Title: "fields", Path: "docs/ref/fields.md", fsPath: "ref/fields.md"},
		{ID: "query-language", Title: "Query Language", Path: "docs/ref/query_language.md", fsPath: "ref/query_language.md"},
	}
	if diff := cmp.Diff(want, topics, cmp.AllowUnexported(docsTopic{})); diff != "" {
		t.Errorf("topics (-want +got):\n%s", diff)
	}

	for _, name := range []string{"query-language", "Query Language", "query_language"} {
		if got, ok := findDocsTopic(topics, name); !ok || got.ID != "query-language" {
			t.Errorf("findDocsTopic(%q) = %+v, %v", name, got, ok)
		}
	}
	if _, ok := findDocsTopic(topics, "nope"); ok {
		t.Error("findDocsTopic(nope) found a topic")
	}
}

func TestExtractQueryExamples(t *testing.T) {
	content := []byte(strings.Join([]string{
		"# Title",
		"",
		"```sceneql",
		"type is mesh",
		"",
		"parent is none",
		"```",
		"",
		"```yaml",
		"nodes: []",
		"```",
		"",
		"    indented code is not an example",
		"",
	}, "\n"))

	got := extractQueryExamples("t", content)
	want := []docsExample{
		{Topic: "t", Line: 4, Query: "type is mesh"},
		{Topic: "t", Line: 6, Query: "parent is none"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("examples (-want +got):\n%s", diff)
	}
}

func TestDocsExamplesCommandChecksAll(t *testing.T) {
	isolateCLI(t)
	prevCheck := docsExamplesCheck
	t.Cleanup(func() { docsExamplesCheck = prevCheck })
	docsExamplesCheck = true
	jsonOutput = true

	out := captureStdout(t, func() {
		if err := docsExamplesCmd.RunE(docsExamplesCmd, nil); err != nil {
			t.Fatalf("docsExamplesCmd.RunE: %v", err)
		}
	})
	resp := decodeResponse(t, out)
	var data struct {
		Examples []docsExample `json:"examples"`
		Failed   int           `json:"failed"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Failed != 0 || len(data.Examples) == 0 {
		t.Fatalf("failed = %d of %d examples", data.Failed, len(data.Examples))
	}
}

func TestDocsCommandShowsTopic(t *testing.T) {
	isolateCLI(t)

	out := captureStdout(t, func() {
		if err := docsCmd.RunE(docsCmd, []string{"language"}); err != nil {
			t.Fatalf("docsCmd.RunE: %v", err)
		}
	})
	// Stdout is a pipe, so the markdown is printed raw.
	if !strings.HasPrefix(out, "# Query Language") {
		t.Errorf("output starts %q", out[:min(len(out), 40)])
	}

	jsonOutput = true
	out = captureStdout(t, func() {
		if err := docsCmd.RunE(docsCmd, []string{"missing"}); err != nil {
			t.Fatalf("docsCmd.RunE: %v", err)
		}
	})
	if resp := decodeResponse(t, out); resp.Error == nil || resp.Error.Code != ErrInvalidInput {
		t.Errorf("error = %+v, want %s", resp.Error, ErrInvalidInput)
	}
}

func TestCollectFlagsListsCommandFlags(t *testing.T) {
	flags := collectFlags(queryCmd)
	names := make(map[string]docsFlag)
	for _, f := range flags {
		names[f.Name] = f
	}
	for _, want := range []string{"list", "file", "save", "description", "where-name"} {
		f, ok := names[want]
		if !ok {
			t.Errorf("flag %q missing from %v", want, flags)
			continue
		}
		if f.Command != "query" {
			t.Errorf("flag %q command = %q, want query", want, f.Command)
		}
	}
	if f := names["file"]; f.Shorthand != "f" || f.Type != "string" {
		t.Errorf("file flag = %+v", f)
	}

	global := collectFlags(rootCmd)
	if len(global) == 0 || global[0].Command != "(global)" {
		t.Fatalf("expected global flags first, got %v", global)
	}
}
