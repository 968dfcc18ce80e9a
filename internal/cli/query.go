package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/sceneql/internal/config"
	"github.com/aidanlsb/sceneql/internal/fieldcache"
	"github.com/aidanlsb/sceneql/internal/query"
	"github.com/aidanlsb/sceneql/internal/scene"
	"github.com/aidanlsb/sceneql/internal/ui"
)

var (
	queryListFlag   bool
	queryFileFlag   string
	querySaveFlag   string
	queryDescFlag   string
	queryNameFilter string
)

var queryCmd = &cobra.Command{
	Use:   "query <expression|saved-query>",
	Short: "Run a query against a scene",
	Long: `Query the nodes of a scene with the sceneql query language.

Clauses:
  field is value            field equals value (none, true, false are special)
  field is_not value        inverted is
  field in (a, b)           field equals any listed value
  field not_in (a, b)       inverted in
  field match 'regex'       text value matches, anchored at the start
  field has (expression)    a related node satisfies a nested query

Fields chain with dots (parent.parent.name) and attr:<name> reads a
dynamic attribute. Combine clauses with not, and, or and parentheses.

Examples:
  sceneql query "type is mesh" --scene shot.yaml
  sceneql query "allsets.name is rootSet" --db shot.db
  sceneql query "parent.parent has (name is root and parent is none)"
  sceneql query "attr:visibility is false" --where-name 'prop_'
  sceneql query hidden-meshes                 # Run saved query
  sceneql query --list                        # List saved queries
  sceneql query --file checks.txt             # One query per line, shared cache
  sceneql query "type is camera" --save cameras`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		if queryListFlag {
			return listSavedQueries(getConfig(), start)
		}
		if queryFileFlag != "" {
			return runQueryFile(queryFileFlag, start)
		}

		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return handleErrorMsg(ErrMissingArgument, "specify a query expression", "Run 'sceneql query --list' to see saved queries")
		}
		text, saved, err := resolveQueryText(text)
		if err != nil {
			return handleQueryError(err)
		}

		src, err := openSource()
		if err != nil {
			return handleSourceError(err)
		}
		defer src.Close()

		engine := query.NewEngine(src, query.WithLogger(logger))
		cache := engine.NewCache()
		result, err := runQuery(engine, src, text, cache)
		if err != nil {
			return handleQueryError(err)
		}

		if querySaveFlag != "" && saved == "" {
			if err := saveQuery(querySaveFlag, text, queryDescFlag); err != nil {
				return handleError(ErrConfigInvalid, err, "")
			}
		}

		return outputQueryResult(text, result, cache, start)
	},
}

// resolveQueryText expands a saved-query name. Every expression contains a
// space, so a single word can only name a saved query.
func resolveQueryText(text string) (resolved, savedName string, err error) {
	if strings.ContainsAny(text, " \t") {
		return text, "", nil
	}
	q, err := getConfig().Query(text)
	if err != nil {
		return "", "", err
	}
	return q.Query, text, nil
}

// runQuery evaluates text and applies the --where-name filter.
func runQuery(engine *query.Engine, src *sceneSource, text string, cache *fieldcache.Cache) (scene.NodeSet, error) {
	result, err := engine.Query(text, cache)
	if err != nil {
		return nil, err
	}
	if queryNameFilter == "" {
		return result, nil
	}
	named, err := src.findByName(queryNameFilter)
	if err != nil {
		return nil, err
	}
	return result.Intersect(named), nil
}

type nodeView struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

func nodeViews(result scene.NodeSet, cache *fieldcache.Cache) []nodeView {
	ids := result.Sorted()
	out := make([]nodeView, 0, len(ids))
	for _, id := range ids {
		v := nodeView{Path: string(id)}
		if f, ok := cache.Get(id, "type"); ok {
			v.Type, _ = f.Value().AsText()
		}
		out = append(out, v)
	}
	return out
}

func outputQueryResult(text string, result scene.NodeSet, cache *fieldcache.Cache, start time.Time) error {
	nodes := nodeViews(result, cache)
	stats := cache.Stats()
	elapsed := time.Since(start).Milliseconds()

	if isJSONOutput() {
		data := map[string]interface{}{
			"query": text,
			"nodes": nodes,
		}
		meta := &Meta{Count: len(nodes), QueryTimeMs: elapsed, Cache: &stats}
		if len(nodes) == 0 {
			outputSuccessWithWarnings(data, []Warning{{
				Code:    WarnEmptyResult,
				Message: "no nodes matched",
			}}, meta)
			return nil
		}
		outputSuccess(data, meta)
		return nil
	}

	if len(nodes) == 0 {
		fmt.Println(ui.Hint("No nodes matched."))
		return nil
	}
	printNodeTable(nodes)
	return nil
}

func printNodeTable(nodes []nodeView) {
	tbl := ui.NewNodeTable(ui.NewDisplayContext())
	for _, n := range nodes {
		tbl.Add(ui.NodeRow{Path: n.Path, Type: n.Type})
	}
	fmt.Println(tbl.Render())
	fmt.Println(ui.Hint(ui.Count(tbl.Len(), "node", "nodes")))
}

type batchResult struct {
	Line  int        `json:"line"`
	Query string     `json:"query"`
	Nodes []nodeView `json:"nodes"`
}

// runQueryFile runs one query per line of path. Blank lines and lines
// starting with # are skipped. All queries share one field cache.
func runQueryFile(path string, start time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return handleError(ErrInvalidInput, err, "")
	}
	defer f.Close()

	src, err := openSource()
	if err != nil {
		return handleSourceError(err)
	}
	defer src.Close()

	engine := query.NewEngine(src, query.WithLogger(logger))
	cache := engine.NewCache()

	var results []batchResult
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := runBatchLine(engine, src, line, cache)
		if err != nil {
			return handleQueryError(fmt.Errorf("line %d: %w", lineNo, err))
		}
		r.Line = lineNo
		results = append(results, r)
	}
	if err := scanner.Err(); err != nil {
		return handleError(ErrInvalidInput, err, "")
	}

	stats := cache.Stats()
	elapsed := time.Since(start).Milliseconds()
	if isJSONOutput() {
		outputSuccess(map[string]interface{}{
			"file":    path,
			"results": results,
		}, &Meta{Count: len(results), QueryTimeMs: elapsed, Cache: &stats})
		return nil
	}

	for i, r := range results {
		if i > 0 {
			fmt.Println()
		}
		fmt.Println(ui.Header(r.Query))
		if len(r.Nodes) == 0 {
			fmt.Println(ui.Hint("No nodes matched."))
			continue
		}
		printNodeTable(r.Nodes)
	}
	return nil
}

func runBatchLine(engine *query.Engine, src *sceneSource, line string, cache *fieldcache.Cache) (batchResult, error) {
	text, _, err := resolveQueryText(line)
	if err != nil {
		return batchResult{}, err
	}
	result, err := runQuery(engine, src, text, cache)
	if err != nil {
		return batchResult{}, err
	}
	return batchResult{Query: text, Nodes: nodeViews(result, cache)}, nil
}

func saveQuery(name, text, description string) error {
	c := getConfig()
	key, err := c.SetQuery(name, text, description)
	if err != nil {
		return err
	}
	if err := config.SaveTo(getConfigPath(), c); err != nil {
		return err
	}
	if !isJSONOutput() {
		fmt.Fprintln(os.Stderr, ui.Successf("Saved query %s", key))
	}
	return nil
}

func listSavedQueries(c *config.Config, start time.Time) error {
	names := c.QueryNames()
	elapsed := time.Since(start).Milliseconds()

	if isJSONOutput() {
		items := make([]map[string]string, 0, len(names))
		for _, name := range names {
			q := c.Queries[name]
			items = append(items, map[string]string{
				"name":        name,
				"query":       q.Query,
				"description": q.Description,
			})
		}
		outputSuccess(map[string]interface{}{
			"queries": items,
		}, &Meta{Count: len(items), QueryTimeMs: elapsed})
		return nil
	}

	if len(names) == 0 {
		fmt.Println(ui.Hint("No saved queries. Save one with: sceneql query \"<expression>\" --save <name>"))
		return nil
	}

	fmt.Println(ui.Header("Saved queries:"))
	tbl := ui.NewTable(3)
	for _, name := range names {
		q := c.Queries[name]
		tbl.AddRow(ui.NodePath(name), q.Query, ui.Hint(q.Description))
	}
	fmt.Print(tbl.String())
	return nil
}

// handleSourceError reports a failure to open the scene or run a query on
// it. Unclassified errors come from malformed scene files.
func handleSourceError(err error) error {
	code := errorCode(err)
	if code == ErrInternal {
		code = ErrSceneInvalid
	}
	return handleError(code, err, errorSuggestion(code))
}

func init() {
	queryCmd.Flags().BoolVar(&queryListFlag, "list", false, "List saved queries")
	queryCmd.Flags().StringVarP(&queryFileFlag, "file", "f", "", "Run one query per line from a file")
	queryCmd.Flags().StringVar(&querySaveFlag, "save", "", "Save the query under a name after it runs")
	queryCmd.Flags().StringVar(&queryDescFlag, "description", "", "Description for --save")
	queryCmd.Flags().StringVar(&queryNameFilter, "where-name", "", "Keep only nodes whose name matches a regex")
	rootCmd.AddCommand(queryCmd)
}
