package cli

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	builtindocs "github.com/aidanlsb/sceneql/docs"
	"github.com/aidanlsb/sceneql/internal/query"
	"github.com/aidanlsb/sceneql/internal/slugs"
	"github.com/aidanlsb/sceneql/internal/ui"
)

const (
	docsRoot        = "reference"
	docsExampleLang = "sceneql"
)

var (
	docsExamplesCheck bool

	docsDisplayContext = ui.NewDisplayContext
	docsMarkdownRender = ui.RenderMarkdown
)

type docsTopic struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Path   string `json:"path"`
	fsPath string
}

type docsExample struct {
	Topic string `json:"topic"`
	Line  int    `json:"line"`
	Query string `json:"query"`
	Error string `json:"error,omitempty"`
}

type docsFlag struct {
	Command   string `json:"command"`
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Default   string `json:"default,omitempty"`
	Usage     string `json:"usage"`
}

var docsCmd = &cobra.Command{
	Use:   "docs [topic]",
	Short: "Read the query language reference",
	Long: `Read the documentation bundled into the sceneql binary.

Examples:
  sceneql docs
  sceneql docs language
  sceneql docs examples --check
  sceneql docs flags query`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, err := listDocsTopicsFS(builtindocs.FS, docsRoot)
		if err != nil {
			return handleError(ErrInternal, err, "Rebuild sceneql so bundled docs are available")
		}

		if len(args) == 0 {
			return outputDocsTopics(topics)
		}

		topic, ok := findDocsTopic(topics, args[0])
		if !ok {
			ids := make([]string, 0, len(topics))
			for _, t := range topics {
				ids = append(ids, t.ID)
			}
			return handleErrorMsg(ErrInvalidInput,
				fmt.Sprintf("docs topic %q not found", args[0]),
				"Available topics: "+strings.Join(ids, ", "))
		}
		return outputDocsTopicContent(topic)
	},
}

var docsExamplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "List the example queries in the reference",
	Long: `List every example query from the bundled reference. With --check,
each example is parsed and failures are reported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, err := listDocsTopicsFS(builtindocs.FS, docsRoot)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		var examples []docsExample
		for _, t := range topics {
			content, err := fs.ReadFile(builtindocs.FS, t.fsPath)
			if err != nil {
				return handleError(ErrInternal, err, "")
			}
			examples = append(examples, extractQueryExamples(t.ID, content)...)
		}

		failed := 0
		if docsExamplesCheck {
			engine := query.NewEngine(nil)
			for i := range examples {
				if _, err := engine.Parse(examples[i].Query); err != nil {
					examples[i].Error = err.Error()
					failed++
				}
			}
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"examples": examples,
				"failed":   failed,
			}, &Meta{Count: len(examples)})
			return nil
		}

		for _, ex := range examples {
			loc := ui.Hint(fmt.Sprintf("%s:%d", ex.Topic, ex.Line))
			if ex.Error != "" {
				fmt.Printf("%s %s\n    %s\n", loc, ex.Query, ui.Error(ex.Error))
				continue
			}
			fmt.Printf("%s %s\n", loc, ex.Query)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d examples failed to parse", failed, len(examples))
		}
		return nil
	},
}

var docsFlagsCmd = &cobra.Command{
	Use:   "flags [command]",
	Short: "List command flags",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := rootCmd
		if len(args) == 1 {
			found, _, err := rootCmd.Find(strings.Fields(args[0]))
			if err != nil || found == rootCmd {
				return handleErrorMsg(ErrInvalidInput, fmt.Sprintf("unknown command %q", args[0]), "Run 'sceneql help'")
			}
			target = found
		}

		flags := collectFlags(target)
		if isJSONOutput() {
			outputSuccess(map[string]interface{}{"flags": flags}, &Meta{Count: len(flags)})
			return nil
		}

		tbl := ui.NewTable(3)
		for _, f := range flags {
			name := "--" + f.Name
			if f.Shorthand != "" {
				name = "-" + f.Shorthand + ", " + name
			}
			tbl.AddRow(ui.Hint(f.Command), ui.AccentBold.Render(name), f.Usage)
		}
		fmt.Print(tbl.String())
		return nil
	},
}

// collectFlags lists the flags of cmd and its subcommands, global flags first.
func collectFlags(cmd *cobra.Command) []docsFlag {
	var out []docsFlag
	add := func(command string, set *pflag.FlagSet) {
		set.VisitAll(func(f *pflag.Flag) {
			if f.Hidden || f.Name == "help" {
				return
			}
			out = append(out, docsFlag{
				Command:   command,
				Name:      f.Name,
				Shorthand: f.Shorthand,
				Type:      f.Value.Type(),
				Default:   f.DefValue,
				Usage:     f.Usage,
			})
		})
	}

	if cmd == rootCmd {
		add("(global)", rootCmd.PersistentFlags())
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		if c != rootCmd {
			add(strings.TrimPrefix(c.CommandPath(), rootCmd.Name()+" "), c.LocalNonPersistentFlags())
		}
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(cmd)
	return out
}

func outputDocsTopics(topics []docsTopic) error {
	if isJSONOutput() {
		outputSuccess(map[string]interface{}{
			"topics":         topics,
			"navigation_tip": "sceneql docs <topic>",
		}, &Meta{Count: len(topics)})
		return nil
	}

	fmt.Println("Documentation topics:")
	for _, t := range topics {
		fmt.Printf("  %-28s %s\n", "sceneql docs "+t.ID, t.Title)
	}
	fmt.Println()
	fmt.Println("  sceneql docs examples        List the example queries")
	fmt.Println("  sceneql docs flags           List command flags")
	fmt.Println("  sceneql help <command>       Command docs")
	return nil
}

func outputDocsTopicContent(topic docsTopic) error {
	content, err := fs.ReadFile(builtindocs.FS, topic.fsPath)
	if err != nil {
		return handleError(ErrInternal, err, "")
	}

	if isJSONOutput() {
		outputSuccess(map[string]interface{}{
			"topic":   topic.ID,
			"title":   topic.Title,
			"path":    topic.Path,
			"content": string(content),
		}, nil)
		return nil
	}

	renderedContent := string(content)
	display := docsDisplayContext()
	if display.IsTTY {
		if rendered, renderErr := docsMarkdownRender(string(content), display.TermWidth); renderErr == nil {
			renderedContent = rendered
		}
	}

	fmt.Print(renderedContent)
	if !strings.HasSuffix(renderedContent, "\n") {
		fmt.Println()
	}
	return nil
}

// listDocsTopicsFS lists the markdown files under dir, titled by their first
// heading.
func listDocsTopicsFS(docsFS fs.FS, dir string) ([]docsTopic, error) {
	entries, err := fs.ReadDir(docsFS, dir)
	if err != nil {
		return nil, err
	}

	var topics []docsTopic
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".md" {
			continue
		}
		fsPath := path.Join(dir, e.Name())
		content, err := fs.ReadFile(docsFS, fsPath)
		if err != nil {
			return nil, err
		}
		stem := strings.TrimSuffix(e.Name(), ".md")
		title := docsTitle(content)
		if title == "" {
			title = stem
		}
		topics = append(topics, docsTopic{
			ID:     slugs.HeadingSlug(stem),
			Title:  title,
			Path:   path.Join("docs", fsPath),
			fsPath: fsPath,
		})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

// findDocsTopic matches name against topic ids and titles by slug.
func findDocsTopic(topics []docsTopic, name string) (docsTopic, bool) {
	want := slugs.HeadingSlug(name)
	for _, t := range topics {
		if t.ID == want || slugs.HeadingSlug(t.Title) == want {
			return t, true
		}
	}
	return docsTopic{}, false
}

func parseMarkdown(content []byte) ast.Node {
	return goldmark.New().Parser().Parse(text.NewReader(content))
}

// docsTitle returns the text of the first heading, or "".
func docsTitle(content []byte) string {
	var title string
	_ = ast.Walk(parseMarkdown(content), func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				b.Write(t.Segment.Value(content))
			}
		}
		title = strings.TrimSpace(b.String())
		return ast.WalkStop, nil
	})
	return title
}

// extractQueryExamples returns one example per non-empty line of every
// sceneql fenced code block.
func extractQueryExamples(topic string, content []byte) []docsExample {
	var out []docsExample
	_ = ast.Walk(parseMarkdown(content), func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if string(block.Language(content)) != docsExampleLang {
			return ast.WalkSkipChildren, nil
		}
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			q := strings.TrimSpace(string(seg.Value(content)))
			if q == "" {
				continue
			}
			out = append(out, docsExample{
				Topic: topic,
				Line:  bytes.Count(content[:seg.Start], []byte("\n")) + 1,
				Query: q,
			})
		}
		return ast.WalkSkipChildren, nil
	})
	return out
}

func init() {
	docsExamplesCmd.Flags().BoolVar(&docsExamplesCheck, "check", false, "Parse every example and report failures")
	docsCmd.AddCommand(docsExamplesCmd)
	docsCmd.AddCommand(docsFlagsCmd)
	rootCmd.AddCommand(docsCmd)
}
