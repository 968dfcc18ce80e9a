package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/sceneql/internal/query"
)

var parseCmd = &cobra.Command{
	Use:   "parse <expression>",
	Short: "Parse a query and print its canonical form",
	Long: `Parse a query without evaluating it. The output shows how precedence
grouped the clauses: not binds tighter than and, and tighter than or.

Examples:
  sceneql parse "not type is mesh and name is a or name is b"
  sceneql parse "children has (type in (mesh, nurbsCurve))" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.TrimSpace(strings.Join(args, " "))
		if resolved, _, err := resolveQueryText(text); err == nil {
			text = resolved
		}

		// No source is needed; field names are still checked.
		expr, err := query.NewEngine(nil).Parse(text)
		if err != nil {
			return handleQueryError(err)
		}

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"query":     text,
				"canonical": expr.String(),
				"fields":    query.FieldNames(expr),
			}, nil)
			return nil
		}

		fmt.Println(expr.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
