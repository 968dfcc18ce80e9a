package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/sceneql/internal/fieldcache"
	"github.com/aidanlsb/sceneql/internal/ui"
)

type fieldView struct {
	Name        string `json:"name"`
	Multi       bool   `json:"multi"`
	Bulk        bool   `json:"bulk"`
	Description string `json:"description"`
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the fields a query can use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		infos := fieldcache.Fields()

		if isJSONOutput() {
			items := make([]fieldView, 0, len(infos))
			for _, f := range infos {
				items = append(items, fieldView(f))
			}
			outputSuccess(map[string]interface{}{
				"fields":      items,
				"attr_prefix": fieldcache.AttrPrefix,
			}, &Meta{Count: len(items)})
			return nil
		}

		tbl := ui.NewTable(3)
		for _, f := range infos {
			kind := "scalar"
			if f.Multi {
				kind = "multi"
			}
			if f.Bulk {
				kind += ", bulk"
			}
			tbl.AddRow(ui.AccentBold.Render(f.Name), ui.Hint(kind), f.Description)
		}
		fmt.Print(tbl.String())
		fmt.Println()
		fmt.Println(ui.Hint(fmt.Sprintf("%s<name> reads a dynamic attribute, e.g. %svisibility", fieldcache.AttrPrefix, fieldcache.AttrPrefix)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
