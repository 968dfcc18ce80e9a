package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aidanlsb/sceneql/internal/scenedb"
	"github.com/aidanlsb/sceneql/internal/scenefile"
	"github.com/aidanlsb/sceneql/internal/ui"
)

var importCmd = &cobra.Command{
	Use:   "import <scene.yaml>",
	Short: "Load a scene snapshot into a SQLite database",
	Long: `Import a YAML scene snapshot into a scene database. The database
content is replaced in a single transaction.

Examples:
  sceneql import shot.yaml --db shot.db
  sceneql import shot.yaml              # uses default_db from config`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		dbPath := strings.TrimSpace(dbFlag)
		if dbPath == "" {
			dbPath = getConfig().DefaultDB
		}
		if dbPath == "" {
			return handleErrorMsg(ErrMissingArgument, "specify a database with --db", "Or set default_db in config.toml")
		}

		var spinner *ui.Spinner
		if !isJSONOutput() {
			spinner = ui.NewSpinner(os.Stderr, fmt.Sprintf("Importing %s", args[0]))
			spinner.Start()
		}
		stopSpinner := func() {
			if spinner != nil {
				spinner.Stop()
				spinner = nil
			}
		}
		defer stopSpinner()

		g, err := scenefile.Load(args[0])
		if err != nil {
			return handleSourceError(err)
		}

		db, err := scenedb.Open(dbPath)
		if err != nil {
			return handleError(ErrDataSource, err, "")
		}
		defer db.Close()

		if err := db.Import(g); err != nil {
			return handleError(ErrDataSource, err, "Another import may be running")
		}
		stats, err := db.Stats()
		if err != nil {
			return handleError(ErrDataSource, err, "")
		}
		logger.Debug("imported scene",
			zap.String("scene", args[0]),
			zap.String("db", dbPath),
			zap.Int("nodes", stats.Nodes))

		elapsed := time.Since(start).Milliseconds()
		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"scene": args[0],
				"db":    dbPath,
				"stats": stats,
			}, &Meta{Count: stats.Nodes, QueryTimeMs: elapsed})
			return nil
		}

		if spinner != nil {
			spinner.StopWithSuccess(fmt.Sprintf("Imported %s into %s", args[0], dbPath))
			spinner = nil
		}
		fmt.Printf("  %d nodes, %d memberships, %d connections, %d attributes\n",
			stats.Nodes, stats.Memberships, stats.Connections, stats.Attributes)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
