// Package cli implements the command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aidanlsb/sceneql/internal/config"
	"github.com/aidanlsb/sceneql/internal/ui"
)

var (
	// Global flags
	configPath string
	sceneFlag  string // YAML snapshot
	dbFlag     string // SQLite scene database
	verbose    bool

	// Resolved values
	resolvedConfigPath string
	cfg                *config.Config
	logger             = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sceneql",
	Short: "sceneql - query a scene graph",
	Long: `sceneql filters and relates the nodes of a scene graph with a small
declarative query language.

  sceneql query "type is mesh" --scene shot.yaml
  sceneql query "parent.parent has (name is root and parent is none)" --db shot.db

Run 'sceneql docs' for the language reference.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = buildLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		switch cmd.Name() {
		case "completion", "help", "version":
			return nil
		}

		cfg, resolvedConfigPath, err = config.LoadResolved(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg == nil {
			cfg = &config.Config{}
		}
		ui.ConfigureTheme(cfg.UI.Accent)
		ui.ConfigureMarkdownCodeTheme(cfg.UI.CodeTheme)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&sceneFlag, "scene", "s", "", "Scene snapshot file (YAML)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Scene database file (SQLite)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log evaluation details to stderr")
}

// buildLogger returns a production logger writing to stderr, at debug level
// when verbose is set.
func buildLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// getConfig returns the loaded config.
func getConfig() *config.Config {
	if cfg == nil {
		return &config.Config{}
	}
	return cfg
}

// getConfigPath returns the resolved global config path.
func getConfigPath() string {
	if resolvedConfigPath == "" {
		return config.ResolveConfigPath(configPath)
	}
	return resolvedConfigPath
}
