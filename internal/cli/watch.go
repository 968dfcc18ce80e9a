package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aidanlsb/sceneql/internal/query"
	"github.com/aidanlsb/sceneql/internal/scenefile"
	"github.com/aidanlsb/sceneql/internal/ui"
	"github.com/aidanlsb/sceneql/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <expression|saved-query>",
	Short: "Re-run a query whenever the scene snapshot changes",
	Long: `Watch a YAML scene snapshot and re-run a query each time the file is
rewritten. Every run starts from a fresh field cache, so results always
reflect the file on disk.

Examples:
  sceneql watch "type is mesh" --scene shot.yaml
  sceneql watch hidden-meshes --scene shot.yaml --debounce 500ms`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _, err := resolveQueryText(strings.TrimSpace(strings.Join(args, " ")))
		if err != nil {
			return handleQueryError(err)
		}

		scenePath, dbPath := resolveScenePaths()
		if dbPath != "" || scenePath == "" {
			return handleErrorMsg(ErrMissingArgument, "watch needs a scene snapshot file", "Pass --scene <file.yaml>")
		}

		// Reject bad queries before waiting on the file.
		if _, err := query.NewEngine(nil).Parse(text); err != nil {
			return handleQueryError(err)
		}

		run := func() error {
			start := time.Now()
			g, err := scenefile.Load(scenePath)
			if err != nil {
				return err
			}
			engine := query.NewEngine(g, query.WithLogger(logger))
			cache := engine.NewCache()
			result, err := runQuery(engine, &sceneSource{Source: g, graph: g, path: scenePath}, text, cache)
			if err != nil {
				return err
			}
			if !isJSONOutput() {
				fmt.Println(ui.Header(fmt.Sprintf("%s  %s", time.Now().Format("15:04:05"), text)))
			}
			return outputQueryResult(text, result, cache, start)
		}

		if err := run(); err != nil {
			return handleSourceError(err)
		}

		w, err := watcher.New(watcher.Config{
			Paths:         []string{scenePath},
			DebounceDelay: watchDebounce,
			Logger:        logger,
			OnChange: func(path string) {
				if err := run(); err != nil {
					reportWatchError(err)
				}
			},
		})
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !isJSONOutput() {
			fmt.Fprintln(os.Stderr, ui.Hint(fmt.Sprintf("Watching %s (Ctrl+C to stop)", scenePath)))
		}
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return handleError(ErrInternal, err, "")
		}
		return nil
	},
}

// reportWatchError keeps watching after a failed re-run. The file is often
// mid-write when a run fails.
func reportWatchError(err error) {
	logger.Warn("re-run failed", zap.Error(err))
	if isJSONOutput() {
		outputJSON(Response{
			OK: false,
			Error: &ErrorInfo{
				Code:    errorCode(err),
				Message: err.Error(),
			},
			Warnings: []Warning{{Code: WarnSceneReload, Message: "still watching"}},
		})
		return
	}
	fmt.Fprintln(os.Stderr, ui.Warning(err.Error()+"; still watching"))
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 100*time.Millisecond, "Quiet period before re-running")
	rootCmd.AddCommand(watchCmd)
}
