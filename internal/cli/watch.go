// watch.go implements the "archmerge watch" command.
//
// watch runs one import immediately and then re-runs it whenever a source
// document changes. Each run reloads the target, so the outcome of any run
// equals that of a single import over the current sources.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/archmerge/internal/model"
	"github.com/shinji-kodama/archmerge/internal/watch"
	"github.com/shinji-kodama/archmerge/internal/workspace"
)

// NewWatchCommand creates the "watch" cobra command.
func NewWatchCommand() *cobra.Command {
	flags := &importFlags{}
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <workspace>",
		Short: "Re-import whenever a source document changes",
		Long: `Run an import, then watch the directories named by --paths and --compose.
Each time a workspace document in them is created, changed or removed, the
import runs again.

Only local directories can be watched. Stop with Ctrl+C.

Examples:
  archmerge watch landscape.yaml --paths teams
  archmerge watch landscape.yaml --paths "teams legacy" --output merged.json --debounce 2s`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveImportConfig(cmd, args[0], flags)
			if err != nil {
				return err
			}
			log := Logger()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			dirs, err := watchDirs(filepath.Dir(workspace.Canonical(cfg.target)), cfg.paths+" "+cfg.compose)
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				return model.NewCLIError(model.ExitGeneralError, "no local directories to watch: check --paths")
			}

			out := cmd.OutOrStdout()
			rerun := func(ctx context.Context, changed []string) error {
				log.Info("workspaces changed", zap.Strings("paths", changed))
				result, err := runImport(ctx, cfg, log)
				if err != nil {
					return err
				}
				printImportResult(out, result)
				return nil
			}

			// The first run fails the command; later failures are logged
			// and watching continues.
			if err := rerun(ctx, nil); err != nil {
				return err
			}

			w, err := watch.New(dirs, rerun,
				watch.WithDebounce(debounce),
				watch.WithLogger(log),
				watch.WithFilter(isWorkspaceFile),
				watch.WithIgnore(cfg.target, cfg.output))
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to create watcher", err)
			}

			log.Info("watching for changes", zap.Strings("dirs", dirs), zap.Duration("debounce", debounce))
			if err := w.Run(ctx); err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "watch failed", err)
			}

			stats := w.Stats()
			log.Info("stopped watching", zap.Int("events", stats.Events), zap.Int("runs", stats.Runs), zap.Int("errors", stats.Errors))
			return nil
		},
	}

	bindImportFlags(cmd, flags)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period after the last change before re-importing")
	return cmd
}

// watchDirs returns the sorted, de-duplicated local directories covering
// the paths parameter: a directory token watches itself, a file token
// watches its parent. Missing paths and URLs cannot be watched and are
// skipped.
func watchDirs(baseDir, paths string) ([]string, error) {
	seen := make(map[string]bool)
	var dirs []string
	for _, token := range workspace.SplitPaths(paths) {
		if strings.Contains(token, "://") && !strings.HasPrefix(token, "file://") {
			continue
		}
		location := workspace.Canonical(workspace.ResolvePath(baseDir, token))

		info, err := os.Stat(location)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", location, err)
		}

		dir := location
		if !info.IsDir() {
			dir = filepath.Dir(location)
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func isWorkspaceFile(path string) bool {
	_, ok := workspace.FormatOf(path)
	return ok
}
