// import.go implements the "archmerge import" command.
//
// Orchestration steps:
//  1. Load the target workspace (or start an empty one)
//  2. Discover the source documents named by --paths, never the target
//  3. Optionally add documents described by Compose files and container labels
//  4. Merge every document into the target model
//  5. Write the result (unless --dry-run) and print a summary
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/archmerge/internal/docker"
	"github.com/shinji-kodama/archmerge/internal/filter"
	"github.com/shinji-kodama/archmerge/internal/merge"
	"github.com/shinji-kodama/archmerge/internal/model"
	"github.com/shinji-kodama/archmerge/internal/workspace"
)

// importFlags holds the flag values shared by the import and watch commands.
type importFlags struct {
	paths      string // --paths: directories and files to import
	include    string // --include: element filter tokens
	ccprefix   bool   // --ccprefix: prefix container and component names
	people     bool   // --people: also import people
	fromDocker bool   // --from-docker: add documents from container labels
	compose    string // --compose: Compose files to read as documents
	output     string // --output: where to write the result (default: target)
	format     string // --format: json or yaml (default: from output extension)
	dryRun     bool   // --dry-run: merge but do not write
}

// bindImportFlags registers the import flags on cmd.
func bindImportFlags(cmd *cobra.Command, flags *importFlags) {
	cmd.Flags().StringVar(&flags.paths, "paths", "", "Comma or space separated directories and files to import, relative to the target's directory")
	cmd.Flags().StringVar(&flags.include, "include", "", "Comma separated include tokens, e.g. \"softwareSystem.[Orders],container.*\" (default: everything)")
	cmd.Flags().BoolVar(&flags.ccprefix, "ccprefix", false, "Prefix container and component names with \"[<workspace name>] \"")
	cmd.Flags().BoolVar(&flags.people, "people", false, "Also import people")
	cmd.Flags().BoolVar(&flags.fromDocker, "from-docker", false, "Also import architecture described by Docker container labels")
	cmd.Flags().StringVar(&flags.compose, "compose", "", "Comma or space separated Docker Compose files to import, relative to the target's directory")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the merged workspace here instead of over the target")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: json or yaml (default: from the output file extension)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Merge and report without writing")
}

// importConfig is the resolved form of importFlags.
type importConfig struct {
	target     string
	output     string
	format     workspace.Format
	paths      string
	filter     *filter.Filter
	usePrefix  bool
	people     bool
	fromDocker bool
	compose    string
	dryRun     bool
}

// resolveImportConfig validates the flags. The include filter distinguishes
// an absent --include (everything) from an empty one (nothing).
func resolveImportConfig(cmd *cobra.Command, target string, flags *importFlags) (*importConfig, error) {
	cfg := &importConfig{
		target:     target,
		output:     flags.output,
		paths:      flags.paths,
		filter:     filter.Parse(flags.include, cmd.Flags().Changed("include")),
		usePrefix:  flags.ccprefix,
		people:     flags.people,
		fromDocker: flags.fromDocker,
		compose:    flags.compose,
		dryRun:     flags.dryRun,
	}
	if cfg.output == "" {
		cfg.output = target
	}

	if flags.format != "" {
		format, err := workspace.ParseFormat(flags.format)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitGeneralError, "invalid --format", err)
		}
		cfg.format = format
	} else {
		format, ok := workspace.FormatOf(cfg.output)
		if !ok {
			return nil, model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("cannot derive the output format from %q: use --format or a .json/.yaml extension", cfg.output))
		}
		cfg.format = format
	}
	return cfg, nil
}

// NewImportCommand creates the "import" cobra command.
func NewImportCommand() *cobra.Command {
	flags := &importFlags{}

	cmd := &cobra.Command{
		Use:   "import <workspace>",
		Short: "Merge workspace documents into a target workspace",
		Long: `Merge the software systems, containers, components and relationships of
every document found under --paths into the target workspace.

The target is created when it does not exist and is never imported into
itself, so --paths may name the directory that holds it. Elements are
matched by name: existing ones are completed, missing ones are created.

Examples:
  archmerge import landscape.yaml --paths teams
  archmerge import landscape.yaml --paths "teams, legacy/billing.json" --ccprefix
  archmerge import landscape.yaml --paths teams --include "softwareSystem.[Orders],container.*"
  archmerge import landscape.yaml --paths teams --compose deploy/compose.yaml
  archmerge import landscape.yaml --paths teams --from-docker --dry-run --json`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveImportConfig(cmd, args[0], flags)
			if err != nil {
				return err
			}
			result, err := runImport(cmd.Context(), cfg, Logger())
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	bindImportFlags(cmd, flags)
	return cmd
}

// importResult is the summary of one import run.
type importResult struct {
	Target    string       `json:"target"`
	Output    string       `json:"output"`
	Written   bool         `json:"written"`
	Documents []string     `json:"documents"`
	Stats     *merge.Stats `json:"stats"`
}

// runImport performs one complete import. The target is loaded fresh on
// every call, which keeps repeated runs (watch mode) idempotent.
func runImport(ctx context.Context, cfg *importConfig, logger *zap.Logger) (*importResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Load the target workspace.
	store := workspace.NewStore()
	target, err := store.LoadOrCreate(ctx, cfg.target)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitParseError, "failed to load target workspace", err)
	}
	logger.Debug("loaded target workspace", zap.String("location", cfg.target), zap.String("name", target.Name))

	// Step 2: Discover source documents relative to the target's directory.
	baseDir := filepath.Dir(workspace.Canonical(cfg.target))
	discoverer := workspace.NewDiscoverer(store, logger)
	if cfg.output != cfg.target {
		discoverer.Exclude(cfg.output)
	}
	docs, err := discoverer.Discover(ctx, baseDir, cfg.paths, cfg.target)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitWorkspaceNotFound, "failed to discover workspaces", err)
	}

	// Step 3: Compose files, then running containers, follow the workspace
	// documents.
	docs = append(docs, composeDocuments(ctx, store, baseDir, cfg.compose, logger)...)
	if cfg.fromDocker {
		dockerDocs, err := discoverDockerDocuments(ctx, logger)
		if err != nil {
			return nil, err
		}
		docs = append(docs, dockerDocs...)
	}

	// Step 4: Merge.
	importer := merge.NewImporter(merge.Options{
		Filter:        cfg.filter,
		UsePrefix:     cfg.usePrefix,
		IncludePeople: cfg.people,
		Logger:        logger,
	})
	stats, err := importer.Run(target.Model, docs)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "import failed", err)
	}

	result := &importResult{
		Target:    cfg.target,
		Output:    cfg.output,
		Documents: make([]string, 0, len(docs)),
		Stats:     stats,
	}
	for _, doc := range docs {
		result.Documents = append(result.Documents, doc.Location)
	}

	// Step 5: Write the result.
	if cfg.dryRun {
		return result, nil
	}
	if err := store.Save(ctx, cfg.output, target, cfg.format); err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to write workspace", err)
	}
	result.Written = true
	logger.Info("wrote workspace", zap.String("location", cfg.output), zap.String("format", cfg.format.String()))
	return result, nil
}

// composeDocuments reads the Compose files named by paths. A file that
// cannot be read or parsed is logged and skipped, like a workspace document.
func composeDocuments(ctx context.Context, store *workspace.Store, baseDir, paths string, logger *zap.Logger) []*model.Document {
	var docs []*model.Document
	for _, token := range workspace.SplitPaths(paths) {
		location := workspace.ResolvePath(baseDir, token)
		data, err := store.Read(ctx, location)
		if err != nil {
			logger.Warn("skipping unreadable compose file", zap.String("location", location), zap.Error(err))
			continue
		}
		found, err := docker.ComposeDocuments(data, location, logger)
		if err != nil {
			logger.Warn("skipping invalid compose file", zap.String("location", location), zap.Error(err))
			continue
		}
		docs = append(docs, found...)
	}
	return docs
}

// discoverDockerDocuments connects to the daemon and converts labelled
// containers into documents.
func discoverDockerDocuments(ctx context.Context, logger *zap.Logger) ([]*model.Document, error) {
	cli, err := docker.NewClient()
	if err != nil {
		return nil, err // NewClient already returns CLIError with ExitDockerNotRunning
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return nil, err
	}
	return docker.DiscoverDocuments(ctx, cli.Lister(), logger)
}

// printImportResult outputs the summary in text or JSON format.
func printImportResult(w io.Writer, result *importResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	s := result.Stats
	fmt.Fprintf(w, "Imported %d workspace(s) into %s", s.Documents, result.Target)
	if s.Failed > 0 {
		fmt.Fprintf(w, " (%d failed)", s.Failed)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-18s %8s %8s %10s %8s\n", "", "CREATED", "UPDATED", "UNCHANGED", "SKIPPED")
	rows := []struct {
		label  string
		counts merge.ElementCounts
	}{
		{"People", s.People},
		{"Software systems", s.SoftwareSystems},
		{"Containers", s.Containers},
		{"Components", s.Components},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%-18s %8d %8d %10d %8d\n", row.label,
			row.counts.Created, row.counts.Updated, row.counts.Unchanged, row.counts.Skipped)
	}
	fmt.Fprintf(w, "Relationships: %d cloned, %d already present, %d unresolved\n",
		s.Relationships.Cloned, s.Relationships.Duplicate, s.Relationships.Unresolved)

	if result.Written {
		fmt.Fprintf(w, "Wrote %s\n", result.Output)
	} else {
		fmt.Fprintln(w, "Dry run: nothing written")
	}
}
