// Package cli provides the command-line interface for fangnote.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuchen-w/fangnote/internal/config"
	"github.com/yuchen-w/fangnote/internal/extract"
	"github.com/yuchen-w/fangnote/internal/metrics"
	"github.com/yuchen-w/fangnote/internal/service"
	"github.com/yuchen-w/fangnote/internal/store"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	collector  *metrics.Collector
	kv         store.KV
	taskStore  *store.TaskStore

	// Lazy-initialized extraction backend
	extractor extract.Extractor
)

// rootCmd represents the base command. Without a subcommand it starts the
// interactive app.
var rootCmd = &cobra.Command{
	Use:   "fangnote",
	Short: "AI 房源随手记",
	Long: `Fangnote turns free-form real-estate listing descriptions (text, a photo
or a voice recording) into structured listings via a generative AI service.
Extracted listings land in a local task log where they can be reviewed,
published or saved as reusable templates.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		collector = metrics.NewCollector()

		ctx := context.Background()
		var err error
		kv, err = store.Open(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("open %s store: %w", cfg.Store, err)
		}
		taskStore = store.New(kv, logger, collector)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if kv != nil {
			if err := kv.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
	RunE: runInteractive,
}

// getManager builds the task manager, loading the persisted log. Commands
// that submit or retry pass requireExtractor=true; everything else works
// without provider credentials.
func getManager(ctx context.Context, requireExtractor bool) (*service.Manager, error) {
	if requireExtractor && extractor == nil {
		var err error
		extractor, err = extract.New(ctx, cfg, collector)
		if err != nil {
			return nil, fmt.Errorf("init extractor: %w", err)
		}
	}

	mgr := service.NewManager(extractor, taskStore, logger)
	mgr.LoadPersisted(ctx)
	return mgr, nil
}

// resolveTaskID expands a task id prefix to the full id.
func resolveTaskID(mgr *service.Manager, prefix string) (string, error) {
	var match string
	for _, t := range mgr.Snapshot() {
		if strings.HasPrefix(t.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("task id %q is ambiguous", prefix)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no task with id %q", prefix)
	}
	return match, nil
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(themeCmd)
}
