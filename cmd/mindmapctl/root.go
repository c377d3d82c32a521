package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/persistence"
	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/events"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/config"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/di"
)

// options are the persistent flags shared by every subcommand
type options struct {
	configDir   string
	environment string
	backend     string
	path        string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "mindmapctl",
		Short:         "Inspect and maintain OSINT mind map snapshots",
		Long:          longRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configDir, "config-dir", envOr("CONFIG_DIR", "config"), "directory holding base.yaml and <env>.yaml")
	flags.StringVar(&opts.environment, "env", envOr("ENVIRONMENT", "development"), "environment whose config is layered over base")
	flags.StringVar(&opts.backend, "backend", "", "snapshot backend, overriding the config (file, sqlite, redis, dynamodb, memory)")
	flags.StringVar(&opts.path, "path", "", "snapshot path for the file and sqlite backends, overriding the config")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(
		newValidateCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newSearchCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// loadConfig loads the layered configuration and applies flag overrides
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(o.configDir, config.ParseEnvironment(o.environment)).Load()
	if err != nil {
		return nil, err
	}
	if o.backend != "" {
		cfg.Snapshot.Backend = o.backend
	}
	if o.path != "" {
		cfg.Snapshot.Path = o.path
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSlot opens the configured snapshot backend. The returned func closes it.
func (o *options) openSlot(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SnapshotSlot, func(), error) {
	var awsCfg aws.Config
	if cfg.Snapshot.Backend == config.BackendDynamoDB {
		loaded, err := di.ProvideAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		awsCfg = loaded
	}
	return di.ProvideSnapshotSlot(ctx, cfg, awsCfg, logger)
}

// newWorkspace creates a detached graph with its persistence service
func newWorkspace(slot ports.SnapshotSlot, logger *zap.Logger) (*aggregates.Graph, *persistence.Service) {
	graph := aggregates.NewGraph(events.NopPublisher{})
	return graph, persistence.NewService(graph, slot, logger)
}

var longRoot = `
mindmapctl works on the snapshots the canvas server saves, using the same
configuration files and backends.

Examples:
  # Check a document before importing it
  mindmapctl validate investigation.json

  # Copy the saved graph out of a redis backend
  mindmapctl export --backend redis -o backup.json

  # Replace the saved graph; the server picks it up on its next start
  mindmapctl import investigation.json
`
