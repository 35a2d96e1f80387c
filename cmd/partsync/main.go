// Command partsync inspects and manages per-partition cursor checkpoints.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	_ "github.com/ajitpratap0/partsync/pkg/checkpoint/stores/all"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/logger"
	"github.com/ajitpratap0/partsync/pkg/observability"
)

var version = "0.1.0"

// app carries the configuration loaded by the root command.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	log        *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "partsync",
		Short: "partsync - per-partition incremental sync checkpoints",
		Long: `partsync manages the checkpoints of fan-out streams that keep one incremental
cursor per partition. It reads, copies and deletes checkpoints in any configured
store and converts partitions to and from their canonical keys.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			cmd.SetContext(logger.ContextWithJobID(cmd.Context(), a.cfg.Name))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = logger.Sync()
			return observability.Shutdown(ctx)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to the YAML configuration (defaults plus PARTSYNC_* environment when unset)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "partsync v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "stores",
		Short: "List the checkpoint stores linked into this binary",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range checkpoint.ListStores() {
				marker := " "
				if a.cfg != nil && a.cfg.Checkpoint.Store == name {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
		},
	})

	root.AddCommand(newStateCommand(a))
	root.AddCommand(newKeyCommand())
	return root
}

// setup loads the configuration and initializes logging and tracing.
func (a *app) setup() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, err = config.FromEnv()
	}
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logCfg := logger.Config{
		Level:       a.cfg.Logging.Level,
		Development: a.cfg.Logging.Development,
		Encoding:    a.cfg.Logging.Encoding,
		OutputPaths: a.cfg.Logging.OutputPaths,
	}
	if len(logCfg.OutputPaths) == 0 {
		// stdout carries command output
		logCfg.OutputPaths = []string{"stderr"}
	}
	if a.logLevel != "" {
		logCfg.Level = a.logLevel
	}
	if err := logger.Configure(logCfg); err != nil {
		return fmt.Errorf("logging configuration error: %w", err)
	}
	a.log = logger.Get().With(zap.String("component", "partsync-cli"))

	return observability.Initialize(observability.FromConfig(a.cfg.Observability, version))
}

// openStore opens the configured store bounded by checkpoint.timeout.
func (a *app) openStore(ctx context.Context, cfg *config.CheckpointConfig) (checkpoint.Store, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	store, err := checkpoint.NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.log.Debug("checkpoint store opened", zap.String("store", store.Name()))
	return store, nil
}

// manager opens the configured store and codec for stream.
func (a *app) manager(ctx context.Context, stream string) (*checkpoint.Manager, error) {
	codec, err := checkpoint.NewCodec(a.cfg.Compression)
	if err != nil {
		return nil, err
	}
	store, err := a.openStore(ctx, &a.cfg.Checkpoint)
	if err != nil {
		return nil, err
	}
	mgr, err := checkpoint.NewManager(stream, store, codec, checkpoint.WithTimeout(a.cfg.Checkpoint.Timeout))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return mgr, nil
}

// streamArg returns the stream argument or the configured default stream.
func (a *app) streamArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if a.cfg.Stream != "" {
		return a.cfg.Stream, nil
	}
	return "", fmt.Errorf("a stream name is required (argument or stream in the configuration)")
}
