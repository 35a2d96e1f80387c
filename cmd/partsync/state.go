package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/partsync/pkg/checkpoint"
	"github.com/ajitpratap0/partsync/pkg/config"
	"github.com/ajitpratap0/partsync/pkg/json"
	"github.com/ajitpratap0/partsync/pkg/logger"
)

func newStateCommand(a *app) *cobra.Command {
	state := &cobra.Command{
		Use:   "state",
		Short: "Inspect and manage stream checkpoints",
	}

	state.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List streams with a checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context(), &a.cfg.Checkpoint)
			if err != nil {
				return err
			}
			defer store.Close()

			streams, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range streams {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	})

	var compact bool
	show := &cobra.Command{
		Use:   "show [stream]",
		Short: "Print the checkpoint of a stream as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := a.streamArg(args)
			if err != nil {
				return err
			}
			ctx := logger.ContextWithStream(cmd.Context(), stream)
			mgr, err := a.manager(ctx, stream)
			if err != nil {
				return err
			}
			defer mgr.Store().Close()

			st, err := mgr.Load(ctx)
			if err != nil {
				return err
			}
			doc := st.ToMap()
			if compact {
				return json.MarshalToWriter(cmd.OutOrStdout(), doc)
			}
			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	show.Flags().BoolVar(&compact, "compact", false, "Print compact JSON")
	state.AddCommand(show)

	state.AddCommand(&cobra.Command{
		Use:   "put <stream> <file>",
		Short: "Validate a JSON checkpoint file and store it with the configured compression",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			ctx := logger.ContextWithStream(cmd.Context(), args[0])
			mgr, err := a.manager(ctx, args[0])
			if err != nil {
				return err
			}
			defer mgr.Store().Close()

			codec, err := checkpoint.NewCodec(a.cfg.Compression)
			if err != nil {
				return err
			}
			st, err := codec.Decode(data)
			if err != nil {
				return fmt.Errorf("invalid checkpoint file: %w", err)
			}
			if err := mgr.Checkpoint(ctx, staticHolder{state: st}); err != nil {
				return err
			}
			logger.WithContext(ctx).Info("checkpoint stored from file", zap.String("file", args[1]))
			return nil
		},
	})

	var yes bool
	del := &cobra.Command{
		Use:   "delete <stream>",
		Short: "Delete the checkpoint of a stream so the next run starts from scratch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete the checkpoint of %s without --yes", args[0])
			}
			ctx := logger.ContextWithStream(cmd.Context(), args[0])
			mgr, err := a.manager(ctx, args[0])
			if err != nil {
				return err
			}
			defer mgr.Store().Close()
			return mgr.Delete(ctx)
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	state.AddCommand(del)

	var toConfig string
	cp := &cobra.Command{
		Use:   "copy <stream> --to-config <path>",
		Short: "Copy a checkpoint byte for byte into the store of another configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := config.Load(toConfig)
			if err != nil {
				return fmt.Errorf("target configuration error: %w", err)
			}
			from, err := a.openStore(cmd.Context(), &a.cfg.Checkpoint)
			if err != nil {
				return err
			}
			defer from.Close()
			to, err := a.openStore(cmd.Context(), &target.Checkpoint)
			if err != nil {
				return err
			}
			defer to.Close()

			if err := checkpoint.Copy(cmd.Context(), from, to, args[0]); err != nil {
				return err
			}
			a.log.Debug("copy target", zap.String("target", toConfig))
			return nil
		},
	}
	cp.Flags().StringVar(&toConfig, "to-config", "", "Configuration whose checkpoint store receives the copy")
	_ = cp.MarkFlagRequired("to-config")
	state.AddCommand(cp)

	return state
}
