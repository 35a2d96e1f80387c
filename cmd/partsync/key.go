package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/partsync/pkg/incremental"
	"github.com/ajitpratap0/partsync/pkg/json"
)

func newKeyCommand() *cobra.Command {
	key := &cobra.Command{
		Use:   "key",
		Short: "Convert partitions to and from canonical partition keys",
	}

	key.AddCommand(&cobra.Command{
		Use:   "encode <partition-json>",
		Short: "Print the canonical key of a partition",
		Example: `  partsync key encode '{"region":"eu","account_id":42}'
  {"account_id":42,"region":"eu"}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obj, err := json.DecodeObject([]byte(strings.TrimSpace(args[0])))
			if err != nil {
				return fmt.Errorf("partition must be a JSON object: %w", err)
			}
			k, err := incremental.ToKey(incremental.Partition(obj))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), k)
			return nil
		},
	})

	key.AddCommand(&cobra.Command{
		Use:   "decode <key>",
		Short: "Print the partition of a canonical key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := incremental.FromKey(args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	})
	return key
}
