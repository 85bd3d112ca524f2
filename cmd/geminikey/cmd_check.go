package main

import (
	"errors"
	"fmt"

	"github.com/huanlingzx/gemini-key/internal/client"
	"github.com/huanlingzx/gemini-key/internal/config"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	flags := &patternFlags{}
	var batchSize int

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Extract keys from the input and validate them on the server",
		Long: `check extracts keys locally, sends them to the server in batches and
prints the full stored key table when done. A batch that fails stops the run;
the keys already validated stay stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := flags.extract(cmd)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No keys found in input")
				return nil
			}

			c := opts.client()
			stderr := cmd.ErrOrStderr()
			fmt.Fprintf(stderr, "Validating %d keys...\n", len(keys))
			results, runErr := c.ValidateAll(cmd.Context(), keys, batchSize, func(p client.Progress) {
				fmt.Fprintf(stderr, "Batch %d/%d: %d/%d keys (%d%%)\n", p.Batch, p.Batches, p.Processed, p.Total, p.Percent())
			})
			if runErr != nil {
				if !errors.Is(runErr, client.ErrBatchFailed) {
					return runErr
				}
				fmt.Fprintf(stderr, "Stopped after %d keys: %v\n", len(results), runErr)
			}

			records, err := c.FetchAll(cmd.Context(), 0)
			if err != nil {
				return fmt.Errorf("failed to fetch stored keys: %w", err)
			}
			if err := printRecords(cmd.OutOrStdout(), records); err != nil {
				return err
			}
			return runErr
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", config.DefaultBatchSize, "keys per request")
	return cmd
}
