package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/huanlingzx/gemini-key/internal/model"

	"github.com/spf13/cobra"
)

func printRecords(w io.Writer, records []model.KeyRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKEY\tSTATUS\tLAST VALIDATED\tMESSAGE")
	counts := map[model.Status]int{}
	for _, r := range records {
		counts[r.Status]++
		msg := ""
		if r.ErrorMessage != nil {
			msg = *r.ErrorMessage
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.KeyString, r.Status, r.LastValidatedAt.Format(time.DateTime), msg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d keys: %d valid, %d invalid, %d error\n",
		len(records), counts[model.StatusValid], counts[model.StatusInvalid], counts[model.StatusError])
	return err
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored keys, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := opts.client().FetchAll(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of keys to list (0 for all)")
	return cmd
}

func newPruneCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete stored keys with status invalid or error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().ClearInvalid(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the valid keys to a file, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := opts.client().ExportValid(cmd.Context())
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No valid keys to export")
				return nil
			}
			content := strings.Join(keys, "\n") + "\n"
			if output == "-" {
				_, err := io.WriteString(cmd.OutOrStdout(), content)
				return err
			}
			if output == "" {
				output = fmt.Sprintf("gemini_valid_keys_%s.txt", time.Now().Format(time.DateOnly))
			}
			if err := os.WriteFile(output, []byte(content), 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d keys to %s\n", len(keys), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default gemini_valid_keys_<date>.txt)`)
	return cmd
}
