package main

import (
	"fmt"
	"os"

	"github.com/huanlingzx/gemini-key/internal/client"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	server   string
	password string
}

func (o *globalOptions) client() *client.Client {
	var opts []client.Option
	if o.password != "" {
		opts = append(opts, client.WithBasicAuth("admin", o.password))
	}
	return client.New(o.server, opts...)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "geminikey",
		Short: "Extract, validate and manage Gemini API keys",
		Long: `geminikey finds Gemini API keys in pasted text and validates them
against a geminikeyd server, which checks each key remotely and stores the result.

Examples:
  # Find keys in a file without contacting the server
  geminikey extract --file dump.txt

  # Validate every key found on stdin, 10 per request
  pbpaste | geminikey check

  # Inspect and maintain the stored results
  geminikey list
  geminikey export --output valid.txt
  geminikey prune`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultServer := os.Getenv("GEMINIKEY_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVarP(&opts.server, "server", "s", defaultServer, "geminikeyd base URL")
	rootCmd.PersistentFlags().StringVar(&opts.password, "password", os.Getenv("GEMINIKEY_ADMIN_PASSWORD"), "admin password for the server API")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newCheckCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newPruneCmd(opts))
	rootCmd.AddCommand(newExportCmd(opts))
	return rootCmd
}
