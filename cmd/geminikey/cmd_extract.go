package main

import (
	"fmt"
	"io"
	"os"

	"github.com/huanlingzx/gemini-key/internal/config"
	"github.com/huanlingzx/gemini-key/internal/extractor"

	"github.com/spf13/cobra"
)

// patternFlags binds the key pattern flags shared by extract and check.
type patternFlags struct {
	file      string
	prefix    string
	minLength int
	maxLength int
}

func (p *patternFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.file, "file", "f", "", "read text from file instead of stdin")
	cmd.Flags().StringVar(&p.prefix, "prefix", config.DefaultKeyPrefix, "key prefix")
	cmd.Flags().IntVar(&p.minLength, "min-length", config.DefaultKeyLength, "minimum number of characters after the prefix")
	cmd.Flags().IntVar(&p.maxLength, "max-length", config.DefaultKeyLength, "maximum number of characters after the prefix (0 for no limit)")
}

// extract reads the input text and returns the distinct keys in it.
func (p *patternFlags) extract(cmd *cobra.Command) ([]string, error) {
	ex, err := extractor.New(extractor.Pattern{Prefix: p.prefix, MinLength: p.minLength, MaxLength: p.maxLength})
	if err != nil {
		return nil, err
	}

	var in io.Reader = cmd.InOrStdin()
	if p.file != "" {
		f, err := os.Open(p.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	text, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return ex.Extract(string(text)), nil
}

func newExtractCmd() *cobra.Command {
	flags := &patternFlags{}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the distinct keys found in the input, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := flags.extract(cmd)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Found %d keys\n", len(keys))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
