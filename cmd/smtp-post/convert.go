package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shineum/smtp-post/internal/convert"
	"github.com/shineum/smtp-post/internal/parser"
)

func newConvertCmd(configPath *string) *cobra.Command {
	var defaultCharset string

	cmd := &cobra.Command{
		Use:   "convert <file|->",
		Short: "Parse a message and print it as it would be relayed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if defaultCharset == "" {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
				defaultCharset = cfg.MIME.DefaultCharset
			}
			return runConvert(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], defaultCharset)
		},
	}
	cmd.Flags().StringVar(&defaultCharset, "default-charset", "", "charset assumed for text parts that declare none (defaults to the configured value)")
	return cmd
}

func runConvert(stdin io.Reader, stdout io.Writer, path, defaultCharset string) error {
	in := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	p, err := parser.ParseReader(in)
	if err != nil {
		return fmt.Errorf("cannot parse message: %w", err)
	}

	if _, err := convert.New(defaultCharset).Message(p).WriteTo(stdout); err != nil {
		return fmt.Errorf("cannot write message: %w", err)
	}
	return nil
}
