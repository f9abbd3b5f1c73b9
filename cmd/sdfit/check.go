package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sdfit/internal/config"
	"sdfit/internal/pipeline"
)

func newCheckCmd() *cobra.Command {
	var format, delimiter string
	cmd := &cobra.Command{
		Use:   "check <lut> <source> <target>",
		Short: "Measure an existing LUT against a pair of datasets",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := config.FormatFromPath(args[0])
			if cmd.Flags().Changed("format") {
				var err error
				if f, err = config.ParseFormat(format); err != nil {
					return err
				}
			} else if !ok {
				return fmt.Errorf("cannot tell the format of %q from its extension, use --format", args[0])
			}
			d, err := config.ParseDelimiter(delimiter)
			if err != nil {
				return err
			}

			s, err := pipeline.Check(args[0], f, args[1], args[2], d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Checked LUT '%s' on %d samples.\n%s\n", args[0], s.Samples, s)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "LUT format [cube | spi] (default from extension)")
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", " ", "dataset delimiter [' ' | ',' | ';' | tab]")
	return cmd
}
