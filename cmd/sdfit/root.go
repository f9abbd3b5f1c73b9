package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sdfit/internal/config"
	"sdfit/internal/grid"
	"sdfit/internal/journal"
	"sdfit/internal/pipeline"
)

type rootOptions struct {
	configFile    string
	journalDSN    string
	journalDriver string
	verbose       bool
	quiet         bool
}

func newRootCmd() *cobra.Command {
	var opts rootOptions
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "sdfit [flags] [--] <source> <target>",
		Short: "Fit a 3D LUT to paired scattered colour measurements",
		Long: `sdfit fits a smooth 3D -> 3D mapping from the rows of <source> to the
matching rows of <target> and writes it as a .cube or .spi3d LUT.

Both datasets are delimiter separated text with three numbers per row.

The rbf method solves a dense system over all rows for every layer. Its
time grows with the cube of the row count and its memory with the square,
so thin out datasets beyond a few thousand rows.

A dataset named like a subcommand (check, history) must follow "--":

  sdfit -o out.cube -- check target.txt`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.verbose, opts.quiet)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(cmd, args, &opts)
		},
	}

	f := cmd.Flags()
	f.StringP("method", "m", defaults.Method.String(), "fitting method [mlp | rbf]")
	f.StringP("output", "o", "", "output LUT (default output.cube or output.spi3d)")
	f.StringP("delimiter", "d", defaults.Delimiter.String(), "dataset delimiter [' ' | ',' | ';' | tab]")
	f.IntP("precision", "p", defaults.Precision, "digits after the decimal point in the LUT")
	f.IntP("cube-size", "c", defaults.CubeSize, fmt.Sprintf("LUT cube side, %d to %d", grid.MinSize, grid.MaxSize))
	f.StringP("format", "f", defaults.Format.String(), "LUT format [cube | spi]")
	f.Float64P("rbf-size", "s", defaults.RBFSize, "RBF base radius (fit time grows with rows³)")
	f.IntP("rbf-layers", "l", defaults.RBFLayers, "RBF layers")
	f.Float64P("rbf-smoothing", "z", defaults.RBFSmoothing, "RBF smoothing")
	f.IntP("mlp-layers", "L", defaults.MLPLayers, "MLP hidden layer width")
	f.IntP("mlp-restarts", "r", defaults.MLPRestarts, "MLP random restarts")
	f.Int64("seed", defaults.Seed, "MLP random seed")
	f.IntP("workers", "j", defaults.Workers, "worker goroutines")
	f.StringVar(&opts.configFile, "config", "", "YAML file with default parameters")

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.journalDSN, "journal", "", "record runs in this database")
	pf.StringVar(&opts.journalDriver, "journal-driver", journal.SQLite, "journal driver [sqlite | mysql]")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "only log warnings and errors")

	cmd.AddCommand(newCheckCmd(), newHistoryCmd(&opts))
	return cmd
}

// buildConfig layers the config file and then the flags that were given on
// top of the defaults.
func buildConfig(flags *pflag.FlagSet, configFile string, args []string) (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = cfg.LoadFile(configFile); err != nil {
			return cfg, err
		}
	}

	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil || !config.IsOption(f.Name) {
			return
		}
		cfg, err = cfg.With(f.Name, f.Value.String())
	})
	if err != nil {
		return cfg, err
	}
	cfg.SourcePath, cfg.TargetPath = args[0], args[1]
	return cfg, cfg.Validate()
}

func runFit(cmd *cobra.Command, args []string, opts *rootOptions) error {
	cfg, err := buildConfig(cmd.Flags(), opts.configFile, args)
	if err != nil {
		return err
	}

	var rec pipeline.Recorder
	if opts.journalDSN != "" {
		j, err := journal.Open(opts.journalDriver, opts.journalDSN)
		if err != nil {
			return err
		}
		defer j.Close()
		rec = j
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := pipeline.Run(ctx, cfg, rec)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.Fit.HasMaxError {
		fmt.Fprintf(out, "Built LUT. RMS error: %f, Max error: %f\n", res.Fit.RMSError, res.Fit.MaxError)
	} else {
		fmt.Fprintf(out, "Built LUT. RMS error: %f\n", res.Fit.RMSError)
	}
	fmt.Fprintln(out, res.Quality)
	fmt.Fprintf(out, "Created LUT '%s'.\n", res.Output)
	return nil
}
