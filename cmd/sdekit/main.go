package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	dataDir   string
	verbose   bool
	themeName string

	modelFile  string
	transforms []string
	targs      map[string]string
	flatten    bool

	u0Flags    map[string]string
	paramFlags map[string]string
	atTime     float64
	jacobian   bool

	variable string
	from     float64
	to       float64
	points   int

	outFile string
	columns []string
)

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "sdekit"})

// main registers the commands and runs the root command, exiting with
// status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "sdekit",
		Short:         "symbolic stochastic differential equation toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".sdekit", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "default", "color theme")

	modelFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVarP(&modelFile, "file", "f", "", "model file (yaml) instead of a preset")
		cmd.Flags().StringSliceVarP(&transforms, "transform", "T", nil, "transforms to apply in order")
		cmd.Flags().StringToStringVar(&targs, "arg", nil, "transform arguments (u=..., theta=..., weight=..., initial=...)")
		cmd.Flags().BoolVar(&flatten, "flatten", false, "flatten subsystems first")
	}
	valueFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringToStringVar(&u0Flags, "u0", nil, "initial values (name=value)")
		cmd.Flags().StringToStringVarP(&paramFlags, "param", "p", nil, "parameter values (name=value)")
		cmd.Flags().Float64Var(&atTime, "t", 0, "evaluation time")
	}

	showCmd := &cobra.Command{
		Use:   "show [model]",
		Short: "print a system",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showModel,
	}
	modelFlags(showCmd)

	transformCmd := &cobra.Command{
		Use:   "transform [model]",
		Short: "apply transforms and print or save the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  transformModel,
	}
	modelFlags(transformCmd)
	transformCmd.Flags().StringVarP(&outFile, "out", "o", "", "write the result as a model file")

	evalCmd := &cobra.Command{
		Use:   "eval [model]",
		Short: "compile a system and evaluate it at one point",
		Args:  cobra.MaximumNArgs(1),
		RunE:  evalModel,
	}
	modelFlags(evalCmd)
	valueFlags(evalCmd)
	evalCmd.Flags().BoolVar(&jacobian, "jacobian", false, "also print the drift jacobian")

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "evaluate drift and diffusion over a range of one variable",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepModel,
	}
	modelFlags(sweepCmd)
	valueFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&variable, "var", "", "state or parameter to vary")
	sweepCmd.Flags().Float64Var(&from, "from", 0, "range start")
	sweepCmd.Flags().Float64Var(&to, "to", 1, "range end")
	sweepCmd.Flags().IntVar(&points, "points", 50, "grid points")
	_ = sweepCmd.MarkFlagRequired("var")

	benchCmd := &cobra.Command{
		Use:   "bench [model]",
		Short: "time compilation and evaluation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchModel,
	}
	modelFlags(benchCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored sweeps",
		RunE:  listSweeps,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [sweep_id]",
		Short: "plot a stored sweep",
		Args:  cobra.ExactArgs(1),
		RunE:  plotSweep,
	}
	plotCmd.Flags().StringSliceVarP(&columns, "column", "c", nil, "columns to plot (default all)")

	exportCmd := &cobra.Command{
		Use:   "export [sweep_id]",
		Short: "print sweep metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSweep,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in models and transforms",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(showCmd, transformCmd, evalCmd, sweepCmd, benchCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
