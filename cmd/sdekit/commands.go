package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/sdekit/internal/codegen"
	"github.com/san-kum/sdekit/internal/config"
	"github.com/san-kum/sdekit/internal/dynamo"
	"github.com/san-kum/sdekit/internal/experiment"
	"github.com/san-kum/sdekit/internal/sde"
	"github.com/san-kum/sdekit/internal/storage"
	"github.com/san-kum/sdekit/internal/viz"
)

// loadSystem resolves the model from --file or a preset name, then
// flattens and transforms it as requested. It returns the model label used
// for storage.
func loadSystem(args []string) (*sde.System, string, error) {
	registry := experiment.NewRegistry()

	var (
		sys   *sde.System
		label string
		err   error
	)
	switch {
	case modelFile != "":
		m, err := config.Load(modelFile)
		if err != nil {
			return nil, "", err
		}
		if sys, err = m.Build(); err != nil {
			return nil, "", fmt.Errorf("%s: %w", modelFile, err)
		}
		label = m.Name
	case len(args) == 1:
		if sys, err = registry.GetModel(args[0]); err != nil {
			return nil, "", err
		}
		label = args[0]
	default:
		return nil, "", fmt.Errorf("give a preset name or --file (presets: %v)", config.ListPresets())
	}
	logger.Debug("loaded model", "name", sys.Name(), "states", len(sys.States()), "tag", sys.Tag())

	if flatten {
		if sys, err = sde.Flatten(sys); err != nil {
			return nil, "", err
		}
		logger.Debug("flattened", "states", len(sys.States()))
	}
	if len(transforms) > 0 {
		if sys, err = registry.Apply(sys, transforms, targs); err != nil {
			return nil, "", err
		}
		logger.Debug("transformed", "transforms", transforms, "states", len(sys.States()))
	}
	return sys, label, nil
}

func parseValues(flags map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(flags))
	for k, v := range flags {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("value for %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

func showModel(cmd *cobra.Command, args []string) error {
	sys, _, err := loadSystem(args)
	if err != nil {
		return err
	}
	fmt.Println(viz.NewStyles(viz.GetTheme(themeName)).RenderSystem(sys))
	return nil
}

func transformModel(cmd *cobra.Command, args []string) error {
	if len(transforms) == 0 {
		return fmt.Errorf("no transforms given (available: %v)", experiment.NewRegistry().ListTransforms())
	}
	sys, _, err := loadSystem(args)
	if err != nil {
		return err
	}
	if outFile == "" {
		fmt.Println(viz.NewStyles(viz.GetTheme(themeName)).RenderSystem(sys))
		return nil
	}
	m, err := config.FromSystem(sys)
	if err != nil {
		return err
	}
	if err := config.Save(outFile, m); err != nil {
		return err
	}
	logger.Info("saved model", "path", outFile)
	return nil
}

func evalModel(cmd *cobra.Command, args []string) error {
	sys, _, err := loadSystem(args)
	if err != nil {
		return err
	}
	u0, err := parseValues(u0Flags)
	if err != nil {
		return err
	}
	p, err := parseValues(paramFlags)
	if err != nil {
		return err
	}

	start := time.Now()
	prob, err := codegen.NewProblem(sde.Complete(sys), u0, p,
		&sde.TimeSpan{Start: atTime, End: atTime}, codegen.Options{Jacobian: jacobian})
	if err != nil {
		return err
	}
	logger.Debug("compiled", "elapsed", time.Since(start), "noise", prob.F.Noise.Kind)

	fn := prob.F
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tVALUE\tDRIFT")
	du := fn.Drift(prob.U0, prob.P, atTime)
	for i, name := range fn.StateNames {
		fmt.Fprintf(w, "%s\t%g\t%g\n", name, prob.U0[i], du[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\ndiffusion (%s, %d channels)\n", fn.Noise.Kind, fn.Noise.Channels)
	fmt.Printf("%v\n", mat.Formatted(fn.Diffusion(prob.U0, prob.P, atTime), mat.Squeeze()))

	if jacobian {
		fmt.Printf("\njacobian\n%v\n", mat.Formatted(fn.Jacobian(prob.U0, prob.P, atTime), mat.Squeeze()))
	}
	for name, obs := range fn.Observed {
		fmt.Printf("\n%s = %g\n", name, obs(prob.U0, prob.P, atTime))
	}
	return nil
}

func sweepModel(cmd *cobra.Command, args []string) error {
	sys, label, err := loadSystem(args)
	if err != nil {
		return err
	}
	u0, err := parseValues(u0Flags)
	if err != nil {
		return err
	}
	p, err := parseValues(paramFlags)
	if err != nil {
		return err
	}

	cfg := experiment.Config{
		Model:      label,
		Transforms: transforms,
		Args:       targs,
		Variable:   variable,
		From:       from,
		To:         to,
		Points:     points,
		Time:       atTime,
		U0:         u0,
		Params:     p,
	}
	start := time.Now()
	res, err := experiment.New(cfg, sys).Run(cmd.Context())
	if err != nil {
		return err
	}
	logger.Debug("sweep done", "points", len(res.Grid), "elapsed", time.Since(start))
	for _, e := range res.Invalid {
		logger.Warn("non-finite values", "point", e.Point, variable, res.Grid[e.Point])
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	id, err := st.Save(cfg, res)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func benchModel(cmd *cobra.Command, args []string) error {
	sys, label, err := loadSystem(args)
	if err != nil {
		return err
	}
	sys = sde.Complete(sys)

	fmt.Printf("benchmarking %s\n\n", label)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tTIME")

	start := time.Now()
	prob, err := codegen.NewProblem(sys, nil, nil, &sde.TimeSpan{}, codegen.Options{
		Jacobian:     true,
		TimeGradient: true,
		Wfact:        true,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "compile\t%v\n", time.Since(start))

	const evals = 100000
	fn := prob.F
	du := make(dynamo.State, len(prob.U0))
	start = time.Now()
	for i := 0; i < evals; i++ {
		fn.DriftInPlace(du, prob.U0, prob.P, 0)
	}
	elapsed := time.Since(start)
	fmt.Fprintf(w, "drift x%d\t%v\t(%.0f/s)\n", evals, elapsed, evals/elapsed.Seconds())

	rows, cols, _ := codegen.DiffusionShape(sys)
	g := make([]float64, rows*cols)
	start = time.Now()
	for i := 0; i < evals; i++ {
		fn.DiffusionInPlace(g, prob.U0, prob.P, 0)
	}
	elapsed = time.Since(start)
	fmt.Fprintf(w, "diffusion x%d\t%v\t(%.0f/s)\n", evals, elapsed, evals/elapsed.Seconds())

	var lu mat.LU
	start = time.Now()
	for i := 0; i < evals/10; i++ {
		fn.WfactInPlace(&lu, prob.U0, prob.P, 0.01, 0)
	}
	fmt.Fprintf(w, "W factorization x%d\t%v\n", evals/10, time.Since(start))

	return w.Flush()
}

func listSweeps(cmd *cobra.Command, args []string) error {
	sweeps, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(sweeps) == 0 {
		fmt.Println("no sweeps found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tVARIABLE\tRANGE\tPOINTS\tINVALID")
	for _, s := range sweeps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t[%g, %g]\t%d\t%d\n",
			s.ID,
			s.Model,
			s.Timestamp.Format("2006-01-02 15:04:05"),
			s.Variable,
			s.From, s.To,
			s.Points,
			len(s.Invalid),
		)
	}
	return w.Flush()
}

func plotSweep(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	grid, values, err := st.LoadValues(args[0])
	if err != nil {
		return err
	}
	if len(grid) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("sweep: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("points: %d\n\n", len(grid))

	want := map[string]bool{}
	for _, c := range columns {
		want[c] = true
	}
	for j, name := range meta.Columns {
		if len(want) > 0 && !want[name] {
			continue
		}
		fmt.Println(viz.PlotColumn(meta.Variable, grid, values, j, name))
		fmt.Println()
	}
	return nil
}

func exportSweep(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.GetPreset(name).Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\ntransforms:")
	for _, name := range experiment.NewRegistry().ListTransforms() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
