package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/emulator"
	"github.com/san-kum/celestial/internal/experiment"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/scenario"
	"github.com/san-kum/celestial/internal/sim"
	"github.com/san-kum/celestial/internal/storage"
	"github.com/san-kum/celestial/internal/validate"
	"github.com/san-kum/celestial/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runReference(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	spec, err := resolveScenario()
	if err != nil {
		return err
	}
	exp, err := experiment.New(experimentConfig(cfg, spec), log)
	if err != nil {
		return err
	}

	ref, err := exp.Reference(ctx, experiment.NewRegistry().Metrics(spec)...)
	if err != nil {
		return err
	}

	styles := viz.NewStyles(viz.ThemeNight)
	fmt.Printf("scenario %s: %d bodies, %d steps of %gs in %s\n\n",
		spec.Name, len(spec.Bodies), ref.Result.StepsTaken, cfg.Dt, ref.Elapsed)
	fmt.Print(viz.RenderReport(styles, "drift checks", ref.Report))
	fmt.Println()
	printMetrics(ref.Result.Metrics, ref.Result.EnergyDrift)

	if !noSave {
		id, err := saveRun(spec, ref, nil, nil)
		if err != nil {
			return err
		}
		fmt.Printf("\nsaved run: %s\n", id)
	}
	return nil
}

func printMetrics(m map[string]float64, drift float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, name := range sortedNames(m) {
		fmt.Fprintf(w, "%s\t%.6g\n", name, m[name])
	}
	fmt.Fprintf(w, "final energy drift\t%.6g\n", drift)
	w.Flush()
}

// saveRun persists the reference trajectory with every check that ran.
func saveRun(spec scenario.Spec, ref *experiment.ReferenceResult, off *storage.Offload, cross *validate.Report) (string, error) {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return "", err
	}

	checks := storage.ChecksFrom(ref.Report)
	for _, c := range storage.ChecksFrom(cross) {
		c.Name = "cross " + c.Name
		checks = append(checks, c)
	}

	meta := storage.RunMetadata{
		Scenario:    spec.Name,
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Iterations:  cfg.Iterations,
		Refinements: cfg.Refinements,
		SampleEvery: cfg.SampleEvery,
		Bodies:      bodyNames(spec),
		Checks:      checks,
		Offload:     off,
	}
	return st.Save(meta, ref.Result)
}

func runOffload(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	spec, err := resolveScenario()
	if err != nil {
		return err
	}
	if n := len(spec.Bodies); n > cfg.Accelerator.Capacity {
		return fmt.Errorf("%w: %s has %d bodies, device has %d BPEs", experiment.ErrCapacity, spec.Name, n, cfg.Accelerator.Capacity)
	}
	exp, err := experiment.New(experimentConfig(cfg, spec), log)
	if err != nil {
		return err
	}

	ref, err := exp.Reference(ctx, experiment.NewRegistry().Metrics(spec)...)
	if err != nil {
		return err
	}

	dev, err := experiment.NewRegistry().GetDevice(cfg.Accelerator.Device, experiment.DeviceOptions{
		Path: cfg.Accelerator.Path,
		Base: cfg.Accelerator.Base,
		Emulator: emulator.Config{
			Capacity:     cfg.Accelerator.Capacity,
			StepsPerTick: cfg.Accelerator.StepsPerTick,
			Refinements:  cfg.Refinements,
		},
	})
	if err != nil {
		return err
	}
	defer dev.Close()

	sess := accel.NewSession(dev, sessionToken(cfg),
		accel.WithLogger(log),
		accel.WithScaling(cfg.Accelerator.Scaling))

	res, offErr := exp.Offload(ctx, sess, ref.Final)

	styles := viz.NewStyles(viz.ThemeNight)
	fmt.Print(viz.RenderReport(styles, "drift checks", ref.Report))
	fmt.Println()
	if offErr == nil || errors.Is(offErr, accel.ErrTimeout) || errors.Is(offErr, context.Canceled) {
		fmt.Print(viz.RenderWait(styles, res.Wait))
		fmt.Println()
	}
	if offErr == nil {
		fmt.Print(viz.RenderReport(styles, "hardware vs software", res.Report))
		fmt.Printf("\nsoftware %s, %s %s (%.1fx)\n", ref.Elapsed, cfg.Accelerator.Device, res.Elapsed,
			speedup(ref.Elapsed, res.Elapsed))
	}

	summary := &storage.Offload{
		Device:     cfg.Accelerator.Device,
		Outcome:    res.Wait.Outcome.String(),
		Polls:      res.Wait.Polls,
		KeepAlives: res.Wait.KeepAlives,
		Elapsed:    res.Elapsed,
	}
	if offErr != nil {
		summary.Outcome = "failed"
		summary.Error = offErr.Error()
		log.WithError(offErr).Warn("offload did not complete")
	}

	id, err := saveRun(spec, ref, summary, res.Report)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved run: %s\n", id)

	if !strict {
		return nil
	}
	if offErr != nil {
		return offErr
	}
	if err := ref.Report.Err(); err != nil {
		return err
	}
	return res.Report.Err()
}

func speedup(software, device time.Duration) float64 {
	if device <= 0 {
		return 0
	}
	return float64(software) / float64(device)
}

type benchRow struct {
	n        int
	software time.Duration
	device   time.Duration
	polls    int
	failed   int
	err      error
}

// runBench sweeps body counts concurrently, one emulator per count.
func runBench(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	for _, n := range benchSizes {
		if n < 2 || n > emulator.DefaultCapacity {
			return fmt.Errorf("body count %d outside [2, %d]", n, emulator.DefaultCapacity)
		}
	}

	rows := make([]benchRow, len(benchSizes))
	g, ctx := errgroup.WithContext(ctx)
	for i, n := range benchSizes {
		g.Go(func() error {
			row, err := benchOne(ctx, n, log.WithField("bodies", n))
			rows[i] = row
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODIES\tSOFTWARE\tEMULATOR\tPOLLS\tFAILED CHECKS\tSTATUS")
	for _, r := range rows {
		status := "ok"
		if r.err != nil {
			status = r.err.Error()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n", r.n, r.software, r.device, r.polls, r.failed, status)
	}
	return w.Flush()
}

func benchOne(ctx context.Context, n int, l logrus.FieldLogger) (benchRow, error) {
	row := benchRow{n: n}
	spec := scenario.Bench(n)

	exp, err := experiment.New(experimentConfig(cfg, spec), l)
	if err != nil {
		return row, err
	}
	ref, err := exp.Reference(ctx)
	if err != nil {
		return row, err
	}
	row.software = ref.Elapsed

	dev := emulator.New(emulator.Config{
		Capacity:     emulator.DefaultCapacity,
		StepsPerTick: cfg.Accelerator.StepsPerTick,
		Refinements:  cfg.Refinements,
	})
	sess := accel.NewSession(dev, sessionToken(cfg), accel.WithLogger(l), accel.WithScaling(cfg.Accelerator.Scaling))

	res, err := exp.Offload(ctx, sess, ref.Final)
	row.device = res.Elapsed
	row.polls = res.Wait.Polls
	row.failed = len(res.Report.Failures())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return row, err
		}
		row.err = err
	}
	return row, nil
}

// runSweep integrates the scenario once per refinement count and compares
// each final state with the most refined one.
func runSweep(cmd *cobra.Command, args []string) error {
	if len(sweepValues) == 0 {
		return errors.New("no refinement counts given")
	}
	for _, r := range sweepValues {
		if r < 0 {
			return fmt.Errorf("refinements must be non-negative, got %d", r)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	spec, err := resolveScenario()
	if err != nil {
		return err
	}
	ec := experimentConfig(cfg, spec)
	exp, err := experiment.New(ec, log)
	if err != nil {
		return err
	}

	cfgs := make([]sim.Config, len(sweepValues))
	best := 0
	for i, r := range sweepValues {
		cfgs[i] = ec.Sim
		cfgs[i].Kernel.Refinements = r
		cfgs[i].SampleEvery = 0
		if r > sweepValues[best] {
			best = i
		}
	}

	ens := sim.NewEnsemble(func() *sim.Integrator {
		in := sim.New()
		in.SetStepper(ec.Stepper)
		return in
	}, 0)

	start := time.Now()
	results, err := ens.Run(ctx, exp.Initial(), cfgs)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"runs": len(results), "elapsed": time.Since(start)}).Info("sweep finished")

	ref := results[best].Final()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REFINEMENTS\tCHECKS\tENERGY DRIFT\tMAX DEVIATION")
	for i, res := range results {
		final := res.Final()
		report := experiment.DriftChecks(spec, exp.Initial(), final, ec.Tolerances)
		passed := len(report.Results) - len(report.Failures())
		fmt.Fprintf(w, "%d\t%d/%d\t%.3g\t%.3g\n",
			sweepValues[i], passed, len(report.Results), res.EnergyDrift, maxDeviation(ref, final))
	}
	return w.Flush()
}

// maxDeviation is the largest relative position difference of any body.
func maxDeviation(ref, got []physics.Body) float64 {
	var worst float64
	for i := range ref {
		for _, p := range [][2]float32{{ref[i].X, got[i].X}, {ref[i].Y, got[i].Y}, {ref[i].Z, got[i].Z}} {
			if p[0] == 0 {
				continue
			}
			worst = max(worst, validate.RelativeError(float64(p[0]), float64(p[1])))
		}
	}
	return worst
}
