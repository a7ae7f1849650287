package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/analysis"
	"github.com/san-kum/celestial/internal/config"
	"github.com/san-kum/celestial/internal/export"
	"github.com/san-kum/celestial/internal/scenario"
	"github.com/san-kum/celestial/internal/sim"
	"github.com/san-kum/celestial/internal/storage"
	"github.com/san-kum/celestial/internal/viz"
	"github.com/spf13/cobra"
)

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.DataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tBODIES\tSTEPS\tDRIFT\tCHECKS\tOFFLOAD\tTIMESTAMP")
	for _, run := range runs {
		passed := 0
		for _, c := range run.Checks {
			if c.Passed {
				passed++
			}
		}
		offload := "-"
		if run.Offload != nil {
			offload = run.Offload.Device + " " + run.Offload.Outcome
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2e\t%d/%d\t%s\t%s\n",
			run.ID, run.Scenario, len(run.Bodies), run.Iterations, run.EnergyDrift,
			passed, len(run.Checks), offload, run.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// loadSeries extracts the series selected by --body, --axis and
// --distance-to from a stored run, keeping only evenly spaced samples.
func loadSeries(runID string) (*storage.RunMetadata, []float64, string, error) {
	st := storage.New(cfg.DataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, "", err
	}
	samples, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, "", err
	}
	samples = evenSamples(samples, meta.SampleEvery)

	index := func(name string) (int, error) {
		for i, b := range meta.Bodies {
			if b == name {
				return i, nil
			}
		}
		return -1, fmt.Errorf("run %s has no body %q (bodies: %s)", runID, name, strings.Join(meta.Bodies, ", "))
	}

	a, err := index(bodyName)
	if err != nil {
		return nil, nil, "", err
	}

	if pairName != "" {
		b, err := index(pairName)
		if err != nil {
			return nil, nil, "", err
		}
		return meta, analysis.Distances(samples, a, b), bodyName + "-" + pairName + " distance (m)", nil
	}

	axis, err := analysis.ParseAxis(axisName)
	if err != nil {
		return nil, nil, "", err
	}
	return meta, analysis.Component(samples, a, axis), bodyName + "." + axis.String(), nil
}

func evenSamples(samples []sim.Sample, every int) []sim.Sample {
	if every <= 0 {
		return samples
	}
	out := samples[:0:0]
	for _, s := range samples {
		if s.Step%every == 0 {
			out = append(out, s)
		}
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, series, caption, err := loadSeries(args[0])
	if err != nil {
		return err
	}
	if len(series) < 2 {
		return fmt.Errorf("run %s has too few samples to plot", meta.ID)
	}

	fmt.Printf("%s (%s, %d samples)\n\n", meta.ID, meta.Scenario, len(series))
	fmt.Println(viz.Plot(series, caption, 70, 15))
	return nil
}

func periodRun(cmd *cobra.Command, args []string) error {
	meta, series, caption, err := loadSeries(args[0])
	if err != nil {
		return err
	}
	every := meta.SampleEvery
	if every <= 0 {
		every = meta.Iterations
	}

	period, err := analysis.DominantPeriod(series, float64(meta.Dt)*float64(every))
	if err != nil {
		if errors.Is(err, analysis.ErrShortSeries) {
			return fmt.Errorf("run %s: record with --sample-every to estimate a period: %w", meta.ID, err)
		}
		return err
	}

	fmt.Printf("%s: dominant period of %s\n", meta.ID, caption)
	fmt.Printf("  %.4g s\n  %.2f days\n", period, period/86400)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}

	if svgOut {
		spec, err := scenario.Resolve(meta.Scenario)
		var names []string
		if err == nil {
			names = bodyNames(spec)
		}
		return export.Orbits(os.Stdout, samples, names, 800, 800)
	}

	result := &sim.Result{
		Samples:     samples,
		StepsTaken:  meta.Iterations,
		Metrics:     meta.Metrics,
		EnergyDrift: meta.EnergyDrift,
	}
	return storage.ExportJSON(os.Stdout, *meta, result)
}

func listScenarios(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tBODIES")
	for _, name := range scenario.ListPresets() {
		spec, _ := scenario.Preset(name)
		fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(bodyNames(spec), ", "))
	}
	fmt.Fprintln(w, "bench-N\tinner system padded with N-4 random fillers")
	fmt.Fprintln(w, "*.yaml\tscenario file")
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nconfig presets (--preset):")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Printf("  %-10s scenario=%s iterations=%d refinements=%d\n", name, p.Scenario, p.Iterations, p.Refinements)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	spec, err := resolveScenario()
	if err != nil {
		return err
	}
	bodies, err := scenario.Build(spec, cfg.Seed)
	if err != nil {
		return err
	}

	wc := viz.WatchConfig{
		Names:         bodyNames(spec),
		Dt:            cfg.Dt,
		Iterations:    cfg.Iterations,
		Kernel:        cfg.Kernel(),
		StepsPerFrame: stepsPerFrame,
		FPS:           frameRate,
		Theme:         theme,
	}
	if forever {
		wc.Iterations = 0
	}
	if earth, moon := spec.Index("earth"), spec.Index("moon"); earth >= 0 && moon >= 0 {
		wc.Pair = []int{earth, moon}
	}
	return viz.Watch(bodies, wc)
}

func decodePacket(cmd *cobra.Command, args []string) error {
	word, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid packet %q: %w", args[0], err)
	}
	p := accel.Packet(word)
	fmt.Println(p)
	if !p.Command().Valid() {
		return fmt.Errorf("command field %d is not a known command", p.Command())
	}
	return nil
}

func encodePacket(cmd *cobra.Command, args []string) error {
	c, err := accel.ParseCommand(args[0])
	if err != nil {
		return err
	}
	token, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid token %q: %w", args[1], err)
	}
	if token > uint64(accel.TokenMask) {
		return fmt.Errorf("token %#x does not fit in 27 bits", token)
	}
	data, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid data %q: %w", args[2], err)
	}

	p := accel.Encode(c, uint32(token), uint32(data))
	fmt.Printf("%#016x\n%s\n", uint64(p), p)
	return nil
}
