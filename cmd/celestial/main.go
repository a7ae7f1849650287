package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/compute"
	"github.com/san-kum/celestial/internal/config"
	"github.com/san-kum/celestial/internal/emulator"
	"github.com/san-kum/celestial/internal/experiment"
	"github.com/san-kum/celestial/internal/logging"
	"github.com/san-kum/celestial/internal/mmio"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/scenario"
	"github.com/san-kum/celestial/internal/sim"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	v   = config.NewViper()
	cfg *config.Config
	log *logrus.Logger

	// offload
	strict bool
	// bench
	benchSizes []int
	// sweep
	sweepValues []int
	// run
	noSave bool
	// export
	svgOut bool
	// plot, period
	bodyName string
	axisName string
	pairName string
	// watch
	stepsPerFrame int
	frameRate     int
	theme         string
	forever       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "celestial",
		Short:         "n-body reference simulator and accelerator client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.FromViper(v); err != nil {
				return err
			}
			log, err = logging.New(cfg.Log.Level, os.Stderr)
			return err
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file path (yaml)")
	pf.String("preset", "", "use preset configuration")
	pf.String("data", config.DefaultDataDir, "data directory")
	pf.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	pf.StringP("scenario", "s", config.DefaultScenario, "scenario preset, bench-N or yaml file")
	pf.Int64("seed", 1, "seed for random filler bodies")
	pf.Float32("dt", config.DefaultDt, "timestep in seconds")
	pf.IntP("iterations", "n", config.DefaultIterations, "number of iterations")
	pf.Int("refinements", physics.DefaultRefinements, "extra Newton-Raphson steps in the inverse square root")
	bind(pf, map[string]string{
		"config":      "config",
		"preset":      "preset",
		"data_dir":    "data",
		"log.level":   "log-level",
		"scenario":    "scenario",
		"seed":        "seed",
		"dt":          "dt",
		"iterations":  "iterations",
		"refinements": "refinements",
	})

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the software reference and check orbital drift",
		Args:  cobra.NoArgs,
		RunE:  runReference,
	}
	runCmd.Flags().Int("sample-every", 1, "record a snapshot every n iterations")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the run")
	runCmd.Flags().String("backend", config.DefaultBackend, "reference step backend: serial or cpu")
	runCmd.Flags().Int("workers", 0, "cpu backend workers (0 for one per CPU)")
	bind(runCmd.Flags(), map[string]string{"sample_every": "sample-every", "backend": "backend", "workers": "workers"})

	offloadCmd := &cobra.Command{
		Use:   "offload",
		Short: "run the scenario on an accelerator and cross-validate it",
		Args:  cobra.NoArgs,
		RunE:  runOffload,
	}
	of := offloadCmd.Flags()
	of.String("device", config.DefaultDevice, "accelerator backend (emulator, mmio)")
	of.String("path", mmio.DefaultPath, "memory device for mmio")
	of.Int64("base", 0, "physical base address of the register window")
	of.Uint32("token", 0, "lock token (0 draws one at random)")
	of.Int("max-wait", accel.DefaultMaxWait, "polls before giving up")
	of.Int("keepalive-every", 1, "send a keep-alive every n polls")
	of.Duration("poll-interval", 0, "sleep between polls")
	of.Int("warmup-idles", accel.AutoWarmup, "idle packets before polling (-1 sizes from the body count)")
	of.Bool("stop-on-collision", false, "halt the device when two bodies overlap")
	of.Uint32("steps-per-tick", 1, "emulator steps per accepted packet")
	of.Int("capacity", emulator.DefaultCapacity, "number of BPEs on the device")
	of.BoolVar(&strict, "strict", false, "exit non-zero on busy, timeout or failed checks")
	bind(of, map[string]string{
		"accelerator.device":            "device",
		"accelerator.path":              "path",
		"accelerator.base":              "base",
		"accelerator.token":             "token",
		"accelerator.max_wait":          "max-wait",
		"accelerator.keepalive_every":   "keepalive-every",
		"accelerator.poll_interval":     "poll-interval",
		"accelerator.warmup_idles":      "warmup-idles",
		"accelerator.stop_on_collision": "stop-on-collision",
		"accelerator.steps_per_tick":    "steps-per-tick",
		"accelerator.capacity":          "capacity",
	})

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time software and emulated runs over several body counts",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	benchCmd.Flags().IntSliceVar(&benchSizes, "sizes", []int{2, 4, 6, 8}, "body counts")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run the reference at several refinement counts concurrently",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepCmd.Flags().IntSliceVar(&sweepValues, "values", []int{0, 1, 2, 3}, "refinement counts")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one coordinate or a separation over a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	seriesFlags(plotCmd)

	periodCmd := &cobra.Command{
		Use:   "period [run_id]",
		Short: "estimate the dominant period of a coordinate",
		Args:  cobra.ExactArgs(1),
		RunE:  periodRun,
	}
	seriesFlags(periodCmd)

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json, or its orbits as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().BoolVar(&svgOut, "svg", false, "write the x-y orbits as svg")

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list scenarios and config presets",
		Args:  cobra.NoArgs,
		RunE:  listScenarios,
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "integrate a scenario live in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	watchCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 1, "iterations per redraw")
	watchCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")
	watchCmd.Flags().StringVar(&theme, "theme", "night", "color theme")
	watchCmd.Flags().BoolVar(&forever, "forever", false, "ignore --iterations and run until quit")

	packetCmd := &cobra.Command{
		Use:   "packet",
		Short: "encode or decode accelerator packets",
	}
	packetCmd.AddCommand(
		&cobra.Command{
			Use:   "decode [word]",
			Short: "decode a 64-bit DIN word",
			Args:  cobra.ExactArgs(1),
			RunE:  decodePacket,
		},
		&cobra.Command{
			Use:   "encode [command] [token] [data]",
			Short: "encode a DIN word",
			Args:  cobra.ExactArgs(3),
			RunE:  encodePacket,
		},
	)
	packetCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }

	rootCmd.AddCommand(runCmd, offloadCmd, benchCmd, sweepCmd, listCmd, plotCmd, periodCmd, exportCmd, scenariosCmd, watchCmd, packetCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bind maps viper keys to flags of fs.
func bind(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind %s: %v", key, err))
		}
	}
}

func seriesFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&bodyName, "body", "earth", "body name")
	cmd.Flags().StringVar(&axisName, "axis", "x", "coordinate (x, y, z, vx, vy, vz)")
	cmd.Flags().StringVar(&pairName, "distance-to", "", "plot the distance to this body instead of a coordinate")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func resolveScenario() (scenario.Spec, error) {
	return scenario.Resolve(cfg.Scenario)
}

func simConfig(c *config.Config) sim.Config {
	return sim.Config{
		Dt:          c.Dt,
		Iterations:  c.Iterations,
		Kernel:      c.Kernel(),
		SampleEvery: c.SampleEvery,
	}
}

func experimentConfig(c *config.Config, spec scenario.Spec) experiment.Config {
	ec := experiment.DefaultConfig(spec)
	ec.Seed = c.Seed
	ec.Sim = simConfig(c)
	ec.Tolerances = experiment.Tolerances{
		Tight:          c.Tolerances.Tight,
		Loose:          c.Tolerances.Loose,
		SmallMagnitude: c.Tolerances.SmallMagnitude,
	}
	ec.Poll = c.PollPolicy()
	ec.Masks = c.Accelerator.Masks.Policy()
	ec.StopOnCollision = c.Accelerator.StopOnCollision
	ec.Capacity = c.Accelerator.Capacity
	if b, err := compute.ByName(c.Backend, c.Workers); err == nil {
		ec.Stepper = b
	}
	return ec
}

func sessionToken(c *config.Config) uint32 {
	if c.Accelerator.Token != 0 {
		return c.Accelerator.Token
	}
	return accel.NewToken(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func bodyNames(spec scenario.Spec) []string {
	names := make([]string, len(spec.Bodies))
	for i, b := range spec.Bodies {
		names[i] = b.Name
	}
	return names
}
