package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/emulator"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/scenario"
	"github.com/san-kum/celestial/internal/sim"
	"github.com/san-kum/celestial/internal/validate"
	"github.com/sirupsen/logrus"
)

var (
	// ErrCapacity is returned before locking when the scenario has more
	// bodies than the device has BPEs.
	ErrCapacity = errors.New("experiment: scenario exceeds device capacity")
	// ErrNotRun is returned when the device reported completion without
	// advancing any body.
	ErrNotRun = errors.New("experiment: device completed without running")
)

type Tolerances struct {
	Tight          float64
	Loose          float64
	SmallMagnitude float64
}

func DefaultTolerances() Tolerances {
	return Tolerances{
		Tight:          validate.Tight,
		Loose:          validate.Loose,
		SmallMagnitude: validate.SmallMagnitude,
	}
}

type Config struct {
	Spec            scenario.Spec
	Seed            int64
	Sim             sim.Config
	Tolerances      Tolerances
	Poll            accel.PollPolicy
	Masks           accel.MaskPolicy
	StopOnCollision bool
	// Capacity is the device's BPE count; zero skips the check.
	Capacity int
	// Stepper replaces the serial reference step when set.
	Stepper         sim.Stepper
}

func DefaultConfig(spec scenario.Spec) Config {
	return Config{
		Spec:       spec,
		Seed:       1,
		Sim:        sim.DefaultConfig(),
		Tolerances: DefaultTolerances(),
		Poll:       accel.DefaultPollPolicy(),
		Masks:      accel.DefaultMaskPolicy(),
	}
}

// Experiment runs one scenario in software and on an accelerator from the
// same initial state.
type Experiment struct {
	cfg     Config
	log     logrus.FieldLogger
	initial []physics.Body
}

func New(cfg Config, log logrus.FieldLogger) (*Experiment, error) {
	bodies, err := scenario.Build(cfg.Spec, cfg.Seed)
	if err != nil {
		return nil, err
	}
	return &Experiment{
		cfg:     cfg,
		log:     log.WithField("scenario", cfg.Spec.Name),
		initial: bodies,
	}, nil
}

func (e *Experiment) Config() Config { return e.cfg }

// Initial returns a copy of the initial state in SI units.
func (e *Experiment) Initial() []physics.Body {
	return physics.Clone(e.initial)
}

type ReferenceResult struct {
	Result  *sim.Result
	Final   []physics.Body
	Report  *validate.Report
	Elapsed time.Duration
}

// Reference integrates the scenario in software and checks that the named
// bodies stayed near their start over the run.
func (e *Experiment) Reference(ctx context.Context, metrics ...sim.Metric) (*ReferenceResult, error) {
	in := sim.New()
	in.SetStepper(e.cfg.Stepper)
	for _, m := range metrics {
		in.AddMetric(m)
	}

	bodies := e.Initial()
	start := time.Now()
	result, err := in.Run(ctx, bodies, e.cfg.Sim)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("reference run: %w", err)
	}

	report := DriftChecks(e.cfg.Spec, e.initial, bodies, e.cfg.Tolerances)
	e.log.WithFields(logrus.Fields{
		"steps":   result.StepsTaken,
		"elapsed": elapsed,
		"checks":  len(report.Results),
		"failed":  len(report.Failures()),
	}).Info("reference run finished")

	return &ReferenceResult{
		Result:  result,
		Final:   bodies,
		Report:  report,
		Elapsed: elapsed,
	}, nil
}

// DriftChecks compares final against initial positions of the named bodies.
// A lone Earth-Sun pair is held to the tight tolerance on each Earth axis.
// With more bodies, Earth axes and the Earth-Moon distance use the loose
// tolerance and the Moon's small z component the small-magnitude one.
// Random fillers are never checked.
func DriftChecks(spec scenario.Spec, initial, final []physics.Body, tol Tolerances) *validate.Report {
	report := &validate.Report{}
	earth := spec.Index("earth")
	if earth < 0 {
		return report
	}

	axisTol := tol.Loose
	if len(spec.Bodies) == 2 {
		axisTol = tol.Tight
	}
	checkAxes(report, "earth", initial[earth], final[earth], [3]float64{axisTol, axisTol, axisTol})

	moon := spec.Index("moon")
	if moon < 0 {
		return report
	}
	report.Check("earth-moon distance",
		physics.Distance(initial[earth], initial[moon]),
		physics.Distance(final[earth], final[moon]),
		tol.Loose)
	checkAxes(report, "moon", initial[moon], final[moon], [3]float64{tol.Loose, tol.Loose, tol.SmallMagnitude})

	return report
}

func checkAxes(r *validate.Report, name string, ref, obs physics.Body, tol [3]float64) {
	r.Check(name+".x", float64(ref.X), float64(obs.X), tol[0])
	r.Check(name+".y", float64(ref.Y), float64(obs.Y), tol[1])
	r.Check(name+".z", float64(ref.Z), float64(obs.Z), tol[2])
}

// CrossValidate compares accelerator readback against the software result.
// Both sides are compared in device units.
func CrossValidate(spec scenario.Spec, sc accel.Scaling, software, device []physics.Body, tol Tolerances) *validate.Report {
	report := &validate.Report{}

	scaled := make([]physics.Body, len(software))
	for i, b := range software {
		scaled[i] = sc.Body(b)
	}

	earth, moon := spec.Index("earth"), spec.Index("moon")
	if earth >= 0 && earth < len(device) {
		checkAxes(report, "earth", scaled[earth], device[earth], [3]float64{tol.Loose, tol.Loose, tol.Loose})
	}
	if moon >= 0 && moon < len(device) {
		checkAxes(report, "moon", scaled[moon], device[moon], [3]float64{tol.Loose, tol.Loose, tol.SmallMagnitude})
		if earth >= 0 {
			report.Check("earth-moon distance",
				physics.Distance(scaled[earth], scaled[moon]),
				physics.Distance(device[earth], device[moon]),
				tol.Loose)
		}
	}
	return report
}

type OffloadResult struct {
	// Start and Final are read back from the device, in device units.
	Start       []physics.Body
	Final       []physics.Body
	Wait        accel.WaitResult
	CollisionID uint32
	Report      *validate.Report
	Elapsed     time.Duration
}

// Offload drives sess through the scenario: lock, configure, upload, read
// the start state, run, wait, read the final state and cross-validate
// against reference when it is non-nil. The session is always released
// before returning; a run that timed out is stopped first.
//
// ErrDeviceBusy and ErrTimeout come back as errors together with whatever
// was gathered; the caller decides whether they are fatal.
func (e *Experiment) Offload(ctx context.Context, sess *accel.Session, reference []physics.Body) (res *OffloadResult, err error) {
	res = &OffloadResult{Report: &validate.Report{}}
	log := e.log

	n := len(e.initial)
	if e.cfg.Capacity > 0 && n > e.cfg.Capacity {
		return res, fmt.Errorf("%w: %d bodies, %d BPEs", ErrCapacity, n, e.cfg.Capacity)
	}
	if uint64(e.cfg.Sim.Iterations) > math.MaxUint32 {
		return res, fmt.Errorf("iterations %d do not fit in a 32-bit payload", e.cfg.Sim.Iterations)
	}

	if err := sess.Lock(); err != nil {
		return res, err
	}
	defer func() {
		if sess.State() == accel.Running {
			if serr := sess.Stop(); serr != nil {
				log.WithError(serr).Warn("stop failed")
			}
		}
		if uerr := sess.Unlock(); uerr != nil {
			log.WithError(uerr).Warn("unlock failed")
			if err == nil {
				err = uerr
			}
		}
	}()

	if err := e.configure(sess, n); err != nil {
		return res, err
	}

	if res.Start, err = readAll(sess, n, e.cfg.Masks); err != nil {
		return res, err
	}

	start := time.Now()
	if err := sess.Start(); err != nil {
		return res, err
	}
	res.Wait, err = sess.Wait(ctx, e.cfg.Poll)
	res.Elapsed = time.Since(start)
	if err != nil {
		log.WithError(err).WithField("polls", res.Wait.Polls).Warn("accelerator run did not complete")
		return res, err
	}

	if res.Final, err = readAll(sess, n, e.cfg.Masks); err != nil {
		return res, err
	}
	if e.cfg.StopOnCollision {
		if res.CollisionID, err = sess.ReadCollisionID(); err != nil {
			return res, err
		}
	}
	if e.stalled(res) {
		log.WithField("bodies", n).Warn("device reported completion but no body moved")
		return res, ErrNotRun
	}

	if reference != nil {
		res.Report = CrossValidate(e.cfg.Spec, sess.Scaling(), reference, res.Final, e.cfg.Tolerances)
	}

	log.WithFields(logrus.Fields{
		"polls":      res.Wait.Polls,
		"keepalives": res.Wait.KeepAlives,
		"elapsed":    res.Elapsed,
		"failed":     len(res.Report.Failures()),
	}).Info("offload finished")
	return res, nil
}

// stalled reports a run that completed on the first poll with every body
// where it started. A collision halting the run at once is not a stall.
func (e *Experiment) stalled(res *OffloadResult) bool {
	if e.cfg.Sim.Iterations == 0 || res.Wait.Polls > 0 {
		return false
	}
	if e.cfg.StopOnCollision && res.CollisionID != emulator.NoCollision {
		return false
	}
	return slices.Equal(res.Start, res.Final)
}

func (e *Experiment) configure(sess *accel.Session, n int) error {
	if err := sess.SetTimestep(e.cfg.Sim.Dt); err != nil {
		return err
	}
	if err := sess.SetMaxIterations(uint32(e.cfg.Sim.Iterations)); err != nil {
		return err
	}
	if err := sess.SetActiveBodies(n); err != nil {
		return err
	}
	if err := sess.SetStopOnCollision(e.cfg.StopOnCollision); err != nil {
		return err
	}
	for i, b := range e.initial {
		if err := sess.UploadBody(i, b); err != nil {
			return fmt.Errorf("upload body %d: %w", i, err)
		}
	}
	return nil
}

func readAll(sess *accel.Session, n int, masks accel.MaskPolicy) ([]physics.Body, error) {
	out := make([]physics.Body, n)
	for i := range out {
		b, err := sess.ReadBody(i, masks)
		if err != nil {
			return nil, fmt.Errorf("read body %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}
