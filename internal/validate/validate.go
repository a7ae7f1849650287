// Package validate compares reference and observed quantities under a
// relative tolerance. The same checks serve drift sanity checks over a run
// and software-versus-accelerator cross-validation.
package validate

import (
	"errors"
	"fmt"
	"math"
)

// Relative tolerances used by the reference scenarios.
const (
	// Tight suits a closed two-body orbit over one period.
	Tight = 0.005
	// Loose allows for perturbation by additional bodies.
	Loose = 0.085
	// SmallMagnitude is for components whose reference is near zero, where
	// relative error is naturally noisy.
	SmallMagnitude = 0.30
)

var ErrToleranceExceeded = errors.New("validate: tolerance exceeded")

type ToleranceError struct {
	Name      string
	Reference float64
	Observed  float64
	Tolerance float64
}

func (e *ToleranceError) Error() string {
	return fmt.Sprintf("validate: %s: observed %g deviates from %g by %.3g%% (limit %.3g%%)",
		e.Name, e.Observed, e.Reference, 100*RelativeError(e.Reference, e.Observed), 100*e.Tolerance)
}

func (e *ToleranceError) Unwrap() error {
	return ErrToleranceExceeded
}

// RelativeError is |observed-reference| / |reference|. A zero reference
// gives zero for an exact match and +Inf otherwise.
func RelativeError(reference, observed float64) float64 {
	diff := math.Abs(observed - reference)
	if reference == 0 {
		if diff == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return diff / math.Abs(reference)
}

// CheckWithinTolerance fails when |observed-reference| > relTol*|reference|.
// The returned error is a *ToleranceError; failing is never fatal here.
func CheckWithinTolerance(reference, observed, relTol float64) error {
	return check("value", reference, observed, relTol)
}

func check(name string, reference, observed, relTol float64) error {
	if math.IsNaN(observed) || math.Abs(observed-reference) > relTol*math.Abs(reference) {
		return &ToleranceError{Name: name, Reference: reference, Observed: observed, Tolerance: relTol}
	}
	return nil
}

// Result is the outcome of one named check.
type Result struct {
	Name      string
	Reference float64
	Observed  float64
	Tolerance float64
	Err       error
}

func (r Result) Passed() bool { return r.Err == nil }

// RelativeError of this check.
func (r Result) RelativeError() float64 { return RelativeError(r.Reference, r.Observed) }

// Report collects checks without stopping at the first failure.
type Report struct {
	Results []Result
}

// Check records a named comparison and returns its error, if any.
func (r *Report) Check(name string, reference, observed, relTol float64) error {
	err := check(name, reference, observed, relTol)
	r.Results = append(r.Results, Result{
		Name:      name,
		Reference: reference,
		Observed:  observed,
		Tolerance: relTol,
		Err:       err,
	})
	return err
}

func (r *Report) Failures() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed() {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r *Report) Passed() bool { return len(r.Failures()) == 0 }

// Err joins every failure, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Merge appends the results of other.
func (r *Report) Merge(other *Report) {
	if other != nil {
		r.Results = append(r.Results, other.Results...)
	}
}
