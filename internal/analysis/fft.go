package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrShortSeries = errors.New("analysis: series too short for spectral analysis")

// PowerSpectrum returns |X_k| for k in [0, n/2) after removing the mean.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantPeriod estimates the period of the strongest oscillation in a
// series sampled every dt. The peak bin is refined by parabolic
// interpolation over its neighbours.
func DominantPeriod(series []float64, dt float64) (float64, error) {
	if len(series) < 4 {
		return 0, ErrShortSeries
	}

	ps := PowerSpectrum(series)

	peak := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[peak] {
			peak = k
		}
	}
	if ps[peak] == 0 {
		return 0, errors.New("analysis: series has no oscillation")
	}

	k := float64(peak)
	if peak > 1 && peak+1 < len(ps) {
		l, c, r := ps[peak-1], ps[peak], ps[peak+1]
		if denom := l - 2*c + r; denom != 0 {
			shift := 0.5 * (l - r) / denom
			if math.Abs(shift) < 1 {
				k += shift
			}
		}
	}

	return float64(len(series)) * dt / k, nil
}
