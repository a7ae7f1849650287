// Package analysis extracts and inspects trajectory series.
//
//   - [Component]: one coordinate of one body across recorded samples
//   - [PowerSpectrum]: magnitude spectrum of a real series
//   - [DominantPeriod]: orbital period estimate from the strongest frequency
//
// # Period Estimation
//
// A body on a closed orbit oscillates on each axis with the orbital period:
//
//	xs := analysis.Component(result.Samples, earth, analysis.X)
//	period, err := analysis.DominantPeriod(xs, dt*float64(sampleEvery))
package analysis
