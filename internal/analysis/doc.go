// Package analysis characterizes sampled resonant trajectories.
//
//   - [DominantFrequency]: libration or circulation frequency of a sampled signal
//   - [PowerSpectrum]: one-sided amplitude spectrum
//   - [LyapunovExponent]: largest Lyapunov exponent by two-trajectory renormalization
//
// A librating resonant angle shows a single dominant line in its spectrum. A
// positive Lyapunov exponent flags chaotic motion, for example when two
// resonances overlap:
//
//	lambda := analysis.LyapunovExponent(model, integrators.NewRK4(), x0, dt, duration, 1e-8)
//	if lambda > 0 {
//	    // chaotic
//	}
package analysis
