// Package analysis provides diagnostics for finite-difference solutions.
//
//   - [OscillationIndex]: share of high-frequency power in a gamma profile,
//     the usual symptom of Crank-Nicolson ringing at a payoff kink
//   - [PowerSpectrum]: one-sided spectrum of a real sequence
//   - [ConvergenceOrder] and [ObservedOrder]: empirical orders of
//     convergence under refinement
//   - [Sweep]: solve once per parameter value, concurrently
//
// # Ringing
//
// A smooth gamma has almost all of its power in the lowest frequencies:
//
//	idx, _ := analysis.OscillationIndex(res)
//	if idx > 0.2 {
//	    // damp with implicit start-up steps or Richardson
//	}
package analysis
