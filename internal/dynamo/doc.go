// Package dynamo provides the core primitives shared by the Hamiltonian engine,
// the integrators and the sampling runner.
//
// The package defines the fundamental interfaces and types for numerical
// integration of autonomous first-order systems:
//
//   - [State]: vector representing the system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [AdaptiveIntegrator]: integrator with embedded error control
//   - [Hamiltonian]: systems with a scalar energy function
//   - [Metric], [Observer]: hooks fed with the state after each advance
//
// # Example
//
//	m, _ := hamiltonian.NewCartesianAndoyer(2, 0.5, 1.0, math.Pi)
//	_ = m.Integrate(10)
//	x := m.State()
//
// # Thread Safety
//
// None of the types here are safe for concurrent mutation. Each model owns its
// own state exclusively.
package dynamo
