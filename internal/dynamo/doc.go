// Package dynamo provides the shared primitives of the coupling core.
//
// The package defines the small vocabulary every other package speaks:
//
//   - [State]: flat vector holding an integrable system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: explicit one-step integrator interface
//   - [ParallelFor]: chunked fan-out used for read-only batch work
//
// and the error taxonomy shared across the registry, the implicit boundary
// field, the rigid-body sub-stepper and the coupling driver.
//
// # Errors
//
// Failures are reported with wrapped sentinels so callers can branch with
// [errors.Is]:
//
//	if errors.Is(err, dynamo.ErrNumericalInstability) {
//	    // coupling step diverged, abort the run
//	}
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT safe for concurrent use.
// Give each goroutine its own instance.
package dynamo
