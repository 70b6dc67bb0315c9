// Package particle owns the per-particle kinematic and geometric state of
// the coupled rigid bodies.
//
// The [Registry] keeps index-aligned arrays: particle i's centre, radius,
// velocities, accumulators and snapshot all describe the same physical
// body. Mass and inertia are derived once from radius and density.
//
// Lifecycle within one coupling step:
//
//	reg.ResetAccumulators()        // exactly once
//	reg.AddForce(i, f, m)          // hydrodynamic + repulsive contributions
//	reg.Snapshot()                 // previous* <- current
//	reg.Set(i, k)                  // publish new kinematics
//
// A [View] is an immutable copy of the published state that concurrent
// readers (mesh partitions) can share for the duration of one fluid step.
package particle
