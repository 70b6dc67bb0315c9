// Package coupling sequences one fluid step's worth of rigid-body work:
// collect hydrodynamic loads, add repulsion, sub-cycle every particle under
// the held loads, then publish the new kinematics back to the registry and
// the implicit boundary field.
//
// The driver is single-threaded. It is the only writer of the particle
// registry; the fluid solver reads the registry through the boundary field
// between coupling steps.
package coupling
