// Package repulsion provides the soft collision-avoidance forces added to
// the hydrodynamic force before the rigid-body update.
//
// Both particle-particle and particle-wall laws are penalties of the gap
// between surfaces: zero once the gap reaches the force range, continuous
// there, and growing as the gap shrinks through contact.
//
//   - [Glowinski]: (range - gap)^2 / epsilon, walls handled with a mirror
//     image particle so the wall gap is 2*(distance - radius)
//   - [Linear]: stiffness * (range - gap), walls use distance - radius
//
// Models are selected by name with [New]; "none" disables repulsion.
package repulsion
