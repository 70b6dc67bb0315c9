// Package integrators provides the explicit one-step schemes the rigid-body
// sub-stepper advances particles with.
//
// Split schemes (symplectic Euler, Verlet, Leapfrog) assume the state is laid
// out as [positions..., velocities...] with the second half the time
// derivative of the first, and that accelerations do not depend on velocity.
// Euler and RK4 accept any [dynamo.System].
package integrators
