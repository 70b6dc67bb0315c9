// Package rigid advances spherical particles through sub-steps of the
// rigid-body equations under a force and moment held fixed for the whole
// fluid step.
package rigid
