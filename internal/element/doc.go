// Package element holds the per-tetrahedron data consumed by the
// integrators: rest geometry, the shape-gradient operator, material
// parameters and the optional plastic state cell.
//
// [Attributes] are built once at the rest configuration and treated as
// read-only afterwards. The only mutable piece is the [PlasticCell],
// which is written by a single committer between time steps.
package element
