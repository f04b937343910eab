// Package fem provides the core primitives shared by the per-element
// elastodynamics evaluator.
//
// The package defines the small vocabulary every other package speaks:
//
//   - [History]: ordered nodal displacement vectors (12 dof each)
//   - [Level]: how much of objective/gradient/Hessian a caller needs
//   - [EvalError]: an error annotated with the element being evaluated
//   - [ValidationError]: a failed finite-difference self-check
//
// # Layout
//
// An element has four nodes with three displacement components each.
// Nodal vectors are ordered node by node, so dof 3*n+i is component i of
// node n. Deformation gradients are flattened column-major into
// 9-vectors: entry 3*c+r is F[r][c].
//
// # Thread Safety
//
// Everything in this package is a value type or immutable after
// construction and can be shared freely between goroutines.
package fem
