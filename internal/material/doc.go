// Package material provides the force and damping models evaluated by
// the integrators.
//
// Every model implements [Model] and reports a [Kind] tag. Callers that
// need to treat variants differently (diagnostic logging, plastic state
// handling) switch on the tag, never on the concrete Go type:
//
//   - [Linear]: small-strain isotropic elasticity
//   - [StVK]: Saint Venant-Kirchhoff
//   - [NeoHookean]: rest-stable Neo-Hookean
//   - [Fiber]: Neo-Hookean with a fiber reinforcement term
//   - [Plastic]: StVK on the elastic strain with kinematic hardening
//   - [Dirichlet], [NoDamping]: damping potentials of the velocity gradient
//
// Energies are densities per unit rest volume. Gradients and Hessians
// are taken with respect to the column-major flattening of the tensor
// argument (see element.Flatten).
package material
