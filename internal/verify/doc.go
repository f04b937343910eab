// Package verify cross-checks analytic model derivatives against
// one-sided finite differences.
//
// [Verifier.Check] runs a single comparison. [Wrap] turns a Verifier into
// a decorator around any material.Model: every Hessian request first
// checks the model on a sampled tensor and aborts with a
// *fem.ValidationError on mismatch. Enabling the decorator is a
// configuration decision; the integrators never know it is there.
//
// The check is a developer self-test. It is deterministic for a fixed
// seed and is not meant to run under contention.
package verify
