// Package mpcc provides the problem primitives shared by the complementarity
// solver stack.
//
// A problem is described numerically rather than symbolically:
//
//   - [Block]: a vector-valued function of the primal vector w with an
//     optional analytic Jacobian (finite differences otherwise)
//   - [Problem]: primal dimension, initial guess, general constraints with
//     bounds and the complementarity sides G1 ⟂ G2
//   - [Params]: the parameter layout handed to every evaluation
//     (relaxation sigma, barrier tau, initial state, lambda00, globals)
//
// Equality constraints are the constraint rows whose lower and upper bounds
// coincide. A complementarity pair i reads G1_i(w) ≥ 0 ⟂ G2_i(w) ≥ 0, where
// G1 may be given as a sum of several blocks.
//
// # Example
//
//	prob := &mpcc.Problem{
//		NW: 1,
//		W0: []float64{1},
//		G1: []mpcc.Block{mpcc.Identity(1)},
//		G2: mpcc.Identity(1),
//	}
//	if err := prob.Validate(); err != nil {
//		return err
//	}
package mpcc
