// Package kkt builds the smoothed primal-dual system of a complementarity
// problem.
//
// Every pair G1_i ⟂ G2_i is reformulated with a slack s_i defined by
// s = -diag(G1)·G2 + sigma. The three complementarities (G1, mu_G1),
// (G2, mu_G2) and (s, mu_s) are replaced by the Fischer–Burmeister equation
//
//	φ(a, b, τ) = a + b - sqrt(a² + b² + 2τ)
//
// whose zero set tends to min(a, b) = 0 as τ → 0. The resulting square
// system is evaluated by [System.Residual] and [System.ResidualJacobian].
package kkt
