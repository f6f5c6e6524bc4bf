package fesd

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fesdsim/internal/mpcc"
)

// layout indexes the primal vector [x_k | theta_k | lambda_k | mu_k] per
// finite element k and the constraint rows [dynamics | indicators | sum].
type layout struct {
	nx, nf, n int
}

func (l layout) elem() int        { return l.nx + 2*l.nf + 1 }
func (l layout) rows() int        { return l.nx + l.nf + 1 }
func (l layout) nw() int          { return l.n * l.elem() }
func (l layout) x(k int) int      { return k * l.elem() }
func (l layout) theta(k int) int  { return l.x(k) + l.nx }
func (l layout) lambda(k int) int { return l.theta(k) + l.nf }
func (l layout) mu(k int) int     { return l.lambda(k) + l.nf }
func (l layout) xOf(w []float64, k int) []float64 {
	return w[l.x(k) : l.x(k)+l.nx]
}
func (l layout) thetaOf(w []float64, k int) []float64 {
	return w[l.theta(k) : l.theta(k)+l.nf]
}
func (l layout) lambdaOf(w []float64, k int) []float64 {
	return w[l.lambda(k) : l.lambda(k)+l.nf]
}

func (l layout) indices(start func(int) int, width int) []int {
	idx := make([]int, 0, l.n*width)
	for k := 0; k < l.n; k++ {
		for i := 0; i < width; i++ {
			idx = append(idx, start(k)+i)
		}
	}
	return idx
}

// discretize builds the implicit Euler Stewart complementarity problem over
// one integration interval of length h·n.
func discretize(m *Model, opts Options) *mpcc.Problem {
	l := layout{nx: m.NX, nf: m.NF(), n: opts.NFiniteElements}
	h := opts.TerminalTime / float64(l.n)
	nr := l.rows()

	constraints := mpcc.Block{
		N: l.n * nr,
		Eval: func(w []float64, p *mpcc.Params, y []float64) {
			fi := make([]float64, l.nx)
			prev := p.X0
			for k := 0; k < l.n; k++ {
				x := l.xOf(w, k)
				theta := l.thetaOf(w, k)
				lambda := l.lambdaOf(w, k)
				mu := w[l.mu(k)]
				row := y[k*nr : (k+1)*nr]

				for j := 0; j < l.nx; j++ {
					row[j] = x[j] - prev[j]
				}
				for i, f := range m.F {
					f(x, p.Global, fi)
					for j := 0; j < l.nx; j++ {
						row[j] -= h * theta[i] * fi[j]
					}
				}

				m.G(x, p.Global, row[l.nx:l.nx+l.nf])
				sum := 0.0
				for i := 0; i < l.nf; i++ {
					row[l.nx+i] -= lambda[i] + mu
					sum += theta[i]
				}
				row[l.nx+l.nf] = sum - 1
				prev = x
			}
		},
		Jac: func(w []float64, p *mpcc.Params, jac *mat.Dense) {
			jac.Zero()
			fi := make([]float64, l.nx)
			df := mat.NewDense(l.nx, l.nx, nil)
			dg := mat.NewDense(l.nf, l.nx, nil)
			for k := 0; k < l.n; k++ {
				x := l.xOf(w, k)
				theta := l.thetaOf(w, k)
				r0 := k * nr

				for j := 0; j < l.nx; j++ {
					jac.Set(r0+j, l.x(k)+j, 1)
					if k > 0 {
						jac.Set(r0+j, l.x(k-1)+j, -1)
					}
				}
				for i, f := range m.F {
					f(x, p.Global, fi)
					m.modeJac(i, x, p.Global, df)
					for j := 0; j < l.nx; j++ {
						jac.Set(r0+j, l.theta(k)+i, -h*fi[j])
						for c := 0; c < l.nx; c++ {
							jac.Set(r0+j, l.x(k)+c, jac.At(r0+j, l.x(k)+c)-h*theta[i]*df.At(j, c))
						}
					}
				}

				m.indicatorJac(x, p.Global, dg)
				for i := 0; i < l.nf; i++ {
					r := r0 + l.nx + i
					for c := 0; c < l.nx; c++ {
						jac.Set(r, l.x(k)+c, dg.At(i, c))
					}
					jac.Set(r, l.lambda(k)+i, -1)
					jac.Set(r, l.mu(k), -1)
					jac.Set(r0+l.nx+l.nf, l.theta(k)+i, 1)
				}
			}
		},
	}

	zeros := make([]float64, constraints.N)
	g1 := []mpcc.Block{mpcc.Select(l.nw(), l.indices(l.lambda, l.nf))}
	if opts.CrossComplementarity {
		g1 = append(g1, previousLambda(l))
	}

	return &mpcc.Problem{
		Name:        m.Name,
		Kind:        mpcc.Simulation,
		NW:          l.nw(),
		W0:          make([]float64, l.nw()),
		Constraints: constraints,
		Lower:       zeros,
		Upper:       zeros,
		G1:          g1,
		G2:          mpcc.Select(l.nw(), l.indices(l.theta, l.nf)),
	}
}

// previousLambda is the block lambda_{k-1}, with the Lambda00 parameter
// standing in before the first element.
func previousLambda(l layout) mpcc.Block {
	return mpcc.Block{
		N: l.n * l.nf,
		Eval: func(w []float64, p *mpcc.Params, y []float64) {
			for i := 0; i < l.nf; i++ {
				y[i] = 0
				if i < len(p.Lambda00) {
					y[i] = p.Lambda00[i]
				}
			}
			for k := 1; k < l.n; k++ {
				copy(y[k*l.nf:(k+1)*l.nf], l.lambdaOf(w, k-1))
			}
		},
		Jac: func(w []float64, p *mpcc.Params, jac *mat.Dense) {
			jac.Zero()
			for k := 1; k < l.n; k++ {
				for i := 0; i < l.nf; i++ {
					jac.Set(k*l.nf+i, l.lambda(k-1)+i, 1)
				}
			}
		},
	}
}
