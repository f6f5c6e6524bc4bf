package mpcc

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Block is a vector-valued function y = f(w; p) of length N.
type Block struct {
	N    int
	Eval func(w []float64, p *Params, y []float64)
	// Jac writes the N×len(w) Jacobian. Nil selects central finite differences.
	Jac func(w []float64, p *Params, jac *mat.Dense)
}

// Jacobian evaluates df/dw into jac, which must be N×len(w).
func (b Block) Jacobian(w []float64, p *Params, jac *mat.Dense) {
	if b.N == 0 || len(w) == 0 {
		return
	}
	if b.Jac != nil {
		b.Jac(w, p, jac)
		return
	}
	fd.Jacobian(jac, func(y, x []float64) {
		b.Eval(x, p, y)
	}, w, &fd.JacobianSettings{Formula: fd.Central})
}

// Identity returns the block y = w for an n-dimensional w.
func Identity(n int) Block {
	return Select(n, seq(n))
}

// Select returns the block picking the given indices of an n-dimensional w.
func Select(n int, idx []int) Block {
	return Block{
		N: len(idx),
		Eval: func(w []float64, p *Params, y []float64) {
			for i, j := range idx {
				y[i] = w[j]
			}
		},
		Jac: func(w []float64, p *Params, jac *mat.Dense) {
			jac.Zero()
			for i, j := range idx {
				jac.Set(i, j, 1)
			}
		},
	}
}

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

// Problem is the numeric description of a parametric MPCC consumed by the
// primal-dual builder. It is read-only once built.
type Problem struct {
	Name string
	Kind Kind
	NW   int
	W0   []float64

	// Constraints g(w) with Lower <= g <= Upper; rows with Lower == Upper are
	// equalities. Only equalities enter the primal-dual system.
	Constraints Block
	Lower       []float64
	Upper       []float64

	// G1 terms are summed before pairing with G2.
	G1 []Block
	G2 Block
}

func (p *Problem) NComp() int {
	return p.G2.N
}

// EqualityRows returns the constraint indices with coinciding bounds.
func (p *Problem) EqualityRows() []int {
	rows := make([]int, 0, len(p.Lower))
	for i := range p.Lower {
		if p.Lower[i] == p.Upper[i] {
			rows = append(rows, i)
		}
	}
	return rows
}

// Validate checks that every block agrees with the declared variable space.
func (p *Problem) Validate() error {
	if p.NW <= 0 {
		return &DimensionError{Field: "w", Want: 1, Got: p.NW}
	}
	if len(p.W0) != p.NW {
		return &DimensionError{Field: "w0", Want: p.NW, Got: len(p.W0)}
	}
	if len(p.Lower) != p.Constraints.N {
		return &DimensionError{Field: "lbg", Want: p.Constraints.N, Got: len(p.Lower)}
	}
	if len(p.Upper) != p.Constraints.N {
		return &DimensionError{Field: "ubg", Want: p.Constraints.N, Got: len(p.Upper)}
	}
	if p.Constraints.N > 0 && p.Constraints.Eval == nil {
		return &DimensionError{Field: "g", Want: p.Constraints.N, Got: 0}
	}
	if len(p.G1) == 0 && p.G2.N > 0 {
		return &DimensionError{Field: "G1 terms", Want: 1, Got: 0}
	}
	for _, term := range p.G1 {
		if term.N != p.G2.N {
			return &DimensionError{Field: "G1", Want: p.G2.N, Got: term.N}
		}
		if term.N > 0 && term.Eval == nil {
			return &DimensionError{Field: "G1", Want: term.N, Got: 0}
		}
	}
	if p.G2.N > 0 && p.G2.Eval == nil {
		return &DimensionError{Field: "G2", Want: p.G2.N, Got: 0}
	}
	return nil
}

// EvalG1 writes the summed G1 terms into y.
func (p *Problem) EvalG1(w []float64, prm *Params, y []float64) {
	for i := range y {
		y[i] = 0
	}
	if len(p.G1) == 1 {
		p.G1[0].Eval(w, prm, y)
		return
	}
	tmp := make([]float64, len(y))
	for _, term := range p.G1 {
		term.Eval(w, prm, tmp)
		for i := range y {
			y[i] += tmp[i]
		}
	}
}

// JacG1 writes the Jacobian of the summed G1 terms into jac.
func (p *Problem) JacG1(w []float64, prm *Params, jac *mat.Dense) {
	if len(p.G1) == 1 {
		p.G1[0].Jacobian(w, prm, jac)
		return
	}
	jac.Zero()
	r, c := jac.Dims()
	tmp := mat.NewDense(r, c, nil)
	for _, term := range p.G1 {
		term.Jacobian(w, prm, tmp)
		jac.Add(jac, tmp)
	}
}

// CompResidualAt evaluates the exact complementarity residual at the primal point w.
func (p *Problem) CompResidualAt(w []float64, prm *Params) float64 {
	n := p.NComp()
	if n == 0 {
		return 0
	}
	g1 := make([]float64, n)
	g2 := make([]float64, n)
	p.EvalG1(w, prm, g1)
	p.G2.Eval(w, prm, g2)
	return CompResidual(g1, g2)
}
