package kkt

// Layout describes how the primal-dual vector and the KKT residual are
// partitioned. Both use the same block sizes:
//
//	w_pd = [w | lam_H | lam_comp | s | mu_G1 | mu_G2 | mu_s]
//	r    = [stat_w | stat_s | H | slacked comp | FB(G1) | FB(G2) | FB(s)]
type Layout struct {
	NW    int
	NH    int
	NComp int
}

// Dim is the length of both w_pd and the residual.
func (l Layout) Dim() int {
	return l.NW + l.NH + 5*l.NComp
}

// Column offsets of the multiplier and slack blocks in w_pd.
func (l Layout) LamH() int    { return l.NW }
func (l Layout) LamComp() int { return l.NW + l.NH }
func (l Layout) Slack() int   { return l.NW + l.NH + l.NComp }
func (l Layout) MuG1() int    { return l.NW + l.NH + 2*l.NComp }
func (l Layout) MuG2() int    { return l.NW + l.NH + 3*l.NComp }
func (l Layout) MuS() int     { return l.NW + l.NH + 4*l.NComp }

// Row offsets of the residual blocks. RowStatS starts d/ds of the Lagrangian,
// RowComp the slacked products s + G1·G2 - sigma, and RowFB the three
// Fischer–Burmeister blocks that close the system.
func (l Layout) RowStatS() int { return l.NW }
func (l Layout) RowH() int     { return l.NW + l.NComp }
func (l Layout) RowComp() int  { return l.NW + l.NComp + l.NH }
func (l Layout) RowFB() int    { return l.NW + l.NH + 2*l.NComp }

// Parts holds sub-slices of a primal-dual vector. They alias the vector.
type Parts struct {
	W       []float64
	LamH    []float64
	LamComp []float64
	Slack   []float64
	MuG1    []float64
	MuG2    []float64
	MuS     []float64
}

// Split cuts wpd into its blocks without copying.
func (l Layout) Split(wpd []float64) Parts {
	nc := l.NComp
	return Parts{
		W:       wpd[:l.NW],
		LamH:    wpd[l.LamH():l.LamComp()],
		LamComp: wpd[l.LamComp() : l.LamComp()+nc],
		Slack:   wpd[l.Slack() : l.Slack()+nc],
		MuG1:    wpd[l.MuG1() : l.MuG1()+nc],
		MuG2:    wpd[l.MuG2() : l.MuG2()+nc],
		MuS:     wpd[l.MuS() : l.MuS()+nc],
	}
}
