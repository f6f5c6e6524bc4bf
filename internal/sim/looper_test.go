package sim

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fesdsim/internal/fesd"
	"github.com/san-kum/fesdsim/internal/homotopy"
	"github.com/san-kum/fesdsim/internal/models"
	"github.com/san-kum/fesdsim/internal/mpcc"
)

// halving maps x to x/2 per element and records what it was handed.
type halving struct {
	simulation bool
	np         int
	x          []float64
	seenX      [][]float64
	seenP      [][]float64
	statuses   []homotopy.Status
	failAt     int
	calls      int
}

func (h *halving) IsSimulation() bool  { return h.simulation }
func (h *halving) StateDim() int       { return 1 }
func (h *halving) GlobalParamDim() int { return h.np }

func (h *halving) Set(field string, value []float64) error {
	v := append([]float64(nil), value...)
	switch field {
	case "x":
		h.x = v
		h.seenX = append(h.seenX, v)
	case "p_global":
		h.seenP = append(h.seenP, v)
	}
	return nil
}

func (h *halving) Solve() (*fesd.Result, error) {
	defer func() { h.calls++ }()
	if h.failAt > 0 && h.calls == h.failAt {
		return nil, &mpcc.SingularError{Cond: 1e20}
	}
	status := homotopy.Converged
	if h.calls < len(h.statuses) {
		status = h.statuses[h.calls]
	}
	x1 := []float64{h.x[0] / 2}
	x2 := []float64{x1[0] / 2}
	return &fesd.Result{
		XList:      [][]float64{x1, x2},
		ThetaList:  [][]float64{{1}, {1}},
		LambdaList: [][]float64{{0}, {0}},
		TimeSteps:  []float64{0.1, 0.2},
		WSol:       []float64{x1[0], x2[0]},
		CPUTime:    []float64{0.5, 0.25, 0},
		NLPIter:    []int{2, 1},
		Status:     status,
	}, nil
}

var _ = Describe("Looper", func() {
	var solver *halving

	BeforeEach(func() {
		solver = &halving{simulation: true, np: 2}
	})

	Describe("construction", func() {
		It("rejects solvers that are not pure simulation problems", func() {
			solver.simulation = false
			_, err := NewLooper(solver, []float64{1}, 3, nil)

			var ce *mpcc.ConfigurationError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(errors.Is(err, mpcc.ErrNotSimulation)).To(BeTrue())
		})

		It("rejects p_values with the wrong number of rows", func() {
			_, err := NewLooper(solver, []float64{1}, 3, [][]float64{{1, 2}, {3, 4}})
			Expect(errors.Is(err, mpcc.ErrShapeMismatch)).To(BeTrue())
		})

		It("rejects p_values with the wrong row length", func() {
			_, err := NewLooper(solver, []float64{1}, 2, [][]float64{{1, 2}, {3}})
			Expect(errors.Is(err, mpcc.ErrShapeMismatch)).To(BeTrue())
		})

		It("rejects x0 with the wrong length", func() {
			_, err := NewLooper(solver, []float64{1, 2}, 3, nil)
			Expect(errors.Is(err, mpcc.ErrShapeMismatch)).To(BeTrue())
		})

		It("rejects a non-finite x0", func() {
			_, err := NewLooper(solver, []float64{math.NaN()}, 3, nil)

			var ce *mpcc.ConfigurationError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(errors.Is(err, mpcc.ErrInvalidConfig)).To(BeTrue())
		})

		It("rejects a negative step count", func() {
			_, err := NewLooper(solver, []float64{1}, -1, nil)
			Expect(errors.Is(err, mpcc.ErrInvalidConfig)).To(BeTrue())
		})
	})

	Describe("running", func() {
		It("chains the last state of each step into the next", func() {
			looper, err := NewLooper(solver, []float64{8}, 3, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(looper.Run(context.Background())).To(Succeed())

			res := looper.Results()
			Expect(res.XSim).To(HaveLen(1 + 3*2))
			Expect(res.XSim[0]).To(Equal(State{8}))
			Expect(solver.seenX).To(Equal([][]float64{{8}, {2}, {0.5}}))
			Expect(res.XSim[len(res.XSim)-1]).To(Equal(State{0.125}))
			Expect(looper.Current()).To(Equal(State{0.125}))
		})

		It("builds the time grid from prefix sums of the step sizes", func() {
			looper, err := NewLooper(solver, []float64{1}, 2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(looper.Run(context.Background())).To(Succeed())

			res := looper.Results()
			Expect(res.TimeSteps).To(Equal([]float64{0.1, 0.2, 0.1, 0.2}))
			Expect(res.TGrid).To(HaveLen(5))
			Expect(res.TGrid[0]).To(Equal(0.0))
			Expect(res.TGrid[4]).To(BeNumerically("~", 0.6, 1e-15))
			Expect(res.CPUNLP).To(HaveLen(2))
			Expect(res.CPUNLP[1]).To(Equal([]float64{0.5, 0.25, 0}))
			Expect(res.NLPIter).To(Equal([]int{3, 3}))
		})

		It("hands each row of p_values to its step", func() {
			pv := [][]float64{{1, 2}, {3, 4}}
			looper, err := NewLooper(solver, []float64{1}, 2, pv)
			Expect(err).NotTo(HaveOccurred())
			Expect(looper.Run(context.Background())).To(Succeed())
			Expect(solver.seenP).To(Equal(pv))
		})

		It("keeps non-converged steps and counts them", func() {
			solver.statuses = []homotopy.Status{homotopy.Converged, homotopy.MaxIterations, homotopy.SigmaFloor}
			looper, err := NewLooper(solver, []float64{1}, 3, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(looper.Run(context.Background())).To(Succeed())

			res := looper.Results()
			Expect(res.Failed).To(Equal(2))
			Expect(res.Statuses).To(Equal(solver.statuses))
			Expect(res.XSim).To(HaveLen(7))
			Expect(solver.calls).To(Equal(3))
		})

		It("aborts on numerical failure and keeps earlier steps", func() {
			solver.failAt = 1
			looper, err := NewLooper(solver, []float64{1}, 3, nil)
			Expect(err).NotTo(HaveOccurred())

			err = looper.Run(context.Background())
			Expect(errors.Is(err, mpcc.ErrSingularSystem)).To(BeTrue())
			var se *StepError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Step).To(Equal(1))
			Expect(looper.Results().XSim).To(HaveLen(3))
		})

		It("stops between steps when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			looper, err := NewLooper(solver, []float64{1}, 5, nil)
			Expect(err).NotTo(HaveOccurred())
			looper.AddObserver(ObserverFunc(func(step int, t float64, res *fesd.Result) {
				if step == 1 {
					cancel()
				}
			}))

			Expect(looper.Run(ctx)).To(MatchError(context.Canceled))
			Expect(solver.calls).To(Equal(2))
		})

		It("runs only once", func() {
			looper, err := NewLooper(solver, []float64{1}, 1, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(looper.Run(context.Background())).To(Succeed())
			Expect(looper.Run(context.Background())).NotTo(Succeed())
		})
	})

	Describe("with the decay model", func() {
		It("hands step one's last state to step two exactly", func() {
			opts := fesd.DefaultOptions()
			opts.Homotopy.CompTol = 1e-6
			s, err := fesd.NewSolver(models.NewDecay().Model(), opts)
			Expect(err).NotTo(HaveOccurred())

			x0 := []float64{1}
			looper, err := NewLooper(s, x0, 2, nil)
			Expect(err).NotTo(HaveOccurred())

			var handed [][]float64
			looper.AddObserver(ObserverFunc(func(step int, t float64, res *fesd.Result) {
				handed = append(handed, res.XList[len(res.XList)-1])
			}))
			Expect(looper.Run(context.Background())).To(Succeed())

			res := looper.Results()
			Expect(res.XSim[0]).To(Equal(State(x0)))
			Expect(res.XSim[2]).To(Equal(State(handed[0])))
			Expect(res.Failed).To(Equal(0))
			Expect(res.XSim[4][0]).To(BeNumerically("~", 1/(1.05*1.05*1.05*1.05), 1e-6))
			Expect(res.TGrid[4]).To(BeNumerically("~", 0.2, 1e-12))
		})
	})
})

var _ = Describe("RunEnsemble", func() {
	It("runs independent jobs and reports per-job errors", func() {
		jobs := []Job{
			{Name: "a", Solver: &halving{simulation: true}, X0: []float64{4}, NSim: 1},
			{Name: "b", Solver: &halving{simulation: false}, X0: []float64{4}, NSim: 1},
			{Name: "c", Solver: &halving{simulation: true}, X0: []float64{16}, NSim: 2},
		}
		results := RunEnsemble(context.Background(), jobs, 2)

		Expect(results).To(HaveLen(3))
		Expect(results[0].Err).NotTo(HaveOccurred())
		Expect(results[0].Results.XSim[2]).To(Equal(State{1}))
		Expect(errors.Is(results[1].Err, mpcc.ErrNotSimulation)).To(BeTrue())
		Expect(results[2].Results.XSim[4]).To(Equal(State{1}))
	})
})
