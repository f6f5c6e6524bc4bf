package metrics

import "github.com/san-kum/fesdsim/internal/fesd"

// Switches counts changes of the dominant mode between consecutive finite
// elements.
type Switches struct {
	name     string
	last     int
	started  bool
	switches int
}

func NewSwitches() *Switches {
	return &Switches{name: "switches"}
}

func (s *Switches) Name() string { return s.name }

func (s *Switches) OnStep(step int, t float64, res *fesd.Result) {
	for _, theta := range res.ThetaList {
		if len(theta) == 0 {
			continue
		}
		mode := argmax(theta)
		if s.started && mode != s.last {
			s.switches++
		}
		s.last, s.started = mode, true
	}
}

func (s *Switches) Value() float64 { return float64(s.switches) }

func (s *Switches) Reset() {
	s.switches = 0
	s.started = false
}

// Sliding is the fraction of finite elements on which no single mode carries
// the full convex combination, i.e. the trajectory slides along a surface.
type Sliding struct {
	name    string
	tol     float64
	sliding int
	samples int
}

func NewSliding(tol float64) *Sliding {
	return &Sliding{name: "sliding_fraction", tol: tol}
}

func (s *Sliding) Name() string { return s.name }

func (s *Sliding) OnStep(step int, t float64, res *fesd.Result) {
	for _, theta := range res.ThetaList {
		if len(theta) == 0 {
			continue
		}
		s.samples++
		if theta[argmax(theta)] < 1-s.tol {
			s.sliding++
		}
	}
}

func (s *Sliding) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.sliding) / float64(s.samples)
}

func (s *Sliding) Reset() {
	s.sliding = 0
	s.samples = 0
}
