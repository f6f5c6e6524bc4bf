package homotopy

import "time"

// Level is the record of one completed homotopy level.
type Level struct {
	Sigma   float64
	CPUTime time.Duration
	NLPIter int
	CompRes float64
	W       []float64
}

// Log is the append-only convergence history of one solve. It is owned by
// the driver while solving and read-only afterwards.
type Log struct {
	Initial []float64
	Sigma   []float64
	CPUTime []time.Duration
	NLPIter []int
	CompRes []float64
	W       [][]float64
}

func (l *Log) Append(lv Level) {
	l.Sigma = append(l.Sigma, lv.Sigma)
	l.CPUTime = append(l.CPUTime, lv.CPUTime)
	l.NLPIter = append(l.NLPIter, lv.NLPIter)
	l.CompRes = append(l.CompRes, lv.CompRes)
	l.W = append(l.W, lv.W)
}

func (l *Log) Levels() int { return len(l.Sigma) }

func (l *Log) TotalIter() int {
	sum := 0
	for _, n := range l.NLPIter {
		sum += n
	}
	return sum
}

func (l *Log) TotalCPU() time.Duration {
	var sum time.Duration
	for _, d := range l.CPUTime {
		sum += d
	}
	return sum
}

// CPUSeconds returns the per-level CPU times padded with zeros to n entries.
func (l *Log) CPUSeconds(n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n && i < len(l.CPUTime); i++ {
		out[i] = l.CPUTime[i].Seconds()
	}
	return out
}

// WAll returns the initial iterate followed by the iterate after each level.
func (l *Log) WAll() [][]float64 {
	all := make([][]float64, 0, len(l.W)+1)
	all = append(all, l.Initial)
	return append(all, l.W...)
}
