package swarm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Metrics is the step telemetry written by the decision step.
//
// The three matrices are indexed [sim_step-1, id-1]. Per-step scalars are
// indexed by sim_step-1. Entries never written hold NaN (matrices, MaxCJ,
// TargetDist) or zero (counts). The id logs get one entry per Step call.
type Metrics struct {
	EntropyValues    *mat.Dense
	MSTValues        *mat.Dense
	ActivationRatios *mat.Dense

	MaxCJ          []float64
	TargetDist     []float64
	ActivatedCount []int
	WarnNum        []int

	ActivatedIDs    [][]int
	ActivatedSrcIDs [][]int
	WarnIDs         [][]int

	maxID int
}

// NewMetrics preallocates telemetry for steps steps and maxID agents.
// Both are clamped to at least one; rows are added on demand past steps.
func NewMetrics(steps, maxID int) *Metrics {
	steps = max(steps, 1)
	maxID = max(maxID, 1)
	m := &Metrics{
		EntropyValues:    nanDense(steps, maxID),
		MSTValues:        nanDense(steps, maxID),
		ActivationRatios: nanDense(steps, maxID),
		MaxCJ:            nanSlice(steps),
		TargetDist:       nanSlice(steps),
		ActivatedCount:   make([]int, steps),
		WarnNum:          make([]int, steps),
		maxID:            maxID,
	}
	return m
}

// Steps is the number of step rows currently allocated.
func (m *Metrics) Steps() int {
	r, _ := m.EntropyValues.Dims()
	return r
}

// ensureStep grows every step-indexed series so that step (1-based) fits.
func (m *Metrics) ensureStep(step int) {
	have := m.Steps()
	if step <= have {
		return
	}
	extra := step - have
	m.EntropyValues = growNaN(m.EntropyValues, extra)
	m.MSTValues = growNaN(m.MSTValues, extra)
	m.ActivationRatios = growNaN(m.ActivationRatios, extra)
	m.MaxCJ = append(m.MaxCJ, nanSlice(extra)...)
	m.TargetDist = append(m.TargetDist, nanSlice(extra)...)
	m.ActivatedCount = append(m.ActivatedCount, make([]int, extra)...)
	m.WarnNum = append(m.WarnNum, make([]int, extra)...)
}

func (m *Metrics) inRange(step, id int) bool {
	return step >= 1 && id >= 1 && id <= m.maxID
}

func (m *Metrics) setEntropy(step, id int, v float64) {
	if m.inRange(step, id) {
		m.ensureStep(step)
		m.EntropyValues.Set(step-1, id-1, v)
	}
}

func (m *Metrics) setMST(step, id int, v float64) {
	if m.inRange(step, id) {
		m.ensureStep(step)
		m.MSTValues.Set(step-1, id-1, v)
	}
}

func (m *Metrics) setActivationRatio(step, id int, v float64) {
	if m.inRange(step, id) {
		m.ensureStep(step)
		m.ActivationRatios.Set(step-1, id-1, v)
	}
}

func (m *Metrics) setMaxCJ(step int, v float64) {
	if step >= 1 {
		m.ensureStep(step)
		m.MaxCJ[step-1] = v
	}
}

func (m *Metrics) setTargetDist(step int, v float64) {
	if step >= 1 {
		m.ensureStep(step)
		m.TargetDist[step-1] = v
	}
}

func (m *Metrics) recordActivations(step int, ids, srcs []int) {
	m.ActivatedIDs = append(m.ActivatedIDs, ids)
	m.ActivatedSrcIDs = append(m.ActivatedSrcIDs, srcs)
	if step >= 1 {
		m.ensureStep(step)
		m.ActivatedCount[step-1] = len(ids)
	}
}

func (m *Metrics) recordWarnings(step int, ids []int) {
	m.WarnIDs = append(m.WarnIDs, ids)
	if step >= 1 {
		m.ensureStep(step)
		m.WarnNum[step-1] = len(ids)
	}
}

// Row returns a copy of one step row of a step x agent matrix.
func Row(d *mat.Dense, step int) []float64 {
	r, c := d.Dims()
	if step < 1 || step > r {
		return nil
	}
	return mat.Row(make([]float64, c), step-1, d)
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func nanDense(r, c int) *mat.Dense {
	return mat.NewDense(r, c, nanSlice(r*c))
}

func growNaN(d *mat.Dense, extra int) *mat.Dense {
	r, c := d.Dims()
	g := d.Grow(extra, 0).(*mat.Dense)
	for i := r; i < r+extra; i++ {
		for j := 0; j < c; j++ {
			g.Set(i, j, math.NaN())
		}
	}
	return g
}
