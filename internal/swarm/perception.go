package swarm

// NeighborFinder answers the proximity query of one agent. The returned ids
// are aligned with the agents and their order is the iteration order used for
// every neighbor sum.
type NeighborFinder interface {
	TopologyNeighbors(s *RuntimeState, id int) ([]*Agent, []int)
}

// Preparer is implemented by collaborators that index the state once per step.
// Step calls Prepare before the first query of the step.
type Preparer interface {
	Prepare(s *RuntimeState)
}

// SignalSource yields one candidate signal per neighbor, aligned with the
// neighbors slice.
type SignalSource interface {
	CandidateSignals(id int, neighbors []*Agent, s *RuntimeState) []float64
}

// EntropyEstimator scores the disorder of a set of headings (radians).
type EntropyEstimator interface {
	HeadingEntropy(headings []float64) float64
}

// Perception bundles the collaborators consumed by the step.
type Perception struct {
	Neighbors NeighborFinder
	Signals   SignalSource
	Entropy   EntropyEstimator
}

// NeighborFinderFunc adapts a function to NeighborFinder.
type NeighborFinderFunc func(s *RuntimeState, id int) ([]*Agent, []int)

func (f NeighborFinderFunc) TopologyNeighbors(s *RuntimeState, id int) ([]*Agent, []int) {
	return f(s, id)
}

// SignalSourceFunc adapts a function to SignalSource.
type SignalSourceFunc func(id int, neighbors []*Agent, s *RuntimeState) []float64

func (f SignalSourceFunc) CandidateSignals(id int, neighbors []*Agent, s *RuntimeState) []float64 {
	return f(id, neighbors, s)
}

// EntropyFunc adapts a function to EntropyEstimator.
type EntropyFunc func(headings []float64) float64

func (f EntropyFunc) HeadingEntropy(headings []float64) float64 {
	return f(headings)
}
