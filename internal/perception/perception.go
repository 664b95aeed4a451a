// Package perception provides the default neighbor, signal and entropy
// collaborators of the swarm decision step.
package perception

import (
	"math"
	"sort"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/swarm"
	"github.com/lao-tseu-is-alive/go-swarm-pursuit/pkg/geometry"
	"gonum.org/v1/gonum/stat"
)

// Topology selects the K nearest prey of an agent, optionally limited to a
// sensing radius. Ties are broken by id so results are deterministic.
type Topology struct {
	K      int     // 0 means no count limit
	Radius float64 // 0 means no distance limit
}

var _ swarm.NeighborFinder = Topology{}

func (t Topology) TopologyNeighbors(s *swarm.RuntimeState, id int) ([]*swarm.Agent, []int) {
	me, ok := s.Agent(id)
	if !ok {
		return nil, nil
	}

	type candidate struct {
		agent  *swarm.Agent
		distSq float64
	}
	radiusSq := t.Radius * t.Radius
	var cands []candidate
	for _, other := range s.PreyList {
		if other == id {
			continue
		}
		a, ok := s.Agent(other)
		if !ok {
			continue
		}
		d := me.Pose.DistanceSquaredTo(a.Pose)
		if t.Radius > 0 && d > radiusSq {
			continue
		}
		cands = append(cands, candidate{agent: a, distSq: d})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].distSq != cands[j].distSq {
			return cands[i].distSq < cands[j].distSq
		}
		return cands[i].agent.ID < cands[j].agent.ID
	})
	if t.K > 0 && len(cands) > t.K {
		cands = cands[:t.K]
	}

	agents := make([]*swarm.Agent, 0, len(cands))
	ids := make([]int, 0, len(cands))
	for _, c := range cands {
		agents = append(agents, c.agent)
		ids = append(ids, c.agent.ID)
	}
	return agents, ids
}

// HeadingDeviation scores each neighbor by how far its heading deviates from
// the focal agent's, in radians [0, Pi]. A neighbor turning away from the
// group is the salient one an agent may start to follow.
type HeadingDeviation struct{}

var _ swarm.SignalSource = HeadingDeviation{}

func (HeadingDeviation) CandidateSignals(id int, neighbors []*swarm.Agent, s *swarm.RuntimeState) []float64 {
	signals := make([]float64, len(neighbors))
	me, ok := s.Agent(id)
	if !ok {
		return signals
	}
	for i, n := range neighbors {
		signals[i] = math.Abs(geometry.AngleBetween(me.Vel, n.Vel))
	}
	return signals
}

// HistogramEntropy bins headings over [-Pi, Pi] and returns the Shannon
// entropy (nats) of the bin frequencies.
type HistogramEntropy struct {
	Bins int
}

var _ swarm.EntropyEstimator = HistogramEntropy{}

func (h HistogramEntropy) HeadingEntropy(headings []float64) float64 {
	if len(headings) == 0 {
		return 0
	}
	bins := h.Bins
	if bins < 1 {
		bins = 1
	}

	dividers := make([]float64, bins+1)
	step := 2 * math.Pi / float64(bins)
	for i := range dividers {
		dividers[i] = -math.Pi + float64(i)*step
	}
	// stat.Histogram wants x strictly below the last divider
	dividers[bins] = math.Nextafter(math.Pi, math.Inf(1))

	x := make([]float64, len(headings))
	for i, a := range headings {
		x[i] = wrap(a)
	}
	sort.Float64s(x)

	counts := stat.Histogram(nil, dividers, x, nil)
	n := float64(len(x))
	for i := range counts {
		counts[i] /= n
	}
	return stat.Entropy(counts)
}

// New builds the default collaborators from the perception fields of cfg.
// A bounded sensing radius switches the neighbor query to a spatial Grid.
func New(cfg *swarm.Config) swarm.Perception {
	var neighbors swarm.NeighborFinder = Topology{K: cfg.TopologyK}
	if cfg.SenseRadius > 0 {
		neighbors = NewGrid(cfg.TopologyK, cfg.SenseRadius)
	}
	return swarm.Perception{
		Neighbors: neighbors,
		Signals:   HeadingDeviation{},
		Entropy:   HistogramEntropy{Bins: cfg.EntropyBins},
	}
}

// wrap maps an angle onto [-Pi, Pi].
func wrap(a float64) float64 {
	if a >= -math.Pi && a <= math.Pi {
		return a
	}
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
