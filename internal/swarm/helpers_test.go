package swarm

import (
	"math"
	"testing"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/pkg/geometry"
)

const tol = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= tol
}

func vec(x, y float64) geometry.Vector2D {
	return geometry.Vector2D{X: x, Y: y}
}

func intPtr(v int) *int {
	return &v
}

// testConfig is a valid config with no predator (hawk id 99 is never registered).
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.DRep = 1
	cfg.DSen = 3
	cfg.WeightRep = 1
	cfg.WeightAtt = 1
	cfg.WeightAlign = 0
	cfg.WeightEsc = 1
	cfg.HawkID = 99
	cfg.REscape = []float64{5}
	cfg.AttackStep = 0
	return cfg
}

// otherPrey returns every other prey in prey_list order.
var otherPrey = NeighborFinderFunc(func(s *RuntimeState, id int) ([]*Agent, []int) {
	var agents []*Agent
	var ids []int
	for _, other := range s.PreyList {
		if other == id {
			continue
		}
		if a, ok := s.Agent(other); ok {
			agents = append(agents, a)
			ids = append(ids, other)
		}
	}
	return agents, ids
})

var noNeighbors = NeighborFinderFunc(func(*RuntimeState, int) ([]*Agent, []int) {
	return nil, nil
})

var zeroSignals = SignalSourceFunc(func(_ int, neighbors []*Agent, _ *RuntimeState) []float64 {
	return make([]float64, len(neighbors))
})

var countEntropy = EntropyFunc(func(headings []float64) float64 {
	return float64(len(headings))
})

func newTestState(t *testing.T, cfg *Config, agents []*Agent, prey, preds, robots []int) *RuntimeState {
	t.Helper()
	s, err := NewRuntimeState(cfg, agents, prey, preds, robots, 4)
	if err != nil {
		t.Fatalf("NewRuntimeState: %v", err)
	}
	return s
}

func newTestController(t *testing.T, p Perception, opts ...Option) *Controller {
	t.Helper()
	if p.Neighbors == nil {
		p.Neighbors = otherPrey
	}
	if p.Signals == nil {
		p.Signals = zeroSignals
	}
	if p.Entropy == nil {
		p.Entropy = countEntropy
	}
	c, err := NewController(p, opts...)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}
