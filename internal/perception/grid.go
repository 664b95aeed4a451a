package perception

import (
	"math"
	"sort"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/swarm"
)

// minCellSize keeps the grid from degenerating into one cell per agent.
const minCellSize = 1.0

type cellKey struct {
	x, y int
}

// Grid is a radius-bounded Topology backed by a spatial hash of the prey.
// Controller.Step rebuilds the hash through Prepare at the start of every
// step; a query against a state or step the hash was not built for rebuilds
// it first. Agents removed from the registry since the last rebuild are never
// returned. A Grid is not safe for concurrent use.
type Grid struct {
	K      int
	Radius float64

	cellSize float64
	cells    map[cellKey][]*swarm.Agent
	state    *swarm.RuntimeState
	step     int
}

var (
	_ swarm.NeighborFinder = (*Grid)(nil)
	_ swarm.Preparer       = (*Grid)(nil)
)

func NewGrid(k int, radius float64) *Grid {
	return &Grid{
		K:        k,
		Radius:   radius,
		cellSize: math.Max(radius, minCellSize),
		cells:    make(map[cellKey][]*swarm.Agent),
	}
}

func (g *Grid) key(x, y float64) cellKey {
	return cellKey{x: int(math.Floor(x / g.cellSize)), y: int(math.Floor(y / g.cellSize))}
}

// Prepare rebuilds the hash from the current prey positions.
func (g *Grid) Prepare(s *swarm.RuntimeState) {
	g.rebuild(s)
}

// rebuild hashes every prey into its cell, reusing the cell slices.
func (g *Grid) rebuild(s *swarm.RuntimeState) {
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
	for _, id := range s.PreyList {
		a, ok := s.Agent(id)
		if !ok {
			continue
		}
		k := g.key(a.Pose.X, a.Pose.Y)
		g.cells[k] = append(g.cells[k], a)
	}
	g.state, g.step = s, s.SimStep
}

func (g *Grid) TopologyNeighbors(s *swarm.RuntimeState, id int) ([]*swarm.Agent, []int) {
	me, ok := s.Agent(id)
	if !ok {
		return nil, nil
	}
	if g.Radius <= 0 {
		return Topology{K: g.K}.TopologyNeighbors(s, id)
	}
	if g.state != s || g.step != s.SimStep {
		g.rebuild(s)
	}

	radiusSq := g.Radius * g.Radius
	lo := g.key(me.Pose.X-g.Radius, me.Pose.Y-g.Radius)
	hi := g.key(me.Pose.X+g.Radius, me.Pose.Y+g.Radius)

	type candidate struct {
		agent  *swarm.Agent
		distSq float64
	}
	var cands []candidate
	for gx := lo.x; gx <= hi.x; gx++ {
		for gy := lo.y; gy <= hi.y; gy++ {
			for _, a := range g.cells[cellKey{x: gx, y: gy}] {
				if a.ID == id {
					continue
				}
				if live, ok := s.Agent(a.ID); !ok || live != a {
					continue
				}
				if d := me.Pose.DistanceSquaredTo(a.Pose); d <= radiusSq {
					cands = append(cands, candidate{agent: a, distSq: d})
				}
			}
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].distSq != cands[j].distSq {
			return cands[i].distSq < cands[j].distSq
		}
		return cands[i].agent.ID < cands[j].agent.ID
	})
	if g.K > 0 && len(cands) > g.K {
		cands = cands[:g.K]
	}

	agents := make([]*swarm.Agent, 0, len(cands))
	ids := make([]int, 0, len(cands))
	for _, c := range cands {
		agents = append(agents, c.agent)
		ids = append(ids, c.agent.ID)
	}
	return agents, ids
}
