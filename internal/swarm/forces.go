package swarm

import (
	"math"
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/pkg/geometry"
)

// forces holds the per-agent contributions of one step, indexed id-1.
type forces struct {
	selfProp []geometry.Vector2D
	align    []geometry.Vector2D
	cohesion []geometry.Vector2D
	escape   []geometry.Vector2D
	escaping []int // prey ids inside their escape radius, prey_list order
}

func newForces(n int) *forces {
	return &forces{
		selfProp: make([]geometry.Vector2D, n),
		align:    make([]geometry.Vector2D, n),
		cohesion: make([]geometry.Vector2D, n),
		escape:   make([]geometry.Vector2D, n),
	}
}

// selfPropulsion keeps each prey moving where it is already heading.
func (f *forces) selfPropulsion(s *RuntimeState) {
	for _, id := range s.PreyList {
		a, ok := s.Agent(id)
		idx := s.index(id)
		if !ok || idx < 0 {
			continue
		}
		f.selfProp[idx] = a.Heading()
	}
}

// ZoneMagnitude is the signed cohesion/repulsion strength between two prey at
// distance d: negative (apart) inside dRep, positive (together) up to dSen,
// zero beyond dSen and for coincident agents.
func ZoneMagnitude(cfg *Config, d float64) float64 {
	switch {
	case d == 0:
		return 0
	case d <= cfg.DRep:
		return cfg.WeightRep * (d/cfg.DRep - 1)
	case d <= cfg.DSen:
		span := cfg.DSen - cfg.DRep
		if span <= 0 {
			return 0
		}
		return cfg.WeightAtt * (d - cfg.DRep) / span
	default:
		return 0
	}
}

// CohesionDirection sums the zone forces every other prey applies to id and
// returns the unit of the sum. Predators take no part.
func CohesionDirection(s *RuntimeState, id int) geometry.Vector2D {
	me, ok := s.Agent(id)
	if !ok {
		return geometry.Zero
	}
	var sum geometry.Vector2D
	for _, other := range s.PreyList {
		if other == id {
			continue
		}
		o, ok := s.Agent(other)
		if !ok {
			continue
		}
		r := o.Pose.Sub(me.Pose)
		d := r.Len()
		if d == 0 {
			continue
		}
		sum = sum.Add(r.Mul(ZoneMagnitude(s.Config, d) / d))
	}
	return sum.Unit()
}

func (f *forces) cohesionRepulsion(s *RuntimeState) {
	for _, id := range s.PreyList {
		if idx := s.index(id); idx >= 0 {
			f.cohesion[idx] = CohesionDirection(s, id)
		}
	}
}

// escapeFromHawk flags every prey strictly inside its escape radius and points
// it straight away from the predator. A prey sitting on the predator gets a
// random direction drawn from rng.
func (f *forces) escapeFromHawk(s *RuntimeState, rng *rand.Rand) {
	hawk, ok := s.Hawk()
	if !ok {
		return
	}
	for _, id := range s.PreyList {
		prey, ok := s.Agent(id)
		idx := s.index(id)
		if !ok || idx < 0 || id == hawk.ID {
			continue
		}
		toHawk := hawk.Pose.Sub(prey.Pose)
		dist := toHawk.Len()
		if dist >= s.Config.EscapeRadius(id) {
			continue
		}
		f.escaping = append(f.escaping, id)
		if dist > 0 {
			f.escape[idx] = toHawk.Mul(1 / dist).Neg()
		} else {
			f.escape[idx] = geometry.NewVectorPolar(1, rng.Float64()*2*math.Pi)
		}
	}
}
