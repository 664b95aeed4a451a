package swarm

import (
	"math"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/pkg/geometry"
	"gonum.org/v1/gonum/floats"
)

// fallbackHeading is used when the predator sits on its target and is not moving.
var fallbackHeading = geometry.Vector2D{X: 1, Y: 0}

// huntPrey sets the predator's desired direction and speed. Before attackStep
// it idles; afterwards it heads for the nearest prey at v0Hawk.
// It does nothing when the configured hawk is not a listed predator.
func (c *Controller) huntPrey(s *RuntimeState, dirs []geometry.Vector2D, speeds []float64) {
	cfg := s.Config
	idx := s.index(cfg.HawkID)
	if idx < 0 || !listed(s.PredatorList, cfg.HawkID) {
		return
	}

	dirs[idx] = cfg.HawkIdleHeading.Unit()
	speeds[idx] = 0

	if s.SimStep < cfg.AttackStep {
		return
	}

	hawk, ok := s.Hawk()
	if !ok {
		c.logger.Warnf("step %d: predator %d is listed but not in registry, idling", s.SimStep, cfg.HawkID)
		return
	}

	var (
		offsets []geometry.Vector2D
		dists   []float64
		targets []int
	)
	for _, id := range s.PreyList {
		prey, ok := s.Agent(id)
		if !ok {
			continue
		}
		offsets = append(offsets, prey.Pose.Sub(hawk.Pose))
		dists = append(dists, hawk.Pose.DistanceTo(prey.Pose))
		targets = append(targets, id)
	}

	if len(dists) == 0 {
		s.Metrics.setTargetDist(s.SimStep, math.NaN())
		return
	}

	nearest := floats.MinIdx(dists)
	s.Metrics.setTargetDist(s.SimStep, dists[nearest])

	switch {
	case dists[nearest] > 0:
		dirs[idx] = offsets[nearest].Unit()
	case !hawk.Vel.IsZero():
		dirs[idx] = hawk.Heading()
	default:
		dirs[idx] = fallbackHeading
	}
	speeds[idx] = cfg.V0Hawk
	c.logger.Debugf("step %d: predator %d chasing %d at %.3f, heading %s", s.SimStep, hawk.ID, targets[nearest], dists[nearest], dirs[idx])
}

func listed(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
