package swarm

import (
	"math"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/pkg/geometry"
)

// Activation is one (agent, source) pair of the activation log.
type Activation struct {
	ID  int `json:"id"`
	Src int `json:"src"`
}

// cascadeResult collects the transitions of one pass.
type cascadeResult struct {
	active      []Activation // ACTIVE with a source at the end of their own evaluation
	activated   []int        // INACTIVE -> ACTIVE this step
	deactivated []int        // ACTIVE -> INACTIVE this step
}

// runCascade evaluates the activation state machine of every prey in
// prey_list order. The pass is sequential: an agent updated
// earlier in the pass is already seen as ACTIVE by the agents after it.
func (c *Controller) runCascade(s *RuntimeState, f *forces) *cascadeResult {
	res := &cascadeResult{}
	for _, id := range s.PreyList {
		me, ok := s.Agent(id)
		idx := s.index(id)
		if !ok || idx < 0 {
			c.logger.Warnf("prey %d not in registry, skipped", id)
			continue
		}
		f.align[idx] = c.evaluate(s, me, res)
		if src, ok := me.Source(); me.IsActivated && ok {
			res.active = append(res.active, Activation{ID: id, Src: src})
		}
	}
	return res
}

// evaluate runs one agent through the state machine, records its telemetry and
// returns its alignment direction.
func (c *Controller) evaluate(s *RuntimeState, me *Agent, res *cascadeResult) geometry.Vector2D {
	step := s.SimStep
	neighbors, ids := c.perception.Neighbors.TopologyNeighbors(s, me.ID)

	if len(ids) > 0 {
		headings := make([]float64, 0, len(neighbors))
		for _, n := range neighbors {
			headings = append(headings, n.Vel.Angle())
		}
		s.Metrics.setEntropy(step, me.ID, c.perception.Entropy.HeadingEntropy(headings))
	}
	s.Metrics.setMST(step, me.ID, me.CJThreshold)

	me.Observed = NeighborSnapshot{}
	if len(neighbors) == 0 {
		return me.Heading()
	}

	signals := c.perception.Signals.CandidateSignals(me.ID, neighbors, s)
	me.Observed.IDs = ids
	me.Observed.Signals = signals
	me.Observed.RelativePositions = make([]geometry.Vector2D, 0, len(neighbors))
	for _, n := range neighbors {
		me.Observed.RelativePositions = append(me.Observed.RelativePositions, n.Pose.Sub(me.Pose))
	}

	var align geometry.Vector2D
	if src, ok := me.Source(); me.IsActivated && ok {
		align = c.followOrRelease(s, me, src, ids, res)
	} else {
		align = c.tryActivate(s, me, neighbors, ids, signals, res)
	}

	active := 0
	for _, nid := range ids {
		if n, ok := s.Agent(nid); ok && n.IsActivated {
			active++
		}
	}
	ratio := 0.0
	if len(ids) > 0 {
		ratio = float64(active) / float64(len(ids))
	}
	s.Metrics.setActivationRatio(step, me.ID, ratio)

	return align
}

// followOrRelease handles ACTIVE(src): keep following while the source exists
// and still moves differently enough from us.
func (c *Controller) followOrRelease(s *RuntimeState, me *Agent, src int, ids []int, res *cascadeResult) geometry.Vector2D {
	srcAgent, ok := s.Agent(src)
	if !ok {
		c.logger.Debugf("step %d: agent %d lost source %d", s.SimStep, me.ID, src)
		me.deactivate()
		res.deactivated = append(res.deactivated, me.ID)
		return neighborHeading(s, ids)
	}
	if srcAgent.Vel.Sub(me.Vel).Len() < s.Config.DeacThreshold {
		c.logger.Debugf("step %d: agent %d matched source %d, deactivated", s.SimStep, me.ID, src)
		me.deactivate()
		res.deactivated = append(res.deactivated, me.ID)
		return neighborHeading(s, ids)
	}
	return srcAgent.Heading()
}

// tryActivate handles INACTIVE: the strongest neighbor signal above our own
// threshold becomes the source.
func (c *Controller) tryActivate(s *RuntimeState, me *Agent, neighbors []*Agent, ids []int, signals []float64, res *cascadeResult) geometry.Vector2D {
	best, bestIdx := math.Inf(-1), -1
	for k, v := range signals {
		if k >= len(neighbors) {
			break
		}
		if v > best {
			best, bestIdx = v, k
		}
	}
	if bestIdx < 0 || !(best > me.CJThreshold) {
		return neighborHeading(s, ids)
	}

	src := neighbors[bestIdx]
	me.activate(src.ID)
	res.activated = append(res.activated, me.ID)
	// last writer wins when several agents activate in the same step
	s.Metrics.setMaxCJ(s.SimStep, best)
	c.logger.Debugf("step %d: agent %d activated by %d (signal %.4f > %.4f)",
		s.SimStep, me.ID, src.ID, best, me.CJThreshold)
	return src.Heading()
}

// neighborHeading is the unit of the summed neighbor headings.
func neighborHeading(s *RuntimeState, ids []int) geometry.Vector2D {
	var sum geometry.Vector2D
	for _, id := range ids {
		if n, ok := s.Agent(id); ok {
			sum = sum.Add(n.Heading())
		}
	}
	return sum.Unit()
}
