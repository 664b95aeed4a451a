package swarm

import (
	"errors"
	"math/rand/v2"
	"slices"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/pkg/geometry"
	golog "github.com/tochemey/goakt/v3/log"
)

// Controller computes the desired turn angle and speed of every controlled
// agent for one simulation step. A Controller holds no per-run state besides
// its random source; all state lives in the RuntimeState passed to Step.
type Controller struct {
	perception Perception
	rng        *rand.Rand
	logger     golog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger, golog.DiscardLogger by default.
func WithLogger(logger golog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSeed seeds the random source used for the coincident escape direction.
func WithSeed(seed uint64) Option {
	return func(c *Controller) {
		c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithRand replaces the random source.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) {
		if rng != nil {
			c.rng = rng
		}
	}
}

func NewController(p Perception, opts ...Option) (*Controller, error) {
	if p.Neighbors == nil || p.Signals == nil || p.Entropy == nil {
		return nil, errors.New("perception needs neighbors, signals and entropy")
	}
	c := &Controller{
		perception: p,
		logger:     golog.DiscardLogger,
	}
	WithSeed(0)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Decision is the output of one step. Slices are indexed by id-1 and sized MaxID.
type Decision struct {
	SimStep    int
	TurnAngles []float64
	Speeds     []float64
	Directions []geometry.Vector2D

	Escaping       []int
	Active         []Activation
	NewlyActivated []int
	Deactivated    []int
}

// Step runs the decision pass on s and mutates it: agent activation state,
// neighbor snapshots, histories and metrics. It never fails; every degenerate
// case resolves to a fallback. Step must not run concurrently on the same state.
//
// Visit order: prey_list (cascade, cohesion, escape), then the predator, then
// robots_list.
func (c *Controller) Step(s *RuntimeState) *Decision {
	n := s.MaxID
	s.Metrics.ensureStep(s.SimStep)
	if p, ok := c.perception.Neighbors.(Preparer); ok {
		p.Prepare(s)
	}

	f := newForces(n)
	f.selfPropulsion(s)

	cascade := c.runCascade(s, f)
	ids := make([]int, 0, len(cascade.active))
	srcs := make([]int, 0, len(cascade.active))
	for _, a := range cascade.active {
		ids = append(ids, a.ID)
		srcs = append(srcs, a.Src)
	}
	s.Metrics.recordActivations(s.SimStep, ids, srcs)

	f.cohesionRepulsion(s)

	f.escapeFromHawk(s, c.rng)
	s.Metrics.recordWarnings(s.SimStep, f.escaping)
	if len(f.escaping) > 0 {
		c.logger.Debugf("step %d: %d prey escaping %v", s.SimStep, len(f.escaping), f.escaping)
	}

	dirs := combine(s.Config, f)

	speeds := make([]float64, n)
	for i := range speeds {
		speeds[i] = s.Config.V0
	}

	c.huntPrey(s, dirs, speeds)

	turns := c.turnAngles(s, dirs, speeds)

	return &Decision{
		SimStep:        s.SimStep,
		TurnAngles:     turns,
		Speeds:         speeds,
		Directions:     dirs,
		Escaping:       slices.Clone(f.escaping),
		Active:         cascade.active,
		NewlyActivated: cascade.activated,
		Deactivated:    cascade.deactivated,
	}
}

// combine merges the social forces and applies the escape override.
// Self-propulsion is only a fallback for an exactly zero social direction.
func combine(cfg *Config, f *forces) []geometry.Vector2D {
	dirs := make([]geometry.Vector2D, len(f.cohesion))
	for i := range dirs {
		social := f.cohesion[i].Add(f.align[i].Mul(cfg.WeightAlign))
		if social.IsZero() {
			dirs[i] = f.selfProp[i]
		} else {
			dirs[i] = social.Unit()
		}
	}
	for _, id := range f.escaping {
		i := id - 1
		if !f.escape[i].IsZero() {
			// scaled, not re-normalised
			dirs[i] = f.escape[i].Mul(cfg.WeightEsc)
		}
	}
	return dirs
}

// turnAngles converts desired directions into signed heading changes for the
// robots and appends them to each robot's history.
func (c *Controller) turnAngles(s *RuntimeState, dirs []geometry.Vector2D, speeds []float64) []float64 {
	turns := make([]float64, s.MaxID)
	for _, id := range s.RobotsList {
		a, ok := s.Agent(id)
		idx := s.index(id)
		if !ok || idx < 0 {
			c.logger.Warnf("robot %d not in registry, skipped", id)
			continue
		}
		if !dirs[idx].IsZero() {
			turns[idx] = geometry.AngleBetween(a.Heading(), dirs[idx])
		}
		a.DesiredTurnAngle = append(a.DesiredTurnAngle, turns[idx])
		a.DesiredSpeed = append(a.DesiredSpeed, speeds[idx])
	}
	return turns
}
