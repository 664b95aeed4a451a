package swarm

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownAgent is returned when a membership list names an id missing from the registry.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrEscapeRadii is returned when rEscape does not cover every agent id.
	ErrEscapeRadii = errors.New("escape radii do not cover max id")
)

// RuntimeState is the exclusively owned context of one simulation run.
// The registry (Actors) owns every Agent; the id lists fix iteration order and
// are maintained by the lifecycle manager outside this package.
type RuntimeState struct {
	Config  *Config
	Metrics *Metrics
	Actors  map[int]*Agent

	PreyList     []int
	PredatorList []int
	RobotsList   []int

	SimStep int // 1-based
	MaxID   int // output array size
}

// NewRuntimeState builds a state from a validated config and an agent set,
// preallocating metrics for steps steps.
func NewRuntimeState(cfg *Config, agents []*Agent, prey, predators, robots []int, steps int) (*RuntimeState, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	actors := make(map[int]*Agent, len(agents))
	maxID := 0
	for _, a := range agents {
		if a.ID < 1 {
			return nil, fmt.Errorf("agent id must be >= 1, got %d", a.ID)
		}
		if _, dup := actors[a.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %d", a.ID)
		}
		actors[a.ID] = a
		maxID = max(maxID, a.ID)
	}

	for _, list := range [][]int{prey, predators, robots} {
		for _, id := range list {
			if _, ok := actors[id]; !ok {
				return nil, fmt.Errorf("%w: %d", ErrUnknownAgent, id)
			}
		}
	}

	if len(cfg.REscape) > 1 && len(cfg.REscape) < maxID {
		return nil, fmt.Errorf("%w: %d radii for max id %d", ErrEscapeRadii, len(cfg.REscape), maxID)
	}

	return &RuntimeState{
		Config:       cfg,
		Metrics:      NewMetrics(steps, maxID),
		Actors:       actors,
		PreyList:     slices.Clone(prey),
		PredatorList: slices.Clone(predators),
		RobotsList:   slices.Clone(robots),
		SimStep:      1,
		MaxID:        maxID,
	}, nil
}

// Agent looks an id up in the registry.
func (s *RuntimeState) Agent(id int) (*Agent, bool) {
	a, ok := s.Actors[id]
	return a, ok
}

// Hawk returns the predator if it is still in the registry.
func (s *RuntimeState) Hawk() (*Agent, bool) {
	return s.Agent(s.Config.HawkID)
}

// index converts an id to an output array index, or -1 when it does not fit.
func (s *RuntimeState) index(id int) int {
	if id < 1 || id > s.MaxID {
		return -1
	}
	return id - 1
}
