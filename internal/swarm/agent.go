package swarm

import (
	"github.com/lao-tseu-is-alive/go-swarm-pursuit/pkg/geometry"
)

// Agent is one controlled individual, prey or predator. Agents are owned by the
// RuntimeState registry; the step mutates them in place.
type Agent struct {
	ID          int               `json:"id" yaml:"id"` // 1-based
	Pose        geometry.Vector2D `json:"pose" yaml:"pose"`
	Vel         geometry.Vector2D `json:"vel" yaml:"vel"`
	CJThreshold float64           `json:"cjThreshold" yaml:"cjThreshold"`

	// Activation cascade state. SrcID is a weak reference: the source may have
	// been removed from the registry since it was recorded.
	IsActivated bool `json:"isActivated" yaml:"isActivated"`
	SrcID       *int `json:"srcId,omitempty" yaml:"srcId,omitempty"`

	// Observed is overwritten every step the agent is evaluated as prey.
	Observed NeighborSnapshot `json:"-" yaml:"-"`

	// Desired motion history, one entry appended per step the agent is a robot.
	DesiredTurnAngle []float64 `json:"-" yaml:"-"`
	DesiredSpeed     []float64 `json:"-" yaml:"-"`
}

// NeighborSnapshot is what the agent perceived during its last evaluation.
type NeighborSnapshot struct {
	IDs               []int
	Signals           []float64
	RelativePositions []geometry.Vector2D
}

// Source returns the activation source id, if any.
func (a *Agent) Source() (int, bool) {
	if a.SrcID == nil {
		return 0, false
	}
	return *a.SrcID, true
}

func (a *Agent) activate(src int) {
	a.IsActivated = true
	a.SrcID = &src
}

func (a *Agent) deactivate() {
	a.IsActivated = false
	a.SrcID = nil
}

// Heading is the direction of motion, zero when the agent is still.
func (a *Agent) Heading() geometry.Vector2D {
	return a.Vel.Unit()
}
