package telemetry

import (
	"fmt"
	"math"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/swarm"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// DecisionStruct packs a decision into a protobuf Struct so it can travel as
// an actor reply and be written as JSON. Only robots appear in "agents".
// Non-finite numbers become null (JSON has no NaN).
func DecisionStruct(runID string, s *swarm.RuntimeState, d *swarm.Decision) (*structpb.Struct, error) {
	agents := make([]any, 0, len(s.RobotsList))
	for _, id := range s.RobotsList {
		i := id - 1
		if i < 0 || i >= len(d.TurnAngles) {
			continue
		}
		agents = append(agents, map[string]any{
			"id":        id,
			"turnAngle": number(d.TurnAngles[i]),
			"speed":     number(d.Speeds[i]),
			"dirX":      number(d.Directions[i].X),
			"dirY":      number(d.Directions[i].Y),
		})
	}

	active := make([]any, 0, len(d.Active))
	for _, a := range d.Active {
		active = append(active, map[string]any{"id": a.ID, "src": a.Src})
	}

	var targetDist any
	if i := d.SimStep - 1; i >= 0 && i < len(s.Metrics.TargetDist) {
		targetDist = number(s.Metrics.TargetDist[i])
	}

	st, err := structpb.NewStruct(map[string]any{
		"runId":          runID,
		"simStep":        d.SimStep,
		"agents":         agents,
		"escaping":       ints(d.Escaping),
		"active":         active,
		"newlyActivated": ints(d.NewlyActivated),
		"deactivated":    ints(d.Deactivated),
		"targetDist":     targetDist,
	})
	if err != nil {
		return nil, fmt.Errorf("building decision struct: %w", err)
	}
	return st, nil
}

// MarshalSnapshot renders a snapshot as a single JSON line.
func MarshalSnapshot(st *structpb.Struct) ([]byte, error) {
	b, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshalling snapshot: %w", err)
	}
	return append(b, '\n'), nil
}

func number(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func ints(ids []int) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
