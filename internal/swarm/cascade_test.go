package swarm

import (
	"math"
	"testing"
)

// chain returns a fixed neighbor list per agent id.
func chain(links map[int][]int) NeighborFinder {
	return NeighborFinderFunc(func(s *RuntimeState, id int) ([]*Agent, []int) {
		var agents []*Agent
		var ids []int
		for _, n := range links[id] {
			if a, ok := s.Agent(n); ok {
				agents = append(agents, a)
				ids = append(ids, n)
			}
		}
		return agents, ids
	})
}

// leaderSignal makes the leader and every ACTIVE agent loud, everyone else quiet.
func leaderSignal(leader int) SignalSource {
	return SignalSourceFunc(func(_ int, neighbors []*Agent, _ *RuntimeState) []float64 {
		out := make([]float64, len(neighbors))
		for i, n := range neighbors {
			if n.ID == leader || n.IsActivated {
				out[i] = 1
			}
		}
		return out
	})
}

func TestCascade_OrderDeterminesPropagation(t *testing.T) {
	build := func(order []int) (*RuntimeState, *cascadeResult) {
		agents := []*Agent{
			{ID: 1, Pose: vec(0, 0), Vel: vec(0, 1)}, // leader, not prey
			{ID: 2, Pose: vec(1, 0), Vel: vec(1, 0), CJThreshold: 0.5},
			{ID: 3, Pose: vec(2, 0), Vel: vec(1, 0), CJThreshold: 0.5},
		}
		s := newTestState(t, testConfig(), agents, order, nil, nil)
		c := newTestController(t, Perception{
			Neighbors: chain(map[int][]int{2: {1}, 3: {2}}),
			Signals:   leaderSignal(1),
		})
		return s, c.runCascade(s, newForces(s.MaxID))
	}

	t.Run("upstream first cascades in one pass", func(t *testing.T) {
		s, res := build([]int{2, 3})
		if src, ok := s.Actors[2].Source(); !ok || src != 1 {
			t.Errorf("agent 2 source = %v,%v; want 1", src, ok)
		}
		if src, ok := s.Actors[3].Source(); !ok || src != 2 {
			t.Errorf("agent 3 source = %v,%v; want 2", src, ok)
		}
		want := []Activation{{ID: 2, Src: 1}, {ID: 3, Src: 2}}
		if len(res.active) != len(want) || res.active[0] != want[0] || res.active[1] != want[1] {
			t.Errorf("active = %v; want %v", res.active, want)
		}
	})

	t.Run("downstream first waits a step", func(t *testing.T) {
		s, res := build([]int{3, 2})
		if s.Actors[3].IsActivated {
			t.Error("agent 3 activated before its neighbor")
		}
		if !s.Actors[2].IsActivated {
			t.Error("agent 2 not activated by the leader")
		}
		if len(res.activated) != 1 || res.activated[0] != 2 {
			t.Errorf("newly activated = %v; want [2]", res.activated)
		}
	})
}

func TestCascade_ActivationFollowsArgmax(t *testing.T) {
	agents := []*Agent{
		{ID: 1, Pose: vec(0, 0), Vel: vec(1, 0), CJThreshold: 0.5},
		{ID: 2, Pose: vec(1, 0), Vel: vec(0, 2)},
		{ID: 3, Pose: vec(0, 1), Vel: vec(-3, 0)},
	}
	s := newTestState(t, testConfig(), agents, []int{1}, nil, nil)
	signals := SignalSourceFunc(func(_ int, neighbors []*Agent, _ *RuntimeState) []float64 {
		return []float64{0.7, 0.9}
	})
	c := newTestController(t, Perception{Neighbors: chain(map[int][]int{1: {2, 3}}), Signals: signals})

	f := newForces(s.MaxID)
	c.runCascade(s, f)

	if src, ok := s.Actors[1].Source(); !ok || src != 3 {
		t.Fatalf("source = %v,%v; want 3", src, ok)
	}
	if !f.align[0].Eq(vec(-1, 0)) {
		t.Errorf("alignment = %v; want unit velocity of the source (-1, 0)", f.align[0])
	}
	if got := s.Metrics.MaxCJ[0]; got != 0.9 {
		t.Errorf("maxcj = %v; want 0.9", got)
	}
	if got := s.Actors[1].Observed.IDs; len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("observed ids = %v; want [2 3]", got)
	}
	if got := s.Actors[1].Observed.RelativePositions[1]; !got.Eq(vec(0, 1)) {
		t.Errorf("relative position of 3 = %v; want (0, 1)", got)
	}
}

func TestCascade_SignalMustExceedThreshold(t *testing.T) {
	agents := []*Agent{
		{ID: 1, Pose: vec(0, 0), Vel: vec(1, 0), CJThreshold: 0.5},
		{ID: 2, Pose: vec(1, 0), Vel: vec(0, 1)},
		{ID: 3, Pose: vec(0, 1), Vel: vec(0, 1)},
	}
	s := newTestState(t, testConfig(), agents, []int{1}, nil, nil)
	signals := SignalSourceFunc(func(_ int, neighbors []*Agent, _ *RuntimeState) []float64 {
		return []float64{0.5, 0.5} // equal is not enough
	})
	c := newTestController(t, Perception{Neighbors: chain(map[int][]int{1: {2, 3}}), Signals: signals})

	f := newForces(s.MaxID)
	c.runCascade(s, f)

	if s.Actors[1].IsActivated {
		t.Fatal("activated on a signal equal to the threshold")
	}
	if !f.align[0].Eq(vec(0, 1)) {
		t.Errorf("alignment = %v; want mean neighbor heading (0, 1)", f.align[0])
	}
	if !math.IsNaN(s.Metrics.MaxCJ[0]) {
		t.Errorf("maxcj = %v; want NaN without activation", s.Metrics.MaxCJ[0])
	}
}

func TestCascade_ActiveTransitions(t *testing.T) {
	tests := []struct {
		name       string
		src        int
		srcVel     [2]float64
		wantActive bool
		wantAlign  [2]float64
	}{
		{"source gone", 9, [2]float64{1, 0}, false, [2]float64{0, 1}},
		{"source matched", 2, [2]float64{1.01, 0}, false, [2]float64{0, 1}},
		{"source still different", 2, [2]float64{-2, 0}, true, [2]float64{-1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.DeacThreshold = 0.1
			agents := []*Agent{
				{ID: 1, Pose: vec(0, 0), Vel: vec(1, 0), IsActivated: true, SrcID: intPtr(tt.src)},
				{ID: 2, Pose: vec(5, 5), Vel: vec(tt.srcVel[0], tt.srcVel[1])},
				{ID: 3, Pose: vec(1, 0), Vel: vec(0, 3)},
			}
			s := newTestState(t, cfg, agents, []int{1}, nil, nil)
			// huge signals must not matter while ACTIVE
			loud := SignalSourceFunc(func(_ int, n []*Agent, _ *RuntimeState) []float64 {
				out := make([]float64, len(n))
				for i := range out {
					out[i] = 100
				}
				return out
			})
			c := newTestController(t, Perception{Neighbors: chain(map[int][]int{1: {3}}), Signals: loud})

			f := newForces(s.MaxID)
			res := c.runCascade(s, f)

			me := s.Actors[1]
			if me.IsActivated != tt.wantActive {
				t.Errorf("active = %v; want %v", me.IsActivated, tt.wantActive)
			}
			if !tt.wantActive && me.SrcID != nil {
				t.Errorf("source not cleared: %v", *me.SrcID)
			}
			if !f.align[0].Eq(vec(tt.wantAlign[0], tt.wantAlign[1])) {
				t.Errorf("alignment = %v; want %v", f.align[0], tt.wantAlign)
			}
			if len(res.activated) != 0 {
				t.Errorf("newly activated = %v; want none", res.activated)
			}
			if wantDeact := !tt.wantActive; (len(res.deactivated) == 1) != wantDeact {
				t.Errorf("deactivated = %v; want deactivation %v", res.deactivated, wantDeact)
			}
		})
	}
}

func TestCascade_NoNeighbors(t *testing.T) {
	agents := []*Agent{
		{ID: 1, Pose: vec(0, 0), Vel: vec(0, -2), IsActivated: true, SrcID: intPtr(7), CJThreshold: 0.3},
	}
	s := newTestState(t, testConfig(), agents, []int{1}, nil, nil)
	s.Actors[1].Observed = NeighborSnapshot{IDs: []int{4}}
	c := newTestController(t, Perception{Neighbors: noNeighbors})

	f := newForces(s.MaxID)
	c.runCascade(s, f)

	me := s.Actors[1]
	if !f.align[0].Eq(vec(0, -1)) {
		t.Errorf("alignment = %v; want own heading (0, -1)", f.align[0])
	}
	if !me.IsActivated || *me.SrcID != 7 {
		t.Error("state changed without neighbors")
	}
	if me.Observed.IDs != nil {
		t.Errorf("observed ids = %v; want reset", me.Observed.IDs)
	}
	if got := s.Metrics.MSTValues.At(0, 0); got != 0.3 {
		t.Errorf("mst = %v; want 0.3", got)
	}
	if got := s.Metrics.EntropyValues.At(0, 0); !math.IsNaN(got) {
		t.Errorf("entropy = %v; want unrecorded", got)
	}
	if got := s.Metrics.ActivationRatios.At(0, 0); !math.IsNaN(got) {
		t.Errorf("activation ratio = %v; want unrecorded", got)
	}
}

func TestCascade_MaxCJLastWriterWins(t *testing.T) {
	agents := []*Agent{
		{ID: 1, Pose: vec(0, 0), Vel: vec(1, 0)},
		{ID: 2, Pose: vec(1, 0), Vel: vec(1, 0)},
		{ID: 3, Pose: vec(2, 0), Vel: vec(0, 1)},
	}
	s := newTestState(t, testConfig(), agents, []int{1, 2}, nil, nil)
	signals := SignalSourceFunc(func(id int, n []*Agent, _ *RuntimeState) []float64 {
		if id == 1 {
			return []float64{5}
		}
		return []float64{2}
	})
	c := newTestController(t, Perception{Neighbors: chain(map[int][]int{1: {3}, 2: {3}}), Signals: signals})
	c.runCascade(s, newForces(s.MaxID))

	if got := s.Metrics.MaxCJ[0]; got != 2 {
		t.Errorf("maxcj = %v; want 2 from the last activation", got)
	}
}

func TestCascade_Telemetry(t *testing.T) {
	agents := []*Agent{
		{ID: 1, Pose: vec(0, 0), Vel: vec(1, 0), CJThreshold: 10},
		{ID: 2, Pose: vec(1, 0), Vel: vec(1, 0), IsActivated: true, SrcID: intPtr(3)},
		{ID: 3, Pose: vec(2, 0), Vel: vec(-1, 0)},
		{ID: 4, Pose: vec(3, 0), Vel: vec(0, 1)},
	}
	s := newTestState(t, testConfig(), agents, []int{1}, nil, nil)
	c := newTestController(t, Perception{Neighbors: chain(map[int][]int{1: {2, 3, 4}})})
	c.runCascade(s, newForces(s.MaxID))

	if got := s.Metrics.EntropyValues.At(0, 0); got != 3 {
		t.Errorf("entropy = %v; want 3 headings", got)
	}
	if got := s.Metrics.ActivationRatios.At(0, 0); !floatEquals(got, 1.0/3) {
		t.Errorf("activation ratio = %v; want 1/3", got)
	}
	if got := s.Metrics.MSTValues.At(0, 0); got != 10 {
		t.Errorf("mst = %v; want 10", got)
	}
}
