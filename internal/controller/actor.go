// Package controller hosts a swarm decision controller inside a goakt actor.
// The actor is the single owner of its RuntimeState, so steps are serialised
// by its mailbox and never run concurrently on the same state.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/swarm"
	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/telemetry"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// StepActor answers a step request (the sim step as a UInt64Value, 0 keeps the
// state's current step) with the decision packed as a structpb.Struct.
type StepActor struct {
	state    *swarm.RuntimeState
	ctrl     *swarm.Controller
	recorder *telemetry.Recorder
	last     *swarm.Decision
}

var _ actor.Actor = (*StepActor)(nil)

func NewStepActor(state *swarm.RuntimeState, ctrl *swarm.Controller, recorder *telemetry.Recorder) *StepActor {
	if recorder == nil {
		recorder = telemetry.NewRecorder()
	}
	return &StepActor{state: state, ctrl: ctrl, recorder: recorder}
}

func (a *StepActor) PreStart(ctx *actor.Context) error {
	if a.state == nil || a.ctrl == nil {
		return fmt.Errorf("step actor %s: state and controller are required", ctx.ActorName())
	}
	ctx.ActorSystem().Logger().Infof("%s owns %d agents (%d prey, %d predators), run %s",
		ctx.ActorName(), len(a.state.Actors), len(a.state.PreyList), len(a.state.PredatorList), a.recorder.RunID)
	return nil
}

func (a *StepActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		ctx.Logger().Infof("%s started", ctx.Self().Name())

	case *wrapperspb.UInt64Value:
		if step := int(msg.GetValue()); step > 0 {
			a.state.SimStep = step
		}
		start := time.Now()
		d := a.ctrl.Step(a.state)
		elapsed := time.Since(start)
		a.last = d
		a.recorder.Record(a.state, d)

		reply, err := telemetry.DecisionStruct(a.recorder.RunID.String(), a.state, d)
		if err != nil {
			ctx.Err(err)
			return
		}
		ctx.Logger().Debugf("%s decided step %d in %s: %d escaping, %d active",
			ctx.Self().Name(), d.SimStep, elapsed, len(d.Escaping), len(d.Active))
		ctx.Response(reply)

	default:
		ctx.Unhandled()
	}
}

func (a *StepActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("%s stopped after %d recorded steps", ctx.ActorName(), len(a.recorder.Rows()))
	return nil
}

// Last returns the most recent decision. Only read it once the actor is idle.
func (a *StepActor) Last() *swarm.Decision {
	return a.last
}

// Decide asks the actor behind pid to decide step and waits for the reply.
func Decide(ctx context.Context, pid *actor.PID, step uint64, timeout time.Duration) (*structpb.Struct, error) {
	reply, err := actor.Ask(ctx, pid, wrapperspb.UInt64(step), timeout)
	if err != nil {
		return nil, fmt.Errorf("asking step %d: %w", step, err)
	}
	st, ok := reply.(*structpb.Struct)
	if !ok {
		return nil, fmt.Errorf("unexpected reply %T for step %d", reply, step)
	}
	return st, nil
}
