package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/controller"
	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/perception"
	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/scenario"
	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/swarm"
	"github.com/lao-tseu-is-alive/go-swarm-pursuit/internal/telemetry"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
)

const askTimeout = 5 * time.Second

func main() {
	configFile := flag.String("config", "", "config file (.json or .yaml), defaults when empty")
	scenarioFile := flag.String("scenario", "", "scenario snapshot (.yaml or .json)")
	csvFile := flag.String("telemetry-csv", "", "write the step telemetry row here")
	snapshotFile := flag.String("snapshot", "", "write the decision as a JSON line here")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	if *scenarioFile == "" {
		log.Fatal("-scenario is required")
	}

	logger := golog.New(parseLevel(*logLevel), os.Stderr)

	cfg := swarm.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = swarm.LoadConfig(*configFile); err != nil {
			log.Fatal(err)
		}
	}

	sc, err := scenario.Load(*scenarioFile)
	if err != nil {
		log.Fatal(err)
	}
	state, err := sc.State(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctrl, err := swarm.NewController(perception.New(cfg), swarm.WithLogger(logger), swarm.WithSeed(cfg.Seed))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	system, err := actor.NewActorSystem("SwarmPursuit",
		actor.WithLogger(logger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		log.Fatal(err)
	}
	if err := system.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = system.Stop(ctx) }()

	recorder := telemetry.NewRecorder()
	stepActor := controller.NewStepActor(state, ctrl, recorder)
	pid, err := system.Spawn(ctx, "step-controller", stepActor)
	if err != nil {
		log.Fatalf("failed to spawn step controller: %v", err)
	}

	reply, err := controller.Decide(ctx, pid, uint64(state.SimStep), askTimeout)
	if err != nil {
		log.Fatal(err)
	}

	d := stepActor.Last()
	fmt.Printf("step %d  run %s\n", d.SimStep, recorder.RunID)
	fmt.Printf("%4s %12s %8s\n", "id", "turn(rad)", "speed")
	for _, id := range state.RobotsList {
		fmt.Printf("%4d %12.6f %8.3f\n", id, d.TurnAngles[id-1], d.Speeds[id-1])
	}
	if len(d.Escaping) > 0 {
		fmt.Printf("escaping: %v\n", d.Escaping)
	}

	if *csvFile != "" {
		if err := writeFile(*csvFile, recorder.WriteCSV); err != nil {
			log.Fatal(err)
		}
	}
	if *snapshotFile != "" {
		line, err := telemetry.MarshalSnapshot(reply)
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*snapshotFile, line, 0o644); err != nil {
			log.Fatal(err)
		}
	}
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := errors.Join(write(f), f.Close()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func parseLevel(s string) golog.Level {
	switch s {
	case "debug":
		return golog.DebugLevel
	case "warn":
		return golog.WarningLevel
	case "error":
		return golog.ErrorLevel
	default:
		return golog.InfoLevel
	}
}
