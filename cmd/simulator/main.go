// Command simulator runs the full control loop against a virtual-time clock
// and a pulse-recording stepper, so a multi-second trajectory completes in
// milliseconds. It prints the per-segment step budget and the requested
// versus pulsed accounting the scheduler asserts at completion.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"stepcontrol/internal/config"
	"stepcontrol/internal/core"
	"stepcontrol/internal/hal"
	"stepcontrol/internal/logging"
	"stepcontrol/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults built in)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := logging.GetManager().UpdateConfig(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	logger := logging.GetLogger("simulator")

	// A looped sequence never completes under virtual time.
	policy := cfg.Policy()
	if policy == types.PolicyLoop {
		logger.Info("Overriding loop policy with run-once for simulation")
		policy = types.PolicyRunOnce
	}

	clock := hal.NewSimClock()
	stepper := hal.NewSimStepper(clock, cfg.Axis.PulseDelayMicros)

	sequencer, err := core.NewSequencer(cfg.Segments(), policy)
	if err != nil {
		logger.Error("Failed to build sequencer", "error", err)
		os.Exit(1)
	}

	scheduler, err := core.NewScheduler(core.Config{
		CyclePeriodMicros:     cfg.Control.CyclePeriodMicros,
		StepsPerUnit:          cfg.Axis.StepsPerUnit,
		DirectionSettleMicros: cfg.Axis.DirectionSettleMicros,
	}, sequencer, stepper, clock)
	if err != nil {
		logger.Error("Failed to build scheduler", "error", err)
		os.Exit(1)
	}

	fmt.Println("Trajectory:")
	position := 0.0
	for i, seg := range cfg.Segments() {
		steps := int64(math.Round(seg.TargetPosition*cfg.Axis.StepsPerUnit)) -
			int64(math.Round(position*cfg.Axis.StepsPerUnit))
		if steps < 0 {
			steps = -steps
		}
		fmt.Printf("  segment %d: target=%g jerk=%g acc=%g vel=%g steps=%d\n",
			i, seg.TargetPosition, seg.MaxJerk, seg.MaxAcceleration, seg.MaxVelocity, steps)
		position = seg.TargetPosition
	}

	if err := scheduler.Run(context.Background()); err != nil {
		logger.Error("Run failed", "error", err)
		os.Exit(1)
	}

	stats := scheduler.Stats()
	fmt.Printf("Cycles: %d (virtual time %.3fs), overruns: %d\n",
		stats.Cycles, float64(clock.NowMicros())/1e6, stats.Overruns)
	fmt.Printf("Total steps requested: %d\n", stats.StepsRequested)
	fmt.Printf("Total steps pulsed:    %d\n", stats.StepsPulsed)
	fmt.Println("All steps accounted for")
}
