// Command control runs the stepper motion controller against real drive
// hardware: it loads the YAML configuration, builds the configured stepper
// backend, and executes the waypoint sequence on the host clock. SIGINT and
// SIGTERM trigger a jerk-limited deceleration to rest before exit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stepcontrol/internal/config"
	"stepcontrol/internal/core"
	"stepcontrol/internal/hal"
	"stepcontrol/internal/hardware"
	"stepcontrol/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "warning: %s not found, using default configuration\n", *configPath)
		cfg = config.Default()
	}

	if err := logging.GetManager().UpdateConfig(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	logger := logging.GetLogger("control")

	clock := hal.NewHostClock()
	stepper, closeStepper, err := hardware.NewStepper(cfg, clock)
	if err != nil {
		logger.Error("Failed to initialize stepper backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStepper(); err != nil {
			logger.Error("Failed to close stepper backend", "error", err)
		}
	}()

	sequencer, err := core.NewSequencer(cfg.Segments(), cfg.Policy())
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal, stopping", "signal", sig.String())
		cancel()
	}()

	logger.Info("Starting control loop",
		"backend", cfg.Stepper.Backend,
		"cycle_period_us", cfg.Control.CyclePeriodMicros,
		"segments", len(cfg.Sequence.Segments),
		"policy", cfg.Policy().String())

	runErr := scheduler.Run(ctx)
	stats := scheduler.Stats()

	switch {
	case runErr == nil:
		logger.Info("Run complete",
			"segments", stats.SegmentsDone,
			"steps_pulsed", stats.StepsPulsed,
			"cycles", stats.Cycles,
			"overruns", stats.Overruns)
	case errors.Is(runErr, context.Canceled):
		logger.Info("Run stopped",
			"position", scheduler.State().Position,
			"steps_pulsed", stats.StepsPulsed)
	default:
		logger.Error("Run failed", "error", runErr)
		os.Exit(1)
	}
}
