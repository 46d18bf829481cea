package updater

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/oshokin/config-updater/internal/config"
	"github.com/oshokin/config-updater/internal/domain/cycle"
	"github.com/oshokin/config-updater/internal/logger"
)

// ErrSchedulerPanicked is returned when the loop stops because of a panic.
var ErrSchedulerPanicked = errors.New("scheduler panicked")

// CycleRunner runs one update cycle.
type CycleRunner interface {
	Run(ctx context.Context) cycle.Result
}

// Scheduler runs update cycles one after another, forever.
type Scheduler struct {
	// runner is the update cycle.
	runner CycleRunner
	// hooks runs the error hook.
	hooks HookRunner
	// interval is the pause between the end of a cycle and the start of the next.
	interval time.Duration
	// errorHook is the hook run after a failed cycle.
	errorHook string
	// configPath is passed to the error hook as CONFIG_PATH.
	configPath string
}

// NewScheduler creates a Scheduler from the startup configuration.
func NewScheduler(runner CycleRunner, hooks HookRunner, cfg *config.Config) *Scheduler {
	return &Scheduler{
		runner:     runner,
		hooks:      hooks,
		interval:   cfg.PollInterval,
		errorHook:  cfg.OnErrorHook,
		configPath: cfg.LocalPath,
	}
}

// Run starts the first cycle immediately and each next one a full interval
// after the previous one returned, so cycles never overlap and missed ticks
// are not caught up. A failed cycle never stops the loop. Run returns nil once
// ctx is cancelled between cycles, or ErrSchedulerPanicked on a panic.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.ErrorKV(ctx, "Scheduler panicked", "panic", recovered, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrSchedulerPanicked, recovered)
		}
	}()

	if ctx.Err() != nil {
		return nil
	}

	// Armed only after each cycle returns.
	timer := time.NewTimer(s.interval)
	timer.Stop()

	defer timer.Stop()

	for iteration := uint64(1); ; iteration++ {
		s.tick(ctx, iteration)
		timer.Reset(s.interval)

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, stopping update loop")
			return nil
		case <-timer.C:
		}
	}
}

// tick runs one cycle and the error hook if it failed.
func (s *Scheduler) tick(ctx context.Context, iteration uint64) {
	ctx = logger.WithKV(ctx, "iteration", iteration)

	result := s.runner.Run(ctx)
	if !result.IsFailed() {
		logger.DebugKV(ctx, "Update check finished", "outcome", result.Outcome.String())
		return
	}

	logger.ErrorKV(ctx, "Update failed", "error", result.Err)

	if _, err := s.hooks.Run(ctx, s.errorHook, s.configPath); err != nil {
		logger.ErrorKV(ctx, "Error hook failed", "error", err)
	}
}
