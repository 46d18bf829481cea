package updater

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/config-updater/internal/config"
	"github.com/oshokin/config-updater/internal/domain/cycle"
	"github.com/oshokin/config-updater/internal/logger"
	"github.com/oshokin/config-updater/internal/repository/configfile"
	"github.com/oshokin/config-updater/internal/service/hook"
)

// ErrPayloadTooSmall is returned when the fetched document is shorter than MinAcceptableSize.
var ErrPayloadTooSmall = errors.New("downloaded configuration is too small")

// Fetcher downloads the remote document.
type Fetcher interface {
	Fetch(ctx context.Context, url, userAgent string) ([]byte, error)
}

// HookRunner runs a lifecycle hook if it exists.
type HookRunner interface {
	Run(ctx context.Context, hookPath, configPath string) (*hook.Result, error)
}

// Cycle is one fetch-compare-commit-hook pass over the managed file.
type Cycle struct {
	// cfg is shared read-only with the scheduler.
	cfg *config.Config
	// fetcher downloads the remote document.
	fetcher Fetcher
	// repo owns the managed file and its backup.
	repo configfile.Repository
	// hooks runs the post-update hook.
	hooks HookRunner
}

// NewCycle creates a Cycle.
func NewCycle(cfg *config.Config, fetcher Fetcher, repo configfile.Repository, hooks HookRunner) *Cycle {
	return &Cycle{
		cfg:     cfg,
		fetcher: fetcher,
		repo:    repo,
		hooks:   hooks,
	}
}

// Run executes the cycle to completion. Cancelling ctx does not interrupt a
// started cycle, so a write is never left without its hook or rollback.
func (c *Cycle) Run(ctx context.Context) cycle.Result {
	ctx = context.WithoutCancel(ctx)

	outcome, err := c.run(ctx)
	if err != nil {
		return cycle.NewFailed(err)
	}

	if outcome == cycle.Updated {
		return cycle.NewUpdated()
	}

	return cycle.NewUnchanged()
}

// run walks the steps in order and stops at the first failure.
func (c *Cycle) run(ctx context.Context) (cycle.Outcome, error) {
	data, err := c.fetcher.Fetch(ctx, c.cfg.SourceURL, c.cfg.UserAgent)
	if err != nil {
		return cycle.Failed, fmt.Errorf("download configuration: %w", err)
	}

	if size := int64(len(data)); size < c.cfg.MinAcceptableSize {
		return cycle.Failed, fmt.Errorf("%w: %d bytes (minimum %d)", ErrPayloadTooSmall, size, c.cfg.MinAcceptableSize)
	}

	changed, err := c.repo.IsChanged(ctx, data)
	if err != nil {
		return cycle.Failed, fmt.Errorf("detect changes: %w", err)
	}

	if !changed {
		logger.Info(ctx, "Configuration unchanged, skipping update")
		return cycle.Unchanged, nil
	}

	if err = c.repo.EnsureDirectory(); err != nil {
		return cycle.Failed, fmt.Errorf("prepare directory: %w", err)
	}

	// Backup must finish before Commit, otherwise a rejected file cannot be rolled back.
	if err = c.repo.Backup(ctx); err != nil {
		return cycle.Failed, fmt.Errorf("back up configuration: %w", err)
	}

	if err = c.repo.Commit(ctx, data); err != nil {
		return cycle.Failed, fmt.Errorf("write configuration: %w", err)
	}

	return c.runPostUpdateHook(ctx)
}

// runPostUpdateHook runs the post-update hook and rolls back when it fails.
// A successful rollback still fails the cycle; a failed rollback leaves the
// new file in place and reports both errors.
func (c *Cycle) runPostUpdateHook(ctx context.Context) (cycle.Outcome, error) {
	_, err := c.hooks.Run(ctx, c.cfg.PostUpdateHook, c.repo.Path())
	if err == nil {
		return cycle.Updated, nil
	}

	hookErr := fmt.Errorf("post-update hook: %w", err)
	logger.ErrorKV(ctx, "Post-update hook failed, restoring backup", "error", err)

	if restoreErr := c.repo.RestoreFromBackup(ctx); restoreErr != nil {
		logger.ErrorKV(ctx, "Restoring backup failed", "error", restoreErr)
		return cycle.Failed, errors.Join(hookErr, fmt.Errorf("restore backup: %w", restoreErr))
	}

	return cycle.Failed, hookErr
}
