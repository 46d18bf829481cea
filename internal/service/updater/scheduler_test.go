package updater

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/config-updater/internal/domain/cycle"
)

// scriptedRunner returns results in order and cancels the loop after the last one.
type scriptedRunner struct {
	mu      sync.Mutex
	results []cycle.Result
	starts  []time.Time
	ends    []time.Time
	active  int
	overlap bool
	cancel  context.CancelFunc
	work    time.Duration
}

func (r *scriptedRunner) Run(_ context.Context) cycle.Result {
	r.mu.Lock()
	r.active++
	r.overlap = r.overlap || r.active > 1
	n := len(r.starts)
	r.starts = append(r.starts, time.Now())
	r.mu.Unlock()

	time.Sleep(r.work)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.active--
	r.ends = append(r.ends, time.Now())

	if n == len(r.results)-1 {
		r.cancel()
	}

	return r.results[n]
}

func newScheduler(t *testing.T, runner CycleRunner, hooks HookRunner, interval time.Duration) *Scheduler {
	t.Helper()

	cfg := testConfig(t, 0)
	cfg.PollInterval = interval

	return NewScheduler(runner, hooks, cfg)
}

// TestScheduler_RunsSequentially checks ordering, the error-hook policy and clean shutdown.
func TestScheduler_RunsSequentially(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &scriptedRunner{
		results: []cycle.Result{
			cycle.NewUpdated(),
			cycle.NewFailed(ErrPayloadTooSmall),
			cycle.NewUnchanged(),
			cycle.NewFailed(errors.New("network down")),
		},
		cancel: cancel,
		work:   5 * time.Millisecond,
	}
	hooks := &fakeHooks{failures: map[string]error{
		testErrorHook: errors.New("error hook broken"),
	}}

	err := newScheduler(t, runner, hooks, 10*time.Millisecond).Run(ctx)
	require.NoError(t, err)

	require.Len(t, runner.starts, 4)
	require.False(t, runner.overlap)
	require.Equal(t, []string{testErrorHook, testErrorHook}, hooks.Calls())
}

// TestScheduler_WaitsFullInterval checks that the next cycle starts a full interval after the previous one ended.
func TestScheduler_WaitsFullInterval(t *testing.T) {
	t.Parallel()

	const interval = 40 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &scriptedRunner{
		results: []cycle.Result{cycle.NewUnchanged(), cycle.NewUnchanged(), cycle.NewUnchanged()},
		cancel:  cancel,
		work:    2 * interval,
	}

	started := time.Now()
	require.NoError(t, newScheduler(t, runner, &fakeHooks{}, interval).Run(ctx))

	require.Less(t, runner.starts[0].Sub(started), interval, "first cycle runs immediately")

	for i := 1; i < len(runner.starts); i++ {
		require.GreaterOrEqual(t, runner.starts[i].Sub(runner.ends[i-1]), interval)
	}
}

// TestScheduler_CancelledBeforeStart checks that no cycle runs on a cancelled context.
func TestScheduler_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &scriptedRunner{results: []cycle.Result{cycle.NewUnchanged()}, cancel: cancel}

	require.NoError(t, newScheduler(t, runner, &fakeHooks{}, time.Hour).Run(ctx))
	require.Empty(t, runner.starts)
}

// TestScheduler_StopsWhileWaiting checks that cancellation during the pause ends the loop.
func TestScheduler_StopsWhileWaiting(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	runner := &scriptedRunner{
		results: []cycle.Result{cycle.NewUnchanged(), cycle.NewUnchanged()},
		cancel:  func() {},
	}

	go func() {
		done <- newScheduler(t, runner, &fakeHooks{}, time.Hour).Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()

	require.Len(t, runner.starts, 1)
}

type panickingRunner struct{}

func (panickingRunner) Run(context.Context) cycle.Result {
	panic("corrupted state")
}

// TestScheduler_Panic checks that a panic ends the loop with ErrSchedulerPanicked.
func TestScheduler_Panic(t *testing.T) {
	t.Parallel()

	err := newScheduler(t, panickingRunner{}, &fakeHooks{}, time.Hour).Run(context.Background())
	require.ErrorIs(t, err, ErrSchedulerPanicked)
	require.Contains(t, err.Error(), "corrupted state")
}
