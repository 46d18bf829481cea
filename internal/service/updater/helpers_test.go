package updater

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/config-updater/internal/config"
	"github.com/oshokin/config-updater/internal/repository/configfile"
	"github.com/oshokin/config-updater/internal/service/hook"
)

const (
	testPostHook  = "/hooks/post-update"
	testErrorHook = "/hooks/on-error"
)

// fakeFetcher returns canned payloads in order; the last one repeats.
type fakeFetcher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
	calls    int
	ctxErrs  []error
}

func (f *fakeFetcher) Fetch(ctx context.Context, _, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.ctxErrs = append(f.ctxErrs, ctx.Err())

	if f.err != nil {
		return nil, f.err
	}

	idx := min(f.calls-1, len(f.payloads)-1)

	return f.payloads[idx], nil
}

// fakeHooks records invocations and fails the hooks listed in failures.
type fakeHooks struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]error
}

func (h *fakeHooks) Run(_ context.Context, hookPath, _ string) (*hook.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls = append(h.calls, hookPath)

	if err := h.failures[hookPath]; err != nil {
		return &hook.Result{Path: hookPath, Ran: true, ExitCode: 1}, err
	}

	return &hook.Result{Path: hookPath, Ran: true}, nil
}

func (h *fakeHooks) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string(nil), h.calls...)
}

// spyRepository counts the mutating calls made on a real FileRepository.
type spyRepository struct {
	*configfile.FileRepository

	ensures  int
	backups  int
	commits  int
	restores int
}

func (s *spyRepository) EnsureDirectory() error {
	s.ensures++
	return s.FileRepository.EnsureDirectory()
}

func (s *spyRepository) Backup(ctx context.Context) error {
	s.backups++
	return s.FileRepository.Backup(ctx)
}

func (s *spyRepository) Commit(ctx context.Context, data []byte) error {
	s.commits++
	return s.FileRepository.Commit(ctx, data)
}

func (s *spyRepository) RestoreFromBackup(ctx context.Context) error {
	s.restores++
	return s.FileRepository.RestoreFromBackup(ctx)
}

func testConfig(t *testing.T, minSize int64) *config.Config {
	t.Helper()

	return &config.Config{
		SourceURL:         "https://example.test/c.yaml",
		LocalPath:         filepath.Join(t.TempDir(), "config", "config.yaml"),
		PollInterval:      10 * time.Millisecond,
		MinAcceptableSize: minSize,
		UserAgent:         "config-updater/test",
		PostUpdateHook:    testPostHook,
		OnErrorHook:       testErrorHook,
		LogLevel:          "info",
	}
}

func seedFile(t *testing.T, path string, contents []byte) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, contents, 0o644))
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	return contents
}
