package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/oshokin/config-updater/internal/logger"
)

// EnvConfigPath is the only variable the runner adds to the hook environment.
const EnvConfigPath = "CONFIG_PATH"

// ErrHookFailed matches every FailureError.
var ErrHookFailed = errors.New("hook failed")

// Result describes a finished hook invocation.
type Result struct {
	// Path is the hook executable.
	Path string
	// Ran is false when the hook file does not exist.
	Ran bool
	// ExitCode is the process exit status, -1 when the process did not start.
	ExitCode int
	// Stdout is the captured standard output.
	Stdout string
	// Stderr is the captured standard error.
	Stderr string
}

// FailureError reports a hook that exited non-zero or could not be started.
type FailureError struct {
	// Path is the hook executable.
	Path string
	// ExitCode is the process exit status, -1 when the process did not start.
	ExitCode int
	// Stderr is the captured standard error, trimmed.
	Stderr string
	// Err is the underlying exec error.
	Err error
}

// Error implements error.
func (e *FailureError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "hook %s failed", e.Path)

	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " with exit code %d", e.ExitCode)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}

	return b.String()
}

// Unwrap exposes ErrHookFailed and the exec error to errors.Is/As.
func (e *FailureError) Unwrap() []error {
	return []error{ErrHookFailed, e.Err}
}

// Runner executes hooks with the inherited environment plus CONFIG_PATH.
type Runner struct {
	// permissionCheck reports why a hook looks non-executable; nil means it looks fine.
	permissionCheck func(path string) error
}

// NewRunner creates a Runner with the platform executable-bit check.
func NewRunner() *Runner {
	return &Runner{
		permissionCheck: checkExecutable,
	}
}

// Exists reports whether anything is present at the hook path. A directory
// counts, so a misprovisioned hook fails at spawn instead of being skipped.
func Exists(path string) bool {
	if path == "" {
		return false
	}

	_, err := os.Stat(path)

	return err == nil
}

// Run executes the hook at hookPath with CONFIG_PATH set to configPath.
// A missing hook returns a Result with Ran == false and no error.
// The child process is not tied to ctx cancellation and has no timeout.
func (r *Runner) Run(ctx context.Context, hookPath, configPath string) (*Result, error) {
	result := &Result{
		Path:     hookPath,
		ExitCode: -1,
	}

	if !Exists(hookPath) {
		logger.DebugKV(ctx, "Hook not present, skipping", "hook", hookPath)
		return result, nil
	}

	if err := r.permissionCheck(hookPath); err != nil {
		logger.WarnKV(ctx, "Hook permission check failed", "hook", hookPath, "error", err)
		logger.Warnf(ctx, "Run 'chmod +x %s' on the host and restart the container", hookPath)
	}

	var stdout, stderr bytes.Buffer

	//nolint:gosec // Hook paths come from the operator's configuration.
	cmd := exec.CommandContext(context.WithoutCancel(ctx), hookPath)
	cmd.Env = append(os.Environ(), EnvConfigPath+"="+configPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.InfoKV(ctx, "Running hook", "hook", hookPath)

	err := cmd.Run()

	result.Ran = true
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		return result, &FailureError{
			Path:     hookPath,
			ExitCode: result.ExitCode,
			Stderr:   strings.TrimSpace(result.Stderr),
			Err:      err,
		}
	}

	if output := strings.TrimSpace(result.Stdout); output != "" {
		logger.InfoKV(ctx, "Hook output", "hook", hookPath, "stdout", output)
	}

	return result, nil
}
