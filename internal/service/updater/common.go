package updater

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/config-updater/internal/fingerprint"
	"github.com/oshokin/config-updater/internal/logger"
)

const (
	// markerPrefix starts the name of every instance marker file.
	markerPrefix = "config-updater-"

	// markerFileMode is used for the instance marker.
	markerFileMode os.FileMode = 0o644
)

var errUpdaterAlreadyRunning = errors.New("another updater already manages this configuration")

// instanceMarker records the PID of the updater managing one configuration path,
// so two updaters never write the same file.
type instanceMarker struct {
	// path is the marker file.
	path string
	// isRunning reports whether pid belongs to a live updater other than us.
	isRunning func(pid int) bool
}

// newInstanceMarker returns the marker for localPath inside the temporary directory.
func newInstanceMarker(localPath string) *instanceMarker {
	absolute, err := filepath.Abs(localPath)
	if err != nil {
		absolute = filepath.Clean(localPath)
	}

	name := markerPrefix + fingerprint.Sum([]byte(absolute)).Short() + ".pid"

	return &instanceMarker{
		path:      filepath.Join(os.TempDir(), name),
		isRunning: isUpdaterProcess,
	}
}

// acquire writes our PID into the marker unless a live updater already owns it.
// Markers left behind by dead processes are replaced.
func (m *instanceMarker) acquire(ctx context.Context) error {
	contents, err := os.ReadFile(m.path)

	switch {
	case err == nil:
		pid, convErr := strconv.Atoi(strings.TrimSpace(string(contents)))
		if convErr == nil && m.isRunning(pid) {
			return fmt.Errorf("pid %d, marker %s: %w", pid, m.path, errUpdaterAlreadyRunning)
		}

		logger.InfoKV(ctx, "Replacing stale instance marker", "marker", m.path)
	case errors.Is(err, fs.ErrNotExist):
	default:
		logger.WarnKV(ctx, "Unable to read instance marker", "marker", m.path, "error", err)
	}

	pid := strconv.Itoa(os.Getpid())
	if err = os.WriteFile(m.path, []byte(pid+"\n"), markerFileMode); err != nil {
		return fmt.Errorf("write instance marker: %w", err)
	}

	return nil
}

// release removes the marker if it still holds our PID.
func (m *instanceMarker) release(ctx context.Context) {
	contents, err := os.ReadFile(m.path)
	if err != nil {
		return
	}

	if strings.TrimSpace(string(contents)) != strconv.Itoa(os.Getpid()) {
		return
	}

	if err = os.Remove(m.path); err != nil {
		logger.WarnKV(ctx, "Unable to remove instance marker", "marker", m.path, "error", err)
	}
}

// isUpdaterProcess reports whether pid is a live process running the same
// executable as this one. Our own PID never counts, so a restarted container
// that got the same PID reclaims its marker.
func isUpdaterProcess(pid int) bool {
	if pid <= 0 || pid == os.Getpid() {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return false
	}

	return process.Executable() == executableName()
}

// executableName returns the process name of this updater as the process table reports it.
func executableName() string {
	self, err := ps.FindProcess(os.Getpid())
	if err == nil && self != nil {
		return self.Executable()
	}

	path, err := os.Executable()
	if err != nil {
		return ""
	}

	return filepath.Base(path)
}
