package configfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/config-updater/internal/fingerprint"
	"github.com/oshokin/config-updater/internal/logger"
)

// Repository defines the operations an update cycle performs on the local copy.
type Repository interface {
	Path() string
	Exists() bool
	Read() ([]byte, error)
	IsChanged(ctx context.Context, data []byte) (bool, error)
	EnsureDirectory() error
	Backup(ctx context.Context) error
	Commit(ctx context.Context, data []byte) error
	RestoreFromBackup(ctx context.Context) error
}

const (
	// BackupSuffix is appended to the managed path to name the backup file.
	BackupSuffix = ".bak"

	// DefaultFileMode is used for configuration files that do not exist yet.
	DefaultFileMode os.FileMode = 0o644

	// directoryMode is used for missing parent directories.
	directoryMode os.FileMode = 0o755
)

var (
	// ErrIO marks filesystem failures while reading, backing up or writing.
	ErrIO = errors.New("configuration file i/o failed")
	// ErrBackupMissing is returned when a restore is requested without a backup.
	ErrBackupMissing = errors.New("backup file not found")

	errChecksumMismatch = errors.New("written contents do not match the downloaded fingerprint")
)

// FileRepository stores the configuration at a fixed path with a ".bak" sibling.
type FileRepository struct {
	// path is the managed configuration file.
	path string
	// backupPath is path + BackupSuffix.
	backupPath string
}

// NewFileRepository creates a repository for the configuration at path.
func NewFileRepository(path string) *FileRepository {
	cleaned := filepath.Clean(path)

	return &FileRepository{
		path:       cleaned,
		backupPath: cleaned + BackupSuffix,
	}
}

// Path returns the managed configuration file.
func (r *FileRepository) Path() string {
	return r.path
}

// BackupPath returns the backup file location.
func (r *FileRepository) BackupPath() string {
	return r.backupPath
}

// Exists reports whether a file is present at the managed path.
func (r *FileRepository) Exists() bool {
	return fileExists(r.path)
}

// Read returns the current contents of the managed file.
func (r *FileRepository) Read() ([]byte, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, r.path, err)
	}

	return contents, nil
}

// IsChanged reports whether data should replace the stored configuration.
// A missing or empty local file always counts as changed.
func (r *FileRepository) IsChanged(ctx context.Context, data []byte) (bool, error) {
	if !r.Exists() {
		logger.DebugKV(ctx, "No local configuration yet", "path", r.path)
		return true, nil
	}

	current, err := r.Read()
	if err != nil {
		return false, err
	}

	if len(current) == 0 {
		logger.DebugKV(ctx, "Local configuration is empty", "path", r.path)
		return true, nil
	}

	currentDigest := fingerprint.Sum(current)
	newDigest := fingerprint.Sum(data)

	if currentDigest.Equal(newDigest) {
		return false, nil
	}

	logger.Infof(ctx, "Configuration changed: %s -> %s", currentDigest.Short(), newDigest.Short())

	return true, nil
}

// EnsureDirectory creates the missing parents of the managed file.
func (r *FileRepository) EnsureDirectory() error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, directoryMode); err != nil {
		return fmt.Errorf("%w: create directory %s: %w", ErrIO, dir, err)
	}

	return nil
}

// Backup copies the managed file over the backup, keeping one generation.
// It does nothing when the managed file does not exist yet.
func (r *FileRepository) Backup(ctx context.Context) error {
	src, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.DebugKV(ctx, "Nothing to back up", "path", r.path)
			return nil
		}

		return fmt.Errorf("%w: open %s: %w", ErrIO, r.path, err)
	}

	defer func() {
		_ = src.Close()
	}()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrIO, r.path, err)
	}

	dst, err := os.OpenFile(r.backupPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("%w: create backup %s: %w", ErrIO, r.backupPath, err)
	}

	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(r.backupPath)

		return fmt.Errorf("%w: copy to backup %s: %w", ErrIO, r.backupPath, err)
	}

	if err = dst.Close(); err != nil {
		return fmt.Errorf("%w: close backup %s: %w", ErrIO, r.backupPath, err)
	}

	logger.DebugKV(ctx, "Configuration backed up", "backup", r.backupPath)

	return nil
}

// Commit atomically replaces the managed file with data.
func (r *FileRepository) Commit(ctx context.Context, data []byte) error {
	if err := r.replace(data); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Configuration written", "path", r.path)

	return nil
}

// RestoreFromBackup puts the backup contents back over the managed file.
// The backup itself is kept.
func (r *FileRepository) RestoreFromBackup(ctx context.Context) error {
	if !fileExists(r.backupPath) {
		return fmt.Errorf("%s: %w", r.backupPath, ErrBackupMissing)
	}

	contents, err := os.ReadFile(r.backupPath)
	if err != nil {
		return fmt.Errorf("%w: read backup %s: %w", ErrIO, r.backupPath, err)
	}

	if err = r.replace(contents); err != nil {
		return err
	}

	logger.WarnKV(ctx, "Configuration restored from backup", "path", r.path, "backup", r.backupPath)

	return nil
}

// replace writes data to a sibling temporary file, verifies what landed on
// disk against the fingerprint of data and renames it over the managed path.
// The single rename means readers see either the old or the new contents,
// never a missing or partial file.
func (r *FileRepository) replace(data []byte) error {
	mode := DefaultFileMode

	info, err := os.Stat(r.path)

	switch {
	case err == nil:
		mode = info.Mode().Perm()
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("%w: stat %s: %w", ErrIO, r.path, err)
	}

	// Fails before anything is written when the directory is not writable.
	preflight := goupdate.Options{TargetPath: r.path, TargetMode: mode}
	if err = preflight.CheckPermissions(); err != nil {
		return fmt.Errorf("%w: check permissions %s: %w", ErrIO, r.path, err)
	}

	tmpPath, err := r.writeTemp(data, mode)
	if err != nil {
		return err
	}

	if err = os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("%w: rename %s: %w", ErrIO, r.path, err)
	}

	return nil
}

// writeTemp stores data in a synced temporary file next to the managed path
// and returns its name. The file is removed on any failure.
func (r *FileRepository) writeTemp(data []byte, mode os.FileMode) (tmpPath string, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), "."+filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temporary file for %s: %w", ErrIO, r.path, err)
	}

	tmpPath = tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: write %s: %w", ErrIO, tmpPath, err)
	}

	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("%w: sync %s: %w", ErrIO, tmpPath, err)
	}

	if err = tmp.Chmod(mode); err != nil {
		return "", fmt.Errorf("%w: chmod %s: %w", ErrIO, tmpPath, err)
	}

	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close %s: %w", ErrIO, tmpPath, err)
	}

	written, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("%w: read back %s: %w", ErrIO, tmpPath, err)
	}

	if !fingerprint.Sum(written).Equal(fingerprint.Sum(data)) {
		err = fmt.Errorf("%w: %s: %w", ErrIO, tmpPath, errChecksumMismatch)

		return "", err
	}

	return tmpPath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
