package hook

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

// executableBits are the owner, group and other execute permissions.
const executableBits os.FileMode = 0o111

// errNotExecutable is reported when no execute bit is set on a hook.
var errNotExecutable = errors.New("hook has no execute permission")

// checkExecutable is an advisory check; Windows has no execute bit, so it always passes there.
func checkExecutable(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("read hook metadata: %w", err)
	}

	if info.Mode().Perm()&executableBits == 0 {
		return fmt.Errorf("%s: %w", path, errNotExecutable)
	}

	return nil
}
