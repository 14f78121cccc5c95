//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning indicates another process with the same executable name
// already owns the camera.
var ErrAlreadyRunning = errors.New("another instance is already running")

// ProcessLister returns the running processes.
type ProcessLister func() ([]ps.Process, error)

// EnsureSingleInstance fails when another process named like the current
// executable is running. lister defaults to ps.Processes.
func EnsureSingleInstance(lister ProcessLister) error {
	if lister == nil {
		lister = ps.Processes
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	return ensureSingle(lister, filepath.Base(executable), os.Getpid())
}

func ensureSingle(lister ProcessLister, name string, selfPID int) error {
	processList, err := lister()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == selfPID {
			continue
		}

		if strings.EqualFold(process.Executable(), name) {
			return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, process.Pid())
		}
	}

	return nil
}
