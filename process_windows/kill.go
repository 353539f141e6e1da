//go:build windows

package process_windows

import (
	"errors"
	"fmt"

	"proctree/process"

	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

// TerminateProcess terminates pid with exitCode. A process that is already
// gone is not an error.
func TerminateProcess(pid process.ProcessID, exitCode uint32) error {
	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE|windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			// no such process
			return nil
		}
		return fmt.Errorf("OpenProcess %d failed: %w", pid, err)
	}
	defer windows.CloseHandle(handle)

	if err := windows.TerminateProcess(handle, exitCode); err != nil {
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) && exited(handle) {
			return nil
		}
		return fmt.Errorf("TerminateProcess %d failed: %w", pid, err)
	}
	return nil
}

// exited reports whether the process behind handle has already finished
func exited(handle windows.Handle) bool {
	event, err := windows.WaitForSingleObject(handle, 0)
	return err == nil && event == windows.WAIT_OBJECT_0
}

// KillProcessTree terminates every process of root, children first
func KillProcessTree(root *process.ProcessTreeNode, exitCode uint32) error {
	var errs error
	for _, node := range root.PostOrder() {
		errs = multierr.Append(errs, TerminateProcess(node.PID, exitCode))
	}
	return errs
}
