//go:build linux

package process_manage_linux

import (
	"errors"
	"fmt"
	"math"
	"time"

	"proctree/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// ProcessManager sends signals to processes and process trees
type ProcessManager struct {
	log *logger.Logger
}

// NewProcessManager creates a new ProcessManager instance
func NewProcessManager() *ProcessManager {
	return &ProcessManager{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-manage")),
	}
}

// KillProcess sends SIGKILL to a process
func (pm *ProcessManager) KillProcess(pid process.ProcessID) error {
	return pm.SendSignal(pid, unix.SIGKILL)
}

// TerminateProcess sends SIGTERM to a process
func (pm *ProcessManager) TerminateProcess(pid process.ProcessID) error {
	return pm.SendSignal(pid, unix.SIGTERM)
}

// SendSignal sends sig to pid. A process that is already gone is not an error.
func (pm *ProcessManager) SendSignal(pid process.ProcessID, sig unix.Signal) error {
	target, err := signalTarget(pid)
	if err != nil {
		return err
	}

	if err := unix.Kill(target, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return fmt.Errorf("failed to send signal %v to process %d: %w", sig, pid, err)
	}
	return nil
}

// ProcessExists checks if a process with the given PID exists
func (pm *ProcessManager) ProcessExists(pid process.ProcessID) bool {
	target, err := signalTarget(pid)
	if err != nil {
		return false
	}
	err = unix.Kill(target, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// signalTarget converts pid to the kernel's signed pid_t. Zero and values
// that would turn negative address process groups or every process, so
// they are refused.
func signalTarget(pid process.ProcessID) (int, error) {
	if pid == 0 || uint64(pid) > math.MaxInt32 {
		return 0, fmt.Errorf("refusing to signal pid %d", pid)
	}
	return int(pid), nil
}

// KillProcessTree signals every process of root, children before their
// parent so that nothing gets reparented to init half way through.
func (pm *ProcessManager) KillProcessTree(root *process.ProcessTreeNode, sig unix.Signal) error {
	var errs error
	for _, node := range root.PostOrder() {
		pm.log.Debugln("Signalling process", node.PID, node.Name, "with", sig)
		if err := pm.SendSignal(node.PID, sig); err != nil {
			// keep going with the rest of the tree
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// WaitClose waits until pid disappears or until timeout.
// Returns true if the process exited within the timeout.
func (pm *ProcessManager) WaitClose(pid process.ProcessID, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	tick := 25 * time.Millisecond
	for {
		if !pm.ProcessExists(pid) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(tick)
		// back off up to 250ms
		if tick < 250*time.Millisecond {
			tick += 10 * time.Millisecond
		}
	}
}

// ParseSignal maps a signal name such as "TERM", "SIGKILL" or "9" to a signal
func ParseSignal(name string) (unix.Signal, error) {
	if sig := unix.SignalNum(name); sig != 0 {
		return sig, nil
	}
	if sig := unix.SignalNum("SIG" + name); sig != 0 {
		return sig, nil
	}
	var n int
	if _, err := fmt.Sscanf(name, "%d", &n); err == nil && n > 0 && unix.SignalName(unix.Signal(n)) != "" {
		return unix.Signal(n), nil
	}
	return 0, fmt.Errorf("unknown signal %q", name)
}
