//go:build windows

package main

import (
	"context"
	"fmt"

	"proctree/process"
	"proctree/process_windows"
)

// exit code given to terminated processes
const killExitCode = 1

func platformProvider(name, _ string) (process.SnapshotProvider, error) {
	switch name {
	case "", "auto", "toolhelp":
		return process_windows.NewProvider(), nil
	default:
		return nil, fmt.Errorf("provider %q is not available on windows", name)
	}
}

// killTree terminates the tree; windows has no signals so signal is ignored
func killTree(_ context.Context, root *process.ProcessTreeNode, _ string) error {
	return process_windows.KillProcessTree(root, killExitCode)
}
