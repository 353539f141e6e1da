//go:build linux

package main

import (
	"context"
	"fmt"

	"proctree/process"
	"proctree/process_linux"
	"proctree/process_manage_linux"
)

func platformProvider(name, procRoot string) (process.SnapshotProvider, error) {
	switch name {
	case "", "auto", "procfs":
		return process_linux.NewProvider(procRoot)
	default:
		return nil, fmt.Errorf("provider %q is not available on linux", name)
	}
}

func killTree(_ context.Context, root *process.ProcessTreeNode, signal string) error {
	sig, err := process_manage_linux.ParseSignal(signal)
	if err != nil {
		return err
	}
	return process_manage_linux.NewProcessManager().KillProcessTree(root, sig)
}
