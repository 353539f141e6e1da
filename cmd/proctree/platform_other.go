//go:build !linux && !windows

package main

import (
	"context"
	"fmt"

	"proctree/process"
	"proctree/process_portable"
)

func platformProvider(name, _ string) (process.SnapshotProvider, error) {
	switch name {
	case "", "auto":
		return process_portable.NewProvider(context.Background()), nil
	default:
		return nil, fmt.Errorf("provider %q is not available on this platform", name)
	}
}

// killTree sends SIGKILL through gopsutil; other signals are not supported
func killTree(ctx context.Context, root *process.ProcessTreeNode, _ string) error {
	return process_portable.KillProcessTree(ctx, root)
}
