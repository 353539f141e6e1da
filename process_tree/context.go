package process_tree

import (
	"context"

	"proctree/process"
)

// BuildContext runs Build on its own goroutine and waits for it or for ctx.
// A query cannot be interrupted once started: when ctx ends first the query
// keeps running in the background and its result is dropped.
func (b *Builder) BuildContext(ctx context.Context, rootPID process.ProcessID) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	done := make(chan Report, 1)
	go func() {
		done <- b.Build(rootPID)
	}()

	select {
	case r := <-done:
		return r, nil
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
}

// GetProcessTreeContext is GetProcessTree bounded by ctx
func (b *Builder) GetProcessTreeContext(ctx context.Context, rootPID process.ProcessID) (*process.ProcessTreeNode, bool, error) {
	r, err := b.BuildContext(ctx, rootPID)
	if err != nil {
		return nil, false, err
	}
	return r.Root, r.Found, nil
}
