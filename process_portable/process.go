// Package process_portable enumerates processes with gopsutil, on every
// platform gopsutil supports.
package process_portable

import (
	"context"
	"errors"
	"fmt"

	proc "proctree/process"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/multierr"
)

// Provider implements process.SnapshotProvider on top of gopsutil
type Provider struct {
	ctx context.Context
}

// NewProvider creates a Provider; ctx bounds the gopsutil calls
func NewProvider(ctx context.Context) *Provider {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Provider{ctx: ctx}
}

func (p *Provider) Open() (proc.Snapshot, error) {
	procs, err := process.ProcessesWithContext(p.ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	return &snapshot{ctx: p.ctx, procs: procs, pos: -1}, nil
}

type snapshot struct {
	ctx    context.Context
	procs  []*process.Process
	pos    int
	cur    proc.ProcessRecord
	err    error
	closed bool
}

func (s *snapshot) Next() bool {
	for !s.closed && s.pos+1 < len(s.procs) {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return false
		}

		s.pos++
		p := s.procs[s.pos]

		ppid, err := p.PpidWithContext(s.ctx)
		if err != nil {
			// exited since the listing, or not accessible
			continue
		}
		name, err := p.NameWithContext(s.ctx)
		if err != nil {
			continue
		}

		s.cur = proc.ProcessRecord{
			PID:  proc.ProcessID(p.Pid),
			PPID: proc.ProcessID(ppid),
			Name: name,
		}
		return true
	}
	return false
}

func (s *snapshot) Record() proc.ProcessRecord {
	return s.cur
}

func (s *snapshot) Err() error {
	return s.err
}

func (s *snapshot) Close() error {
	if s.closed {
		return proc.ErrSnapshotClosed
	}
	s.closed = true
	s.procs = nil
	return nil
}

// KillProcessTree kills every process of root, children first. Processes
// that are already gone are skipped.
func KillProcessTree(ctx context.Context, root *proc.ProcessTreeNode) error {
	var errs error
	for _, node := range root.PostOrder() {
		p, err := process.NewProcessWithContext(ctx, int32(node.PID))
		if err != nil {
			if errors.Is(err, process.ErrorProcessNotRunning) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("find %d: %w", node.PID, err))
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			if running, _ := p.IsRunningWithContext(ctx); !running {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("kill %d: %w", node.PID, err))
		}
	}
	return errs
}
