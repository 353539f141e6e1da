//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"proctree/process"
)

// ListByName returns all processes whose comm or exe basename equals name,
// lowest PID first. comm is truncated by the kernel to 15 bytes, the exe
// basename is not. Matching is case-sensitive (like pidof).
func (p *ProcfsProvider) ListByName(name string) ([]process.ProcessRecord, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", process.ErrSnapshotUnavailable, p.mountPoint, err)
	}

	var out []process.ProcessRecord
	for _, proc := range procs {
		rec, err := readRecord(proc)
		if err != nil {
			continue // gone, not readable or out of range
		}

		if rec.Name == name {
			out = append(out, rec)
			continue
		}

		// may fail for zombies, kernel threads or missing permission
		exe, _ := proc.Executable()
		if exe != "" && filepath.Base(exe) == name {
			rec.Name = filepath.Base(exe)
			out = append(out, rec)
		}
	}

	slices.SortFunc(out, func(a, b process.ProcessRecord) int {
		return int(int64(a.PID) - int64(b.PID))
	})
	return out, nil
}

// OneByName returns the first match for name (lowest PID), or ErrProcessNotFound
func (p *ProcfsProvider) OneByName(name string) (*process.ProcessRecord, error) {
	ps, err := p.ListByName(name)
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, fmt.Errorf("%w: no process named %q", process.ErrProcessNotFound, name)
	}
	return &ps[0], nil
}
