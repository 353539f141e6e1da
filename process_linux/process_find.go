//go:build linux

package process_linux

import (
	"fmt"
	"math"

	"proctree/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/prometheus/procfs"
)

// ProcfsProvider implements process.SnapshotProvider by reading a procfs mount
type ProcfsProvider struct {
	fs         procfs.FS
	mountPoint string
	log        *logger.Logger
}

var _ process.SnapshotProvider = (*ProcfsProvider)(nil)

// NewProvider creates a provider for the procfs mounted at mountPoint,
// /proc when empty
func NewProvider(mountPoint string) (*ProcfsProvider, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}

	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: procfs at %s: %w", process.ErrSnapshotUnavailable, mountPoint, err)
	}

	return &ProcfsProvider{
		fs:         fs,
		mountPoint: mountPoint,
		log:        logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "procfs")),
	}, nil
}

// MountPoint returns the procfs root read by the provider
func (p *ProcfsProvider) MountPoint() string {
	return p.mountPoint
}

// Open lists the PID directories of the mount. Status files are read lazily
// while iterating, so processes that exit in between are skipped.
func (p *ProcfsProvider) Open() (process.Snapshot, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p.mountPoint, err)
	}
	return &procfsSnapshot{procs: procs, pos: -1, log: p.log}, nil
}

type procfsSnapshot struct {
	procs  procfs.Procs
	pos    int
	cur    process.ProcessRecord
	closed bool
	log    *logger.Logger
}

func (s *procfsSnapshot) Next() bool {
	for !s.closed && s.pos+1 < len(s.procs) {
		s.pos++
		proc := s.procs[s.pos]

		rec, err := readRecord(proc)
		if err != nil {
			// Process may have terminated while we were reading
			s.log.Debugln("skipping pid", proc.PID, ":", err)
			continue
		}

		s.cur = rec
		return true
	}
	return false
}

// readRecord reads the stat file of proc. PIDs that do not fit a ProcessID
// are rejected.
func readRecord(proc procfs.Proc) (process.ProcessRecord, error) {
	if proc.PID <= 0 || uint64(proc.PID) > math.MaxUint32 {
		return process.ProcessRecord{}, fmt.Errorf("pid %d out of range", proc.PID)
	}

	stat, err := proc.Stat()
	if err != nil {
		return process.ProcessRecord{}, err
	}

	return process.ProcessRecord{
		PID:  process.ProcessID(proc.PID),
		PPID: process.ProcessID(stat.PPID),
		Name: stat.Comm,
	}, nil
}

func (s *procfsSnapshot) Record() process.ProcessRecord {
	return s.cur
}

func (s *procfsSnapshot) Err() error {
	return nil
}

func (s *procfsSnapshot) Close() error {
	if s.closed {
		return process.ErrSnapshotClosed
	}
	s.closed = true
	s.procs = nil
	return nil
}
