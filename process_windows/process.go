//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"unsafe"

	"proctree/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

// ToolhelpProvider implements process.SnapshotProvider with
// CreateToolhelp32Snapshot. Every Open takes a new system snapshot.
type ToolhelpProvider struct {
	log *logger.Logger
}

var _ process.SnapshotProvider = (*ToolhelpProvider)(nil)

// NewProvider creates a ToolhelpProvider
func NewProvider() *ToolhelpProvider {
	return &ToolhelpProvider{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "toolhelp")),
	}
}

func (p *ToolhelpProvider) Open() (process.Snapshot, error) {
	handle, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot failed: %w", err)
	}
	return &toolhelpSnapshot{handle: handle, log: p.log}, nil
}

// toolhelpSnapshot owns one snapshot handle
type toolhelpSnapshot struct {
	handle  windows.Handle
	entry   windows.ProcessEntry32
	started bool
	done    bool
	err     error
	closed  bool
	log     *logger.Logger
}

func (s *toolhelpSnapshot) Next() bool {
	if s.done || s.closed {
		return false
	}

	s.entry.Size = uint32(unsafe.Sizeof(s.entry))

	var err error
	if !s.started {
		s.started = true
		err = windows.Process32First(s.handle, &s.entry)
	} else {
		err = windows.Process32Next(s.handle, &s.entry)
	}

	if err != nil {
		s.done = true
		if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
			s.err = err
		}
		return false
	}
	return true
}

func (s *toolhelpSnapshot) Record() process.ProcessRecord {
	return process.ProcessRecord{
		PID:  process.ProcessID(s.entry.ProcessID),
		PPID: process.ProcessID(s.entry.ParentProcessID),
		Name: windows.UTF16ToString(s.entry.ExeFile[:]),
	}
}

func (s *toolhelpSnapshot) Err() error {
	return s.err
}

// Close releases the handle. Only the first call reaches CloseHandle.
func (s *toolhelpSnapshot) Close() error {
	if s.closed {
		return process.ErrSnapshotClosed
	}
	s.closed = true
	if err := windows.CloseHandle(s.handle); err != nil {
		s.log.Warn("Failed to close snapshot handle: ", err)
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}
