package process

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider tracks how many snapshots were opened and closed
type countingProvider struct {
	records []ProcessRecord
	openErr error
	iterErr error
	opened  int
	closed  int
}

func (p *countingProvider) Open() (Snapshot, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.opened++
	return &countingSnapshot{p: p, pos: -1}, nil
}

type countingSnapshot struct {
	p   *countingProvider
	pos int
	err error
}

func (s *countingSnapshot) Next() bool {
	if s.pos+1 >= len(s.p.records) {
		s.err = s.p.iterErr
		return false
	}
	s.pos++
	return true
}

func (s *countingSnapshot) Record() ProcessRecord { return s.p.records[s.pos] }
func (s *countingSnapshot) Err() error            { return s.err }
func (s *countingSnapshot) Close() error {
	s.p.closed++
	return nil
}

var table = []ProcessRecord{
	{PID: 1, PPID: 0, Name: "init"},
	{PID: 2, PPID: 1, Name: "shell"},
	{PID: 3, PPID: 2, Name: "editor"},
}

func TestScanClosesAfterFullPass(t *testing.T) {
	p := &countingProvider{records: table}

	var seen []ProcessID
	err := Scan(p, func(rec ProcessRecord) bool {
		seen = append(seen, rec.PID)
		return true
	})

	require.NoError(t, err)
	assert.Equal(t, []ProcessID{1, 2, 3}, seen)
	assert.Equal(t, 1, p.opened)
	assert.Equal(t, 1, p.closed)
}

func TestScanClosesOnEarlyStop(t *testing.T) {
	p := &countingProvider{records: table}

	var seen int
	err := Scan(p, func(rec ProcessRecord) bool {
		seen++
		return rec.PID != 1
	})

	require.NoError(t, err)
	assert.Equal(t, 1, seen)
	assert.Equal(t, 1, p.closed)
}

func TestScanClosesOnPanic(t *testing.T) {
	p := &countingProvider{records: table}

	assert.Panics(t, func() {
		_ = Scan(p, func(ProcessRecord) bool { panic("boom") })
	})
	assert.Equal(t, 1, p.closed)
}

func TestScanOpenFailure(t *testing.T) {
	denied := errors.New("access denied")
	p := &countingProvider{openErr: denied}

	err := Scan(p, func(ProcessRecord) bool { return true })

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapshotUnavailable)
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, 0, p.closed)
}

func TestScanIterationFailure(t *testing.T) {
	broken := errors.New("handle invalidated")
	p := &countingProvider{records: table, iterErr: broken}

	var seen int
	err := Scan(p, func(ProcessRecord) bool {
		seen++
		return true
	})

	assert.ErrorIs(t, err, ErrSnapshotUnavailable)
	assert.ErrorIs(t, err, broken)
	assert.Equal(t, 3, seen)
	assert.Equal(t, 1, p.closed)
}

func TestCollect(t *testing.T) {
	records, err := Collect(NewStaticProvider(table))
	require.NoError(t, err)
	assert.Equal(t, table, records)
}

func TestStaticProviderIsImmutable(t *testing.T) {
	src := []ProcessRecord{{PID: 7, PPID: 1, Name: "cron"}}
	p := NewStaticProvider(src)
	src[0].Name = "changed"

	records, err := Collect(p)
	require.NoError(t, err)
	assert.Equal(t, "cron", records[0].Name)

	got := p.Records()
	got[0].Name = "changed again"
	assert.Equal(t, "cron", p.Records()[0].Name)
}

func TestStaticSnapshotCloseTwice(t *testing.T) {
	p := NewStaticProvider(table)
	snap, err := p.Open()
	require.NoError(t, err)

	require.NoError(t, snap.Close())
	assert.ErrorIs(t, snap.Close(), ErrSnapshotClosed)
	assert.False(t, snap.Next())
	assert.Equal(t, 1, p.Opens())
}
