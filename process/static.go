package process

import "sync/atomic"

// StaticProvider serves a fixed process table. Every pass yields the same
// records in the same order, which makes tree construction deterministic.
type StaticProvider struct {
	records []ProcessRecord
	opens   atomic.Int64
}

// NewStaticProvider copies records into a new provider
func NewStaticProvider(records []ProcessRecord) *StaticProvider {
	cp := make([]ProcessRecord, len(records))
	copy(cp, records)
	return &StaticProvider{records: cp}
}

// Open starts a new pass over the table
func (p *StaticProvider) Open() (Snapshot, error) {
	p.opens.Add(1)
	return &staticSnapshot{records: p.records, pos: -1}, nil
}

// Opens returns how many passes have been opened so far
func (p *StaticProvider) Opens() int {
	return int(p.opens.Load())
}

// Records returns a copy of the table
func (p *StaticProvider) Records() []ProcessRecord {
	cp := make([]ProcessRecord, len(p.records))
	copy(cp, p.records)
	return cp
}

type staticSnapshot struct {
	records []ProcessRecord
	pos     int
	closed  bool
}

func (s *staticSnapshot) Next() bool {
	if s.closed || s.pos+1 >= len(s.records) {
		return false
	}
	s.pos++
	return true
}

func (s *staticSnapshot) Record() ProcessRecord {
	if s.pos < 0 || s.pos >= len(s.records) {
		return ProcessRecord{}
	}
	return s.records[s.pos]
}

func (s *staticSnapshot) Err() error {
	return nil
}

func (s *staticSnapshot) Close() error {
	if s.closed {
		return ErrSnapshotClosed
	}
	s.closed = true
	return nil
}
