package process

import "fmt"

// SnapshotProvider opens point-in-time enumerations of the process table.
// Every call to Open starts a new forward-only pass; snapshots cannot be
// rewound.
type SnapshotProvider interface {
	Open() (Snapshot, error)
}

// Snapshot is a single forward pass over the process table.
//
// Next advances to the following record and reports whether there is one;
// the first call yields the first record. Err reports the failure that ended
// the pass early, if any. Close releases the underlying OS resource and must
// be called exactly once; use Scan instead of calling it by hand.
type Snapshot interface {
	Next() bool
	Record() ProcessRecord
	Err() error
	Close() error
}

// ScanFunc receives the records of one pass. Returning false stops the pass.
type ScanFunc func(rec ProcessRecord) bool

// Scan opens one snapshot from provider, feeds every record to fn and closes
// the snapshot on every exit path. Errors from Open and from iteration are
// wrapped with ErrSnapshotUnavailable.
func Scan(provider SnapshotProvider, fn ScanFunc) (err error) {
	snap, err := provider.Open()
	if err != nil {
		return fmt.Errorf("%w: open: %w", ErrSnapshotUnavailable, err)
	}
	defer func() {
		if cerr := snap.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close snapshot: %w", cerr)
		}
	}()

	for snap.Next() {
		if !fn(snap.Record()) {
			return nil
		}
	}

	if err := snap.Err(); err != nil {
		return fmt.Errorf("%w: iterate: %w", ErrSnapshotUnavailable, err)
	}
	return nil
}

// Collect materializes one full pass of provider
func Collect(provider SnapshotProvider) ([]ProcessRecord, error) {
	var records []ProcessRecord
	err := Scan(provider, func(rec ProcessRecord) bool {
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
