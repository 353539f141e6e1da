// Package process_snapshot saves a process table to a YAML file and replays
// it later as a snapshot provider.
package process_snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"proctree/process"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FormatVersion is written to every dump. Load rejects newer versions.
const FormatVersion = 1

// Dump is a process table captured at one point in time
type Dump struct {
	Version  int                     `yaml:"version"`
	Captured time.Time               `yaml:"captured"`
	Hostname string                  `yaml:"hostname,omitempty"`
	Records  []process.ProcessRecord `yaml:"records"`
}

// Capture reads one full pass from provider
func Capture(provider process.SnapshotProvider) (*Dump, error) {
	records, err := process.Collect(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to capture process table: %w", err)
	}

	hostname, _ := os.Hostname()
	return &Dump{
		Version:  FormatVersion,
		Captured: time.Now().UTC(),
		Hostname: hostname,
		Records:  records,
	}, nil
}

// Provider replays the dump. Every pass yields the records in saved order.
func (d *Dump) Provider() *process.StaticProvider {
	return process.NewStaticProvider(d.Records)
}

// Save writes the dump to path, creating parent directories as needed
func Save(fs afero.Fs, path string, d *Dump) error {
	if d == nil {
		return errors.New("nil dump")
	}
	if d.Version == 0 {
		d.Version = FormatVersion
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// write then rename so a reader never sees half a file
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load reads a dump written by Save
func Load(fs afero.Fs, path string) (*Dump, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var d Dump
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", path, err)
	}
	if d.Version > FormatVersion {
		return nil, fmt.Errorf("snapshot %s has version %d, newest supported is %d", path, d.Version, FormatVersion)
	}
	return &d, nil
}

// Summary describes a dump in a few numbers
type Summary struct {
	Records int
	Roots   int // records whose parent is not in the table
	Names   int // distinct names
}

// Summarize counts records, roots and distinct names
func (d *Dump) Summarize() Summary {
	pids := mapset.NewThreadUnsafeSetWithSize[process.ProcessID](len(d.Records))
	names := mapset.NewThreadUnsafeSet[string]()
	for _, r := range d.Records {
		pids.Add(r.PID)
		names.Add(r.Name)
	}

	s := Summary{Records: len(d.Records), Names: names.Cardinality()}
	for _, r := range d.Records {
		if !pids.Contains(r.PPID) || r.PPID == r.PID {
			s.Roots++
		}
	}
	return s
}
