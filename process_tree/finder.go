package process_tree

import (
	"fmt"
	"regexp"

	"proctree/process"

	mapset "github.com/deckarep/golang-set/v2"
)

// Finder implements the process.ProcessFinder interface over a snapshot provider
type Finder struct {
	provider process.SnapshotProvider
	builder  *Builder
}

var _ process.ProcessFinder = (*Finder)(nil)

// NewProcessFinder creates a Finder; opts configure the Builder used by GetProcessTree
func NewProcessFinder(provider process.SnapshotProvider, opts ...Option) *Finder {
	return &Finder{
		provider: provider,
		builder:  New(provider, opts...),
	}
}

// FindProcessByPID finds a process by its PID
func (f *Finder) FindProcessByPID(pid process.ProcessID) (*process.ProcessRecord, error) {
	var found *process.ProcessRecord
	err := process.Scan(f.provider, func(rec process.ProcessRecord) bool {
		if rec.PID == pid {
			found = &rec
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, pid)
	}
	return found, nil
}

// FindProcessByName finds processes by their name (exact match)
func (f *Finder) FindProcessByName(name string) ([]process.ProcessRecord, error) {
	return f.FindProcessByNamePattern("^" + regexp.QuoteMeta(name) + "$")
}

// FindProcessByNamePattern finds processes by their name (pattern match)
func (f *Finder) FindProcessByNamePattern(pattern string) ([]process.ProcessRecord, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	var results []process.ProcessRecord
	err = process.Scan(f.provider, func(rec process.ProcessRecord) bool {
		if re.MatchString(rec.Name) {
			results = append(results, rec)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FindAllProcesses returns every process of one pass
func (f *Finder) FindAllProcesses() ([]process.ProcessRecord, error) {
	return process.Collect(f.provider)
}

// FindChildProcesses finds all direct children of parentPID
func (f *Finder) FindChildProcesses(parentPID process.ProcessID) ([]process.ProcessRecord, error) {
	var children []process.ProcessRecord
	err := process.Scan(f.provider, func(rec process.ProcessRecord) bool {
		if rec.PPID == parentPID && rec.PID != parentPID {
			children = append(children, rec)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

// FindDescendantProcesses finds all descendants of rootPID, breadth first,
// from a single pass. The root itself is not included.
func (f *Finder) FindDescendantProcesses(rootPID process.ProcessID) ([]process.ProcessRecord, error) {
	allProcesses, err := f.FindAllProcesses()
	if err != nil {
		return nil, err
	}

	// Build a map of parent-to-children relationships
	childrenMap := make(map[process.ProcessID][]process.ProcessRecord)
	for _, proc := range allProcesses {
		if proc.PID == proc.PPID {
			continue
		}
		childrenMap[proc.PPID] = append(childrenMap[proc.PPID], proc)
	}

	var descendants []process.ProcessRecord
	queue := append([]process.ProcessRecord(nil), childrenMap[rootPID]...)
	visited := mapset.NewThreadUnsafeSet(rootPID)

	for len(queue) > 0 {
		proc := queue[0]
		queue = queue[1:]

		if !visited.Add(proc.PID) {
			continue
		}

		descendants = append(descendants, proc)
		queue = append(queue, childrenMap[proc.PID]...)
	}

	return descendants, nil
}

// GetProcessTree returns the tree rooted at rootPID or ErrProcessNotFound
func (f *Finder) GetProcessTree(rootPID process.ProcessID) (*process.ProcessTreeNode, error) {
	root, ok := f.builder.GetProcessTree(rootPID)
	if !ok {
		return nil, fmt.Errorf("%w: pid %d", process.ErrProcessNotFound, rootPID)
	}
	return root, nil
}
