package process

// ProcessFinder defines operations for discovering processes and their relationships
type ProcessFinder interface {
	// FindProcessByPID finds a process by its PID
	FindProcessByPID(pid ProcessID) (*ProcessRecord, error)

	// FindProcessByName finds processes by their name (exact match)
	FindProcessByName(name string) ([]ProcessRecord, error)

	// FindProcessByNamePattern finds processes by their name (pattern match)
	FindProcessByNamePattern(pattern string) ([]ProcessRecord, error)

	// FindAllProcesses returns every process of one snapshot pass
	FindAllProcesses() ([]ProcessRecord, error)

	// Process hierarchy operations
	ProcessHierarchy
}

// ProcessHierarchy defines operations for working with process relationships
type ProcessHierarchy interface {
	// FindChildProcesses finds all child processes of a given PID
	FindChildProcesses(parentPID ProcessID) ([]ProcessRecord, error)

	// FindDescendantProcesses finds all descendant processes (children, grandchildren, etc.) of a given PID
	FindDescendantProcesses(rootPID ProcessID) ([]ProcessRecord, error)

	// GetProcessTree returns a tree-like representation of processes starting from a root PID
	GetProcessTree(rootPID ProcessID) (*ProcessTreeNode, error)
}
