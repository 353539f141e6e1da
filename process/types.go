package process

// ProcessID represents a process identifier as reported by the OS.
// IDs are unique among live processes but get reused over time.
type ProcessID uint32

// ProcessRecord is one row of a process table snapshot
type ProcessRecord struct {
	PID  ProcessID `json:"pid" yaml:"pid"`   // Process ID
	PPID ProcessID `json:"ppid" yaml:"ppid"` // Parent Process ID at creation time, may be stale
	Name string    `json:"name" yaml:"name"` // Executable base name
}

// ProcessTreeNode represents a node in a process tree.
// Children are owned by their parent, there are no back references.
type ProcessTreeNode struct {
	PID      ProcessID          `json:"pid" yaml:"pid"`
	Name     string             `json:"name" yaml:"name"`
	Children []*ProcessTreeNode `json:"children" yaml:"children"`
}

// NewProcessTreeNode creates a childless node
func NewProcessTreeNode(pid ProcessID, name string) *ProcessTreeNode {
	return &ProcessTreeNode{
		PID:      pid,
		Name:     name,
		Children: []*ProcessTreeNode{},
	}
}

// WalkFunc is called for every node visited by Walk. parent is nil for the
// node Walk was called on. Returning false skips the node's children.
type WalkFunc func(node, parent *ProcessTreeNode, depth int) bool

// Walk visits the tree in pre-order, children in insertion order.
func (n *ProcessTreeNode) Walk(fn WalkFunc) {
	if n == nil {
		return
	}

	type frame struct {
		node   *ProcessTreeNode
		parent *ProcessTreeNode
		depth  int
	}

	stack := []frame{{node: n}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(f.node, f.parent, f.depth) {
			continue
		}

		// push in reverse so the first child is visited first
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], parent: f.node, depth: f.depth + 1})
		}
	}
}

// Find returns the node with the given PID, or nil
func (n *ProcessTreeNode) Find(pid ProcessID) *ProcessTreeNode {
	var found *ProcessTreeNode
	n.Walk(func(node, _ *ProcessTreeNode, _ int) bool {
		if found != nil {
			return false
		}
		if node.PID == pid {
			found = node
			return false
		}
		return true
	})
	return found
}

// PIDs returns every PID of the tree in pre-order
func (n *ProcessTreeNode) PIDs() []ProcessID {
	var pids []ProcessID
	n.Walk(func(node, _ *ProcessTreeNode, _ int) bool {
		pids = append(pids, node.PID)
		return true
	})
	return pids
}

// Len returns the number of nodes in the tree
func (n *ProcessTreeNode) Len() int {
	count := 0
	n.Walk(func(*ProcessTreeNode, *ProcessTreeNode, int) bool {
		count++
		return true
	})
	return count
}

// Depth returns the number of levels below n, 0 for a leaf
func (n *ProcessTreeNode) Depth() int {
	deepest := 0
	n.Walk(func(_, _ *ProcessTreeNode, depth int) bool {
		deepest = max(deepest, depth)
		return true
	})
	return deepest
}

// PostOrder returns the nodes with every child before its parent
func (n *ProcessTreeNode) PostOrder() []*ProcessTreeNode {
	var pre []*ProcessTreeNode
	n.Walk(func(node, _ *ProcessTreeNode, _ int) bool {
		pre = append(pre, node)
		return true
	})

	// reversed pre-order puts descendants ahead of their ancestors
	out := make([]*ProcessTreeNode, len(pre))
	for i, node := range pre {
		out[len(pre)-1-i] = node
	}
	return out
}
