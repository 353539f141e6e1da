// Package process_tree builds the descendant tree of a process from passes
// over a process.SnapshotProvider.
//
// Each expansion may observe a different state of the live process table, so
// a tree is not a consistent cut of the system: a process that exits between
// two passes can show up as a childless leaf or be missing, and a process
// created after its parent's pass went by is not attached. Trees built from a
// static provider are deterministic.
//
// A PID is placed at most once per query. All children found in a node's
// pass are claimed before any of them is expanded, so when the table lists
// a PID under more than one parent it lands under the one expanded first:
// with records (2,1) (5,2) (5,1), pid 5 is a child of 1, not of 2.
package process_tree

import (
	"fmt"
	"strings"

	"proctree/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/multierr"
)

// Strategy selects how children are discovered
type Strategy int

const (
	// StrategyRescan opens one fresh pass per expanded node. Cost is
	// O(processes * tree size) but no pass is held open for long.
	StrategyRescan Strategy = iota

	// StrategyIndexed reads one pass into a parent to children index and
	// expands the whole tree from it.
	StrategyIndexed
)

func (s Strategy) String() string {
	switch s {
	case StrategyRescan:
		return "rescan"
	case StrategyIndexed:
		return "indexed"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses the names returned by Strategy.String
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rescan":
		return StrategyRescan, nil
	case "indexed", "index":
		return StrategyIndexed, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", s)
	}
}

// Builder constructs process trees. It keeps no state between queries.
type Builder struct {
	provider process.SnapshotProvider
	strategy Strategy
	log      *logger.Logger
}

// Option configures a Builder
type Option func(*Builder)

// WithStrategy selects the child discovery strategy
func WithStrategy(s Strategy) Option {
	return func(b *Builder) {
		b.strategy = s
	}
}

// WithLogger replaces the default logger
func WithLogger(l *logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// New creates a Builder reading the process table from provider
func New(provider process.SnapshotProvider, opts ...Option) *Builder {
	b := &Builder{
		provider: provider,
		strategy: StrategyRescan,
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-tree")),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Strategy returns the configured strategy
func (b *Builder) Strategy() Strategy {
	return b.strategy
}

// Report describes one query
type Report struct {
	Root   *process.ProcessTreeNode // nil when the root was not found
	Found  bool
	Passes int   // snapshot passes opened
	Err    error // combined pass failures, nil when every pass succeeded
}

// Failures returns the individual pass failures
func (r Report) Failures() []error {
	return multierr.Errors(r.Err)
}

// GetProcessTree returns the tree rooted at rootPID, or false when no process
// with that PID was seen by the root resolution pass. Failed passes are not
// reported: the affected node just has fewer children.
func (b *Builder) GetProcessTree(rootPID process.ProcessID) (*process.ProcessTreeNode, bool) {
	r := b.Build(rootPID)
	return r.Root, r.Found
}

// Build runs the same query as GetProcessTree and reports pass failures.
func (b *Builder) Build(rootPID process.ProcessID) Report {
	q := &query{
		b:      b,
		placed: mapset.NewThreadUnsafeSet[process.ProcessID](),
	}

	name, ok := q.resolveRootName(rootPID)
	if !ok {
		b.log.Debugln("process", rootPID, "not found")
		return q.report
	}

	root := process.NewProcessTreeNode(rootPID, name)
	q.placed.Add(rootPID)

	switch b.strategy {
	case StrategyIndexed:
		q.expandIndexed(root)
	default:
		q.expandRescan(root)
	}

	q.report.Root = root
	q.report.Found = true
	b.log.Debugln("built tree for", rootPID, "with", q.placed.Cardinality(), "processes in", q.report.Passes, "passes")
	return q.report
}

// query holds the state of one Build call
type query struct {
	b      *Builder
	placed mapset.Set[process.ProcessID]
	report Report
}

func (q *query) scan(fn process.ScanFunc) error {
	q.report.Passes++
	return process.Scan(q.b.provider, fn)
}

func (q *query) fail(err error) {
	q.b.log.Warn("snapshot pass failed: ", err)
	q.report.Err = multierr.Append(q.report.Err, err)
}

// resolveRootName is the existence check: one pass looking for pid
func (q *query) resolveRootName(pid process.ProcessID) (string, bool) {
	var (
		name  string
		found bool
	)
	err := q.scan(func(rec process.ProcessRecord) bool {
		if rec.PID == pid {
			name, found = rec.Name, true
			return false
		}
		return true
	})
	if err != nil {
		q.fail(fmt.Errorf("resolve pid %d: %w", pid, err))
	}
	return name, found
}

// adopt creates the child node for rec unless its PID is already in the tree
func (q *query) adopt(parent *process.ProcessTreeNode, rec process.ProcessRecord) *process.ProcessTreeNode {
	if rec.PID == parent.PID {
		return nil
	}
	if !q.placed.Add(rec.PID) {
		q.b.log.Debugln("skipping pid", rec.PID, "under", parent.PID, ": already in tree")
		return nil
	}
	child := process.NewProcessTreeNode(rec.PID, rec.Name)
	parent.Children = append(parent.Children, child)
	return child
}

// expandRescan opens one pass per node. The worklist is a stack so nodes are
// expanded depth first, in the same order a recursive expansion would use,
// but a node's children are all claimed before the first one is expanded.
func (q *query) expandRescan(root *process.ProcessTreeNode) {
	stack := []*process.ProcessTreeNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var found []*process.ProcessTreeNode
		err := q.scan(func(rec process.ProcessRecord) bool {
			if rec.PPID == node.PID {
				if child := q.adopt(node, rec); child != nil {
					found = append(found, child)
				}
			}
			return true
		})
		if err != nil {
			// children seen before the failure stay attached
			q.fail(fmt.Errorf("expand pid %d: %w", node.PID, err))
		}

		for i := len(found) - 1; i >= 0; i-- {
			stack = append(stack, found[i])
		}
	}
}

// expandIndexed reads one pass into a parent to children index
func (q *query) expandIndexed(root *process.ProcessTreeNode) {
	children := make(map[process.ProcessID][]process.ProcessRecord)
	err := q.scan(func(rec process.ProcessRecord) bool {
		if rec.PID != rec.PPID {
			children[rec.PPID] = append(children[rec.PPID], rec)
		}
		return true
	})
	if err != nil {
		q.fail(fmt.Errorf("index process table: %w", err))
	}

	stack := []*process.ProcessTreeNode{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var found []*process.ProcessTreeNode
		for _, rec := range children[node.PID] {
			if child := q.adopt(node, rec); child != nil {
				found = append(found, child)
			}
		}

		for i := len(found) - 1; i >= 0; i-- {
			stack = append(stack, found[i])
		}
	}
}
