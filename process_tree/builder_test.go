package process_tree

import (
	"errors"
	"fmt"
	"testing"

	"proctree/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var strategies = []Strategy{StrategyRescan, StrategyIndexed}

func rec(pid, ppid process.ProcessID, name string) process.ProcessRecord {
	return process.ProcessRecord{PID: pid, PPID: ppid, Name: name}
}

func node(pid process.ProcessID, name string, children ...*process.ProcessTreeNode) *process.ProcessTreeNode {
	n := process.NewProcessTreeNode(pid, name)
	n.Children = append(n.Children, children...)
	return n
}

var scenarioTable = []process.ProcessRecord{
	rec(1, 0, "init"),
	rec(2, 1, "shell"),
	rec(3, 2, "editor"),
	rec(4, 1, "browser"),
}

func forEachStrategy(t *testing.T, fn func(t *testing.T, s Strategy)) {
	for _, s := range strategies {
		t.Run(s.String(), func(t *testing.T) {
			fn(t, s)
		})
	}
}

func TestScenarioTree(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, s Strategy) {
		b := New(process.NewStaticProvider(scenarioTable), WithStrategy(s))

		root, ok := b.GetProcessTree(1)
		require.True(t, ok)

		expected := node(1, "init",
			node(2, "shell", node(3, "editor")),
			node(4, "browser"),
		)
		assert.Equal(t, expected, root)
	})
}

func TestAbsentRoot(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, s Strategy) {
		b := New(process.NewStaticProvider(scenarioTable), WithStrategy(s))

		root, ok := b.GetProcessTree(99)
		assert.False(t, ok)
		assert.Nil(t, root)
	})
}

func TestRootIdentity(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, s Strategy) {
		b := New(process.NewStaticProvider(scenarioTable), WithStrategy(s))

		root, ok := b.GetProcessTree(2)
		require.True(t, ok)
		assert.Equal(t, process.ProcessID(2), root.PID)
		assert.Equal(t, "shell", root.Name)
		assert.Equal(t, []process.ProcessID{2, 3}, root.PIDs())
	})
}

func TestLeafRoot(t *testing.T) {
	b := New(process.NewStaticProvider(scenarioTable))

	root, ok := b.GetProcessTree(3)
	require.True(t, ok)
	assert.Empty(t, root.Children)
	assert.NotNil(t, root.Children)
}

func TestOrphanIsUnreachable(t *testing.T) {
	table := append(append([]process.ProcessRecord(nil), scenarioTable...), rec(5, 42, "zombie"))

	forEachStrategy(t, func(t *testing.T, s Strategy) {
		b := New(process.NewStaticProvider(table), WithStrategy(s))

		root, ok := b.GetProcessTree(1)
		require.True(t, ok)
		assert.Nil(t, root.Find(5))
		assert.Equal(t, 4, root.Len())
	})
}

func TestSelfParentRecord(t *testing.T) {
	table := []process.ProcessRecord{
		rec(0, 0, "System Idle Process"),
		rec(4, 0, "System"),
		rec(88, 4, "Registry"),
	}

	forEachStrategy(t, func(t *testing.T, s Strategy) {
		b := New(process.NewStaticProvider(table), WithStrategy(s))

		root, ok := b.GetProcessTree(0)
		require.True(t, ok)

		expected := node(0, "System Idle Process",
			node(4, "System", node(88, "Registry")),
		)
		assert.Equal(t, expected, root)
	})
}

func TestDuplicateRecords(t *testing.T) {
	table := []process.ProcessRecord{
		rec(1, 0, "init"),
		rec(2, 1, "shell"),
		rec(2, 1, "shell"),
		rec(3, 2, "editor"),
	}

	forEachStrategy(t, func(t *testing.T, s Strategy) {
		b := New(process.NewStaticProvider(table), WithStrategy(s))

		root, ok := b.GetProcessTree(1)
		require.True(t, ok)
		assert.Equal(t, []process.ProcessID{1, 2, 3}, root.PIDs())
	})
}

func TestPIDUnderTwoParentsKeepsFirstClaim(t *testing.T) {
	// 5 is listed under 2 and under 1; the pass over 1 claims it first
	table := []process.ProcessRecord{
		rec(1, 0, "init"),
		rec(2, 1, "shell"),
		rec(5, 2, "job"),
		rec(5, 1, "job"),
	}

	forEachStrategy(t, func(t *testing.T, s Strategy) {
		b := New(process.NewStaticProvider(table), WithStrategy(s))

		root, ok := b.GetProcessTree(1)
		require.True(t, ok)
		expected := node(1, "init",
			node(2, "shell"),
			node(5, "job"),
		)
		assert.Equal(t, expected, root)
	})
}

func TestPIDReuseCycleTerminates(t *testing.T) {
	// 2 and 3 claim each other as parent, as can happen when short lived
	// processes reuse ids between passes
	table := []process.ProcessRecord{
		rec(1, 0, "init"),
		rec(2, 1, "a"),
		rec(3, 2, "b"),
		rec(2, 3, "a-reused"),
		rec(1, 3, "init-reused"),
	}

	forEachStrategy(t, func(t *testing.T, s Strategy) {
		b := New(process.NewStaticProvider(table), WithStrategy(s))

		root, ok := b.GetProcessTree(1)
		require.True(t, ok)
		assert.Equal(t, []process.ProcessID{1, 2, 3}, root.PIDs())
	})
}

func TestChildOrderFollowsScanOrder(t *testing.T) {
	table := []process.ProcessRecord{
		rec(10, 1, "z"),
		rec(1, 0, "init"),
		rec(3, 1, "y"),
		rec(7, 1, "x"),
	}

	forEachStrategy(t, func(t *testing.T, s Strategy) {
		b := New(process.NewStaticProvider(table), WithStrategy(s))

		root, ok := b.GetProcessTree(1)
		require.True(t, ok)
		assert.Equal(t, []process.ProcessID{1, 10, 3, 7}, root.PIDs())
	})
}

func TestParentChildCorrectness(t *testing.T) {
	table := randomTable(200)
	p := process.NewStaticProvider(table)

	forEachStrategy(t, func(t *testing.T, s Strategy) {
		root, ok := New(p, WithStrategy(s)).GetProcessTree(1)
		require.True(t, ok)

		seen := map[process.ProcessID]bool{}
		root.Walk(func(n, _ *process.ProcessTreeNode, _ int) bool {
			require.False(t, seen[n.PID], "pid %d appears twice", n.PID)
			seen[n.PID] = true

			var want []process.ProcessID
			for _, r := range table {
				if r.PPID == n.PID && r.PID != n.PID {
					want = append(want, r.PID)
				}
			}
			var got []process.ProcessID
			for _, c := range n.Children {
				got = append(got, c.PID)
			}
			assert.Equal(t, want, got, "children of %d", n.PID)
			return true
		})
		assert.Len(t, seen, len(table))
	})
}

func TestIdempotentOnStaticTable(t *testing.T) {
	p := process.NewStaticProvider(randomTable(64))

	forEachStrategy(t, func(t *testing.T, s Strategy) {
		b := New(p, WithStrategy(s))
		first, ok := b.GetProcessTree(1)
		require.True(t, ok)
		second, ok := b.GetProcessTree(1)
		require.True(t, ok)
		assert.Equal(t, first, second)
	})

	rescan, _ := New(p, WithStrategy(StrategyRescan)).GetProcessTree(1)
	indexed, _ := New(p, WithStrategy(StrategyIndexed)).GetProcessTree(1)
	assert.Equal(t, rescan, indexed)
}

func TestDeepChainDoesNotRecurse(t *testing.T) {
	depths := map[Strategy]int{
		// one pass per node makes rescan quadratic
		StrategyRescan:  2000,
		StrategyIndexed: 20000,
	}

	forEachStrategy(t, func(t *testing.T, s Strategy) {
		depth := depths[s]
		table := make([]process.ProcessRecord, 0, depth)
		for i := 1; i <= depth; i++ {
			table = append(table, rec(process.ProcessID(i), process.ProcessID(i-1), fmt.Sprintf("p%d", i)))
		}

		root, ok := New(process.NewStaticProvider(table), WithStrategy(s)).GetProcessTree(1)
		require.True(t, ok)
		assert.Equal(t, depth, root.Len())
		assert.Equal(t, depth-1, root.Depth())
	})
}

func TestPassCounts(t *testing.T) {
	p := process.NewStaticProvider(scenarioTable)
	r := New(p).Build(1)
	require.True(t, r.Found)
	// one resolution pass plus one pass per node
	assert.Equal(t, 5, r.Passes)
	assert.Equal(t, 5, p.Opens())
	assert.NoError(t, r.Err)

	p = process.NewStaticProvider(scenarioTable)
	r = New(p, WithStrategy(StrategyIndexed)).Build(1)
	assert.Equal(t, 2, r.Passes)
	assert.Equal(t, 2, p.Opens())

	p = process.NewStaticProvider(scenarioTable)
	r = New(p).Build(99)
	assert.False(t, r.Found)
	assert.Equal(t, 1, r.Passes)
}

func TestRootResolutionFailureIsAbsent(t *testing.T) {
	p := &flakyProvider{inner: process.NewStaticProvider(scenarioTable), failOpen: map[int]bool{1: true}}

	r := New(p).Build(1)
	assert.False(t, r.Found)
	assert.Nil(t, r.Root)
	require.Len(t, r.Failures(), 1)
	assert.ErrorIs(t, r.Err, process.ErrSnapshotUnavailable)
}

func TestExpansionFailureDegrades(t *testing.T) {
	// pass 1 resolves the root, pass 2 expands 1, pass 3 expands 2 and fails
	p := &flakyProvider{inner: process.NewStaticProvider(scenarioTable), failOpen: map[int]bool{3: true}}

	b := New(p)
	r := b.Build(1)
	require.True(t, r.Found)

	expected := node(1, "init",
		node(2, "shell"),
		node(4, "browser"),
	)
	assert.Equal(t, expected, r.Root)
	require.Len(t, r.Failures(), 1)
	assert.ErrorIs(t, r.Err, process.ErrSnapshotUnavailable)
	assert.Contains(t, r.Err.Error(), "expand pid 2")
}

func TestIterationFailureKeepsEarlierChildren(t *testing.T) {
	table := []process.ProcessRecord{
		rec(1, 0, "init"),
		rec(2, 1, "first"),
		rec(3, 1, "second"),
	}
	// the pass expanding pid 1 breaks after two records
	p := &flakyProvider{inner: process.NewStaticProvider(table), failAfter: map[int]int{2: 2}}

	root, ok := New(p).GetProcessTree(1)
	require.True(t, ok)
	assert.Equal(t, []process.ProcessID{1, 2}, root.PIDs())
}

func TestIndexedFailureDegrades(t *testing.T) {
	p := &flakyProvider{inner: process.NewStaticProvider(scenarioTable), failOpen: map[int]bool{2: true}}

	r := New(p, WithStrategy(StrategyIndexed)).Build(1)
	require.True(t, r.Found)
	assert.Equal(t, node(1, "init"), r.Root)
	assert.Len(t, r.Failures(), 1)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"", StrategyRescan},
		{"rescan", StrategyRescan},
		{"Indexed", StrategyIndexed},
		{" index ", StrategyIndexed},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStrategy("bogus")
	assert.Error(t, err)
	assert.Equal(t, "strategy(9)", Strategy(9).String())
}

// randomTable builds a deterministic acyclic table rooted at pid 1 whose
// records are not sorted by pid
func randomTable(n int) []process.ProcessRecord {
	table := []process.ProcessRecord{rec(1, 0, "init")}
	for i := 2; i <= n; i++ {
		parent := process.ProcessID(1 + (i*7919)%(i-1))
		table = append(table, rec(process.ProcessID(i), parent, fmt.Sprintf("proc-%d", i)))
	}
	// interleave so children often come before their parents
	out := make([]process.ProcessRecord, 0, n)
	for i := len(table) - 1; i >= 0; i -= 2 {
		out = append(out, table[i])
	}
	for i := len(table) - 2; i >= 0; i -= 2 {
		out = append(out, table[i])
	}
	return out
}

// flakyProvider fails chosen passes, counted from 1
type flakyProvider struct {
	inner     process.SnapshotProvider
	failOpen  map[int]bool
	failAfter map[int]int
	opens     int
}

var errFlaky = errors.New("snapshot refused")

func (p *flakyProvider) Open() (process.Snapshot, error) {
	p.opens++
	if p.failOpen[p.opens] {
		return nil, errFlaky
	}
	snap, err := p.inner.Open()
	if err != nil {
		return nil, err
	}
	if limit, ok := p.failAfter[p.opens]; ok {
		return &truncatedSnapshot{Snapshot: snap, left: limit}, nil
	}
	return snap, nil
}

type truncatedSnapshot struct {
	process.Snapshot
	left int
	err  error
}

func (s *truncatedSnapshot) Next() bool {
	if s.left == 0 {
		s.err = errFlaky
		return false
	}
	s.left--
	return s.Snapshot.Next()
}

func (s *truncatedSnapshot) Err() error {
	return s.err
}
