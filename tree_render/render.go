// Package tree_render prints process trees as text, tables, JSON or YAML
package tree_render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"proctree/process"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Format selects how Render prints a tree
type Format string

const (
	FormatTree    Format = "tree"
	FormatTable   Format = "table"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatOneLine Format = "oneline"
)

// Formats lists every supported format, default first
var Formats = []Format{FormatTree, FormatTable, FormatJSON, FormatYAML, FormatOneLine}

// ParseFormat accepts a format name, case insensitive. Empty means tree.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatTree, nil
	}
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Options controls Render
type Options struct {
	Format Format
	Color  bool // ignored by json and yaml
}

// ColorEnabled resolves a --color mode of auto, always or never for w.
// auto colours only terminals, and only when NO_COLOR is unset.
func ColorEnabled(mode string, w io.Writer) (bool, error) {
	switch strings.ToLower(mode) {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false, nil
		}
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("unknown color mode %q", mode)
	}
}

// Render writes root to w in the chosen format
func Render(w io.Writer, root *process.ProcessTreeNode, opts Options) error {
	if root == nil {
		return errors.New("nothing to render")
	}

	p := painter(opts.Color)
	switch opts.Format {
	case FormatTree, "":
		return renderTree(w, root, p)
	case FormatTable:
		return renderTable(w, root, p)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(root)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return err
		}
		return enc.Close()
	case FormatOneLine:
		_, err := fmt.Fprintln(w, oneLine(root, p))
		return err
	default:
		return fmt.Errorf("unknown format %q", opts.Format)
	}
}

func label(n *process.ProcessTreeNode, p painter) string {
	return p.name(n.Name) + "(" + p.pid(n.PID) + ")"
}

// renderTree prints one node per line with pstree style branches
func renderTree(w io.Writer, root *process.ProcessTreeNode, p painter) error {
	type frame struct {
		node   *process.ProcessTreeNode
		prefix string // drawn before this node's branch
		last   bool
		depth  int
	}

	stack := []frame{{node: root, last: true}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		line := label(f.node, p)
		childPrefix := ""
		if f.depth > 0 {
			branch, cont := "├── ", "│   "
			if f.last {
				branch, cont = "└── ", "    "
			}
			line = f.prefix + p.branch(branch) + line
			childPrefix = f.prefix + p.branch(cont)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}

		kids := f.node.Children
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{
				node:   kids[i],
				prefix: childPrefix,
				last:   i == len(kids)-1,
				depth:  f.depth + 1,
			})
		}
	}
	return nil
}

func renderTable(w io.Writer, root *process.ProcessTreeNode, p painter) error {
	t := NewTable(
		ColumnSpec{Header: "PID", RightAlign: true, FormatFunc: p.pidText},
		ColumnSpec{Header: "PPID", RightAlign: true},
		ColumnSpec{Header: "DEPTH", RightAlign: true},
		ColumnSpec{Header: "NAME"},
	)
	root.Walk(func(node, parent *process.ProcessTreeNode, depth int) bool {
		ppid := ""
		if parent != nil {
			ppid = strconv.FormatUint(uint64(parent.PID), 10)
		}
		t.AddRow(
			strconv.FormatUint(uint64(node.PID), 10),
			ppid,
			strconv.Itoa(depth),
			strings.Repeat("  ", depth)+p.name(node.Name),
		)
		return true
	})
	return t.Render(w)
}

// OneLine joins every root to leaf path, as in
// "init(1) -> shell(2) -> editor(3) | init(1) -> browser(4)"
func OneLine(root *process.ProcessTreeNode) string {
	return oneLine(root, painter(false))
}

func oneLine(root *process.ProcessTreeNode, p painter) string {
	var (
		paths []string
		path  []string
	)
	root.Walk(func(node, _ *process.ProcessTreeNode, depth int) bool {
		path = append(path[:depth], label(node, p))
		if len(node.Children) == 0 {
			paths = append(paths, strings.Join(path, " -> "))
		}
		return true
	})
	return strings.Join(paths, " | ")
}
