package tree_render

import (
	"fmt"

	"proctree/process"
)

const (
	ansiYellow = 33
	ansiCyan   = 36
	ansiGray   = 90
)

func colorize(code int, s string) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", code, s)
}

// painter colours the parts of a rendered tree when true
type painter bool

func (p painter) paint(code int, s string) string {
	if !p || s == "" {
		return s
	}
	return colorize(code, s)
}

func (p painter) pid(pid process.ProcessID) string {
	return p.pidText(fmt.Sprint(pid))
}

func (p painter) pidText(s string) string {
	return p.paint(ansiYellow, s)
}

func (p painter) name(s string) string {
	if s == "" {
		s = "?"
	}
	return p.paint(ansiCyan, s)
}

func (p painter) branch(s string) string {
	return p.paint(ansiGray, s)
}
