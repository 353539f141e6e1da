package main

import (
	"proctree/tree_render"

	"github.com/spf13/cobra"
)

func newTreeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <pid>",
		Short: "Print a process and all of its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTree(cmd, args[0])
		},
	}
}

func (a *app) runTree(cmd *cobra.Command, arg string) error {
	pid, err := parsePID(arg)
	if err != nil {
		return err
	}
	format, err := tree_render.ParseFormat(a.cfg.Format)
	if err != nil {
		return err
	}
	color, err := tree_render.ColorEnabled(a.cfg.Color, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	root, err := a.buildTree(cmd, pid)
	if err != nil {
		return err
	}
	return tree_render.Render(cmd.OutOrStdout(), root, tree_render.Options{Format: format, Color: color})
}
