package main

import (
	"errors"
	"fmt"

	"proctree/config"

	"github.com/spf13/cobra"
)

var errKillFromFile = errors.New("refusing to signal processes read from a snapshot file, use --dry-run")

func newKillCommand(a *app) *cobra.Command {
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "kill <pid>",
		Short: "Terminate a process and all of its descendants, children first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}
			if a.cfg.FromFile != "" && !a.cfg.DryRun {
				// the PIDs of a saved table may belong to other processes by now
				return errKillFromFile
			}
			root, err := a.buildTree(cmd, pid)
			if err != nil {
				return err
			}

			order := root.PostOrder()
			if a.cfg.DryRun {
				for _, n := range order {
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", n.PID, n.Name); err != nil {
						return err
					}
				}
				return nil
			}

			a.log.Infoln("terminating", len(order), "processes under", pid)
			ctx, cancel := a.context(cmd.Context())
			defer cancel()
			return killTree(ctx, root, a.cfg.Signal)
		},
	}

	cmd.Flags().String("signal", d.Signal, "signal to send on unix, by name or number")
	cmd.Flags().Bool("dry-run", d.DryRun, "print the kill order without signalling anything")
	return cmd
}
