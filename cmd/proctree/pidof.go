package main

import (
	"fmt"
	"slices"
	"strings"

	"proctree/process"
	"proctree/process_tree"

	"github.com/spf13/cobra"
)

// nameLister is implemented by providers that match more than the
// snapshot name, such as the procfs provider matching the exe basename
type nameLister interface {
	ListByName(name string) ([]process.ProcessRecord, error)
}

func newPidofCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pidof <name>",
		Short: "Print the PIDs of all processes with the given name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			p, err := a.provider(ctx)
			if err != nil {
				return err
			}

			var records []process.ProcessRecord
			if l, ok := p.(nameLister); ok {
				records, err = l.ListByName(args[0])
			} else {
				records, err = process_tree.NewProcessFinder(p).FindProcessByName(args[0])
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no process named %q: %w", args[0], process.ErrProcessNotFound)
			}

			pids := make([]process.ProcessID, 0, len(records))
			for _, r := range records {
				pids = append(pids, r.PID)
			}
			slices.Sort(pids)
			pids = slices.Compact(pids)

			out := make([]string, len(pids))
			for i, pid := range pids {
				out[i] = fmt.Sprint(pid)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out, " "))
			return err
		},
	}
}
