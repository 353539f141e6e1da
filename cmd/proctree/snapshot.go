package main

import (
	"fmt"
	"strconv"
	"time"

	"proctree/process_snapshot"
	"proctree/tree_render"

	"github.com/spf13/cobra"
)

func newSnapshotCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or inspect process table snapshots",
	}

	save := &cobra.Command{
		Use:   "save <file>",
		Short: "Save the current process table as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()

			p, err := a.provider(ctx)
			if err != nil {
				return err
			}
			d, err := process_snapshot.Capture(p)
			if err != nil {
				return err
			}
			if err := process_snapshot.Save(a.fs, args[0], d); err != nil {
				return err
			}
			a.log.Infoln("saved", len(d.Records), "processes to", args[0])
			return nil
		},
	}

	var records bool
	show := &cobra.Command{
		Use:   "show <file>",
		Short: "Summarize a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := process_snapshot.Load(a.fs, args[0])
			if err != nil {
				return err
			}

			s := d.Summarize()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "captured: %s\n", d.Captured.Format(time.RFC3339))
			fmt.Fprintf(w, "hostname: %s\n", d.Hostname)
			fmt.Fprintf(w, "processes: %d\n", s.Records)
			fmt.Fprintf(w, "roots: %d\n", s.Roots)
			fmt.Fprintf(w, "names: %d\n", s.Names)
			if !records {
				return nil
			}

			t := tree_render.NewTable(
				tree_render.ColumnSpec{Header: "PID", RightAlign: true},
				tree_render.ColumnSpec{Header: "PPID", RightAlign: true},
				tree_render.ColumnSpec{Header: "NAME"},
			)
			for _, r := range d.Records {
				t.AddRow(strconv.FormatUint(uint64(r.PID), 10), strconv.FormatUint(uint64(r.PPID), 10), r.Name)
			}
			fmt.Fprintln(w)
			return t.Render(w)
		},
	}
	show.Flags().BoolVar(&records, "records", false, "also list every record")

	cmd.AddCommand(save, show)
	return cmd
}
