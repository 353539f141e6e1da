package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"proctree/config"
	"proctree/process"
	"proctree/process_portable"
	"proctree/process_snapshot"
	"proctree/process_stats"
	"proctree/process_tree"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand of one invocation
type app struct {
	fs         afero.Fs
	log        *logger.Logger
	configPath string
	cfg        config.Config
	stats      *process_stats.InstrumentedProvider
}

func newApp(fs afero.Fs) *app {
	return &app{
		fs:  fs,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "proctree")),
	}
}

func newRootCommand(a *app) *cobra.Command {
	d := config.Default()

	root := &cobra.Command{
		Use:          "proctree [pid]",
		Short:        "Print the descendant tree of a process",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(a.fs).Load(cmd.Flags(), a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.logStats()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.runTree(cmd, args[0])
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default proctree.yaml in the user config dir or working dir)")
	pf.String("format", d.Format, "output format: tree, table, json, yaml or oneline")
	pf.String("strategy", d.Strategy, "expansion strategy: rescan or indexed")
	pf.String("provider", d.Provider, "process table source: auto, procfs, toolhelp or gopsutil")
	pf.String("proc-root", d.ProcRoot, "procfs mount point for the procfs provider")
	pf.String("from-file", d.FromFile, "read the process table from a saved snapshot")
	pf.String("color", d.Color, "colour output: auto, always or never")
	pf.Duration("timeout", d.Timeout, "give up waiting for a query after this long, 0 waits forever")
	pf.Bool("strict", d.Strict, "fail when any snapshot pass failed")
	pf.Bool("stats", d.Stats, "log snapshot pass statistics")

	root.AddCommand(
		newTreeCommand(a),
		newPidofCommand(a),
		newKillCommand(a),
		newSnapshotCommand(a),
	)
	return root
}

// provider opens the process table source selected by the configuration
func (a *app) provider(ctx context.Context) (process.SnapshotProvider, error) {
	var (
		p   process.SnapshotProvider
		err error
	)

	switch {
	case a.cfg.FromFile != "":
		var d *process_snapshot.Dump
		d, err = process_snapshot.Load(a.fs, a.cfg.FromFile)
		if err == nil {
			a.log.Debugln("replaying snapshot", a.cfg.FromFile, "captured", d.Captured, "on", d.Hostname)
			p = d.Provider()
		}
	case strings.EqualFold(a.cfg.Provider, "gopsutil"):
		p = process_portable.NewProvider(ctx)
	default:
		p, err = platformProvider(strings.ToLower(a.cfg.Provider), a.cfg.ProcRoot)
	}
	if err != nil {
		return nil, err
	}

	if a.cfg.Stats {
		a.stats = process_stats.Instrument(p, prometheus.NewRegistry())
		return a.stats, nil
	}
	return p, nil
}

// builder returns a tree builder over the configured provider
func (a *app) builder(ctx context.Context) (*process_tree.Builder, error) {
	strategy, err := process_tree.ParseStrategy(a.cfg.Strategy)
	if err != nil {
		return nil, err
	}
	p, err := a.provider(ctx)
	if err != nil {
		return nil, err
	}
	return process_tree.New(p, process_tree.WithStrategy(strategy)), nil
}

// context bounds a query by the configured timeout
func (a *app) context(parent context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(parent, a.cfg.Timeout)
	}
	return context.WithCancel(parent)
}

// buildTree resolves pid with the configured strategy, honouring --strict
func (a *app) buildTree(cmd *cobra.Command, pid process.ProcessID) (*process.ProcessTreeNode, error) {
	ctx, cancel := a.context(cmd.Context())
	defer cancel()

	b, err := a.builder(ctx)
	if err != nil {
		return nil, err
	}

	r, err := b.BuildContext(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("query for process %d: %w", pid, err)
	}
	if r.Err != nil {
		if a.cfg.Strict {
			return nil, fmt.Errorf("%d snapshot passes failed: %w", len(r.Failures()), r.Err)
		}
		a.log.Warn("tree may be incomplete: ", r.Err)
	}
	if !r.Found {
		return nil, notFoundError(pid)
	}
	return r.Root, nil
}

func (a *app) logStats() {
	if a.stats == nil {
		return
	}
	s, err := a.stats.Summary()
	if err != nil {
		a.log.Warn("failed to gather snapshot stats: ", err)
		return
	}
	a.log.Infoln("snapshot stats:", s)
}

// notFoundError prints as "process <pid> not found" and matches
// process.ErrProcessNotFound
type notFoundError process.ProcessID

func (e notFoundError) Error() string {
	return fmt.Sprintf("process %d not found", process.ProcessID(e))
}

func (e notFoundError) Unwrap() error {
	return process.ErrProcessNotFound
}

func parsePID(s string) (process.ProcessID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return process.ProcessID(n), nil
}
