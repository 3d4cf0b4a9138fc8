package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/taskmaster/internal/depgraph"
	"github.com/papapumpkin/taskmaster/internal/taskid"
	"github.com/papapumpkin/taskmaster/internal/ui"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "List tasks whose dependencies are all done, highest priority first",
	RunE: runWithEnv(func(ctx context.Context, _ *cobra.Command, e *env, _ []string) error {
		ready, err := e.mgr.NextTasks(ctx)
		if err != nil {
			return err
		}
		items := make([]ui.NextItem, len(ready))
		for i, t := range ready {
			items[i] = ui.NextItem{ID: t.ID.String(), Title: t.Title, Priority: t.Priority, Status: t.Status}
		}
		e.printer.NextTasks(items)
		return nil
	}),
}

var wavesCmd = &cobra.Command{
	Use:   "waves",
	Short: "Show tasks grouped into waves that can run in parallel",
	RunE: runWithEnv(func(ctx context.Context, _ *cobra.Command, e *env, _ []string) error {
		c, err := e.mgr.Load(ctx)
		if err != nil {
			return err
		}
		waves, err := depgraph.Waves(c, e.mgr.Options)
		if err != nil {
			return err
		}

		adj, _ := depgraph.Adjacency(c, e.mgr.Options)
		deps := make(map[string][]string, len(adj))
		for id, to := range adj {
			for _, dep := range to {
				deps[id.String()] = append(deps[id.String()], dep.String())
			}
		}
		titles := make(map[string]string)
		for _, n := range depgraph.Nodes(c) {
			titles[n.ID().String()] = n.Title()
		}
		r := &ui.WaveRenderer{
			Titles: titles,
			StatusFunc: func(id string) string {
				n, err := depgraph.Resolve(c, taskid.ID(id))
				if err != nil {
					return ""
				}
				return n.Status()
			},
		}
		e.printer.Waves(r, waves, deps)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(nextCmd, wavesCmd)
}
