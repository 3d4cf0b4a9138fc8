package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/taskmaster/internal/config"
	"github.com/papapumpkin/taskmaster/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-validate dependencies whenever the tasks file changes",
	Long: `Watches the tasks file and prints a validation report after every change.
With --fix, invalid dependencies are repaired as soon as they appear.`,
	RunE: runWithEnv(func(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
		if e.cfg.Store != config.StoreJSON {
			e.printer.Warnf("watch only follows the JSON tasks file; store is %q", e.cfg.Store)
		}
		fix, _ := cmd.Flags().GetBool("fix")

		w, err := watch.New(e.cfg.TasksFile)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e.printer.Infof("watching %s (ctrl-c to stop)", w.File)
		check := func() {
			if fix {
				res, err := e.mgr.FixDependencies(ctx)
				if err != nil {
					e.printer.Error(err.Error())
					return
				}
				if res.Changed {
					e.printer.FixStats(res.Stats)
				}
			}
			report, err := e.mgr.ValidateDependencies(ctx)
			if err != nil {
				e.printer.Error(err.Error())
				return
			}
			e.printer.ValidationReport(report)
		}
		check()

		for {
			select {
			case <-ctx.Done():
				return nil
			case c, ok := <-w.Changes:
				if !ok {
					return nil
				}
				if c.Removed {
					e.printer.Warnf("%s was removed", c.File)
					continue
				}
				check()
			}
		}
	}),
}

func init() {
	watchCmd.Flags().Bool("fix", false, "repair dependencies after every change")
	rootCmd.AddCommand(watchCmd)
}
