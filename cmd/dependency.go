package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var addDependencyCmd = &cobra.Command{
	Use:   "add-dependency",
	Short: "Make a task or subtask depend on another",
	Example: `  taskmaster add-dependency --id 5 --depends-on 3
  taskmaster add-dependency --id 5.2 --depends-on 5.1`,
	RunE: runWithEnv(func(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
		id, dep := idFlags(cmd)
		res, err := e.mgr.AddDependency(ctx, id, dep)
		if err != nil {
			return err
		}
		if res.Changed {
			e.printer.Success(fmt.Sprintf("%s now depends on %s", id, dep))
		}
		return nil
	}),
}

var removeDependencyCmd = &cobra.Command{
	Use:     "remove-dependency",
	Short:   "Remove a dependency from a task or subtask",
	Example: "  taskmaster remove-dependency --id 5 --depends-on 3",
	RunE: runWithEnv(func(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
		id, dep := idFlags(cmd)
		res, err := e.mgr.RemoveDependency(ctx, id, dep)
		if err != nil {
			return err
		}
		if res.Changed {
			e.printer.Success(fmt.Sprintf("removed dependency %s from %s", dep, id))
		} else {
			e.printer.Infof("%s does not depend on %s", id, dep)
		}
		return nil
	}),
}

var validateDependenciesCmd = &cobra.Command{
	Use:   "validate-dependencies",
	Short: "Report invalid and circular dependencies without changing anything",
	RunE: runWithEnv(func(ctx context.Context, _ *cobra.Command, e *env, _ []string) error {
		report, err := e.mgr.ValidateDependencies(ctx)
		if err != nil {
			return err
		}
		e.printer.ValidationReport(report)
		if !report.Valid {
			return errIssuesFound
		}
		return nil
	}),
}

var fixDependenciesCmd = &cobra.Command{
	Use:   "fix-dependencies",
	Short: "Remove invalid dependencies and break cycles",
	RunE: runWithEnv(func(ctx context.Context, _ *cobra.Command, e *env, _ []string) error {
		res, err := e.mgr.FixDependencies(ctx)
		if err != nil {
			return err
		}
		e.printer.FixStats(res.Stats)
		return nil
	}),
}

var ensureIndependentCmd = &cobra.Command{
	Use:   "ensure-independent",
	Short: "Give every task with subtasks at least one subtask that can start immediately",
	RunE: runWithEnv(func(ctx context.Context, _ *cobra.Command, e *env, _ []string) error {
		res, err := e.mgr.EnsureIndependentSubtask(ctx)
		if err != nil {
			return err
		}
		if !res.Changed {
			e.printer.Success("every task already has an independent subtask")
			return nil
		}
		e.printer.Success(fmt.Sprintf("cleared dependencies of %d subtask(s)", len(res.Cleared)))
		return nil
	}),
}

func init() {
	for _, c := range []*cobra.Command{addDependencyCmd, removeDependencyCmd} {
		c.Flags().StringP("id", "i", "", "task or subtask that gets or loses the dependency")
		c.Flags().StringP("depends-on", "d", "", "dependency task or subtask")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(validateDependenciesCmd, fixDependenciesCmd, ensureIndependentCmd)
}

func idFlags(cmd *cobra.Command) (string, string) {
	id, _ := cmd.Flags().GetString("id")
	dep, _ := cmd.Flags().GetString("depends-on")
	return id, dep
}

