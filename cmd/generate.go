package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/taskmaster/internal/taskfiles"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write one markdown file per task into the tasks directory",
	RunE: runWithEnv(func(ctx context.Context, cmd *cobra.Command, e *env, _ []string) error {
		dir, _ := cmd.Flags().GetString("output")
		if dir == "" {
			dir = e.cfg.TasksDir
		}
		c, err := e.mgr.Load(ctx)
		if err != nil {
			return err
		}
		if err := taskfiles.Write(c, dir); err != nil {
			return err
		}
		e.printer.Success(fmt.Sprintf("wrote %d task file(s) to %s", len(c.Tasks), dir))
		return nil
	}),
}

func init() {
	generateCmd.Flags().StringP("output", "o", "", "output directory (default: tasks_dir)")
	rootCmd.AddCommand(generateCmd)
}
