package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/taskmaster/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved revisions of the current tag (SQLite store only)",
	RunE: runWithEnv(func(ctx context.Context, _ *cobra.Command, e *env, _ []string) error {
		db, ok := e.store.(*store.SQLite)
		if !ok {
			return fmt.Errorf("history needs the sqlite store; current store is %q", e.cfg.Store)
		}
		revs, err := db.Revisions(ctx)
		if err != nil {
			return err
		}
		e.printer.Revisions(e.cfg.Tag, revs)
		return nil
	}),
}


var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the JSON tasks file into the sqlite store",
	RunE: runWithEnv(func(ctx context.Context, _ *cobra.Command, e *env, _ []string) error {
		if _, ok := e.store.(*store.SQLite); !ok {
			return fmt.Errorf("import needs the sqlite store; current store is %q", e.cfg.Store)
		}
		c, err := store.NewJSONFile(e.cfg.TasksFile, e.cfg.Tag).Load(ctx)
		if err != nil {
			return err
		}
		if err := e.store.Save(ctx, c); err != nil {
			return err
		}
		e.printer.Success(fmt.Sprintf("imported %d task(s) from %s into %s", len(c.Tasks), e.cfg.TasksFile, e.store.Location()))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(historyCmd, importCmd)
}
