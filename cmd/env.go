package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/taskmaster/internal/config"
	"github.com/papapumpkin/taskmaster/internal/depgraph"
	"github.com/papapumpkin/taskmaster/internal/manager"
	"github.com/papapumpkin/taskmaster/internal/store"
	"github.com/papapumpkin/taskmaster/internal/taskfiles"
	"github.com/papapumpkin/taskmaster/internal/telemetry"
	"github.com/papapumpkin/taskmaster/internal/ui"
)

// env is what every command needs: configuration, output and a manager.
type env struct {
	cfg     config.Config
	printer *ui.Printer
	store   store.Store
	mgr     *manager.Manager
	closers []func() error
}

func newEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	p := ui.NewWriter(cmd.ErrOrStderr())
	p.SetVerbose(cfg.Verbose)
	e := &env{cfg: cfg, printer: p}

	var st store.Store
	switch cfg.Store {
	case config.StoreSQLite:
		db, err := store.OpenSQLite(cmd.Context(), cfg.DBPath, cfg.Tag)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, db.Close)
		st = db
	default:
		st = store.NewJSONFile(cfg.TasksFile, cfg.Tag)
	}
	e.store = st

	var logger depgraph.Logger = p
	if cfg.Silent {
		logger = depgraph.NopLogger{}
	}
	e.mgr = &manager.Manager{
		Store:    st,
		TasksDir: cfg.TasksDir,
		Tag:      cfg.Tag,
		Options:  depgraph.Options{Logger: logger, SiblingThreshold: cfg.ShorthandThreshold()},
	}
	if cfg.GenerateFiles {
		e.mgr.Hook = &taskfiles.Generator{Store: st}
	}
	if cfg.TelemetryFile != "" {
		em, err := telemetry.NewEmitter(cfg.TelemetryFile)
		if err != nil {
			e.close()
			return nil, err
		}
		e.closers = append(e.closers, em.Close)
		e.mgr.Telemetry = em
	}
	return e, nil
}

// close releases the store and telemetry file. Errors are reported, not
// returned: the command's own result matters more.
func (e *env) close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			e.printer.Warnf("%v", err)
		}
	}
}

// runWithEnv adapts a command body that needs an env to cobra's RunE.
func runWithEnv(fn func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd.Context(), cmd, e, args)
	}
}
