package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/taskmaster/internal/tasks"
	"github.com/papapumpkin/taskmaster/internal/ui"
)

// Version is set at build time via ldflags.
var Version = "dev"

// errIssuesFound makes validate-dependencies exit non-zero after printing
// its report.
var errIssuesFound = errors.New("dependency issues found")

var rootCmd = &cobra.Command{
	Use:           "taskmaster",
	Short:         "Manage dependencies between tasks and subtasks",
	Long:          "Taskmaster adds, removes, validates and repairs the dependency graph of a tasks.json file.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errIssuesFound) {
			ui.New().Error(tasks.NewError(err).Error())
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .taskmaster.yaml)")
	pf.StringP("file", "f", "", "path to tasks.json")
	pf.String("tag", "", "tag whose tasks to operate on")
	pf.String("store", "", `storage backend: "json" or "sqlite"`)
	pf.Int("sibling-threshold", 0, "bare subtask dependencies below this number name siblings (0 or less disables shorthand; unset keeps the configured value)")
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.BoolP("silent", "s", false, "suppress progress output")
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"file":              "tasks_file",
	"tag":               "tag",
	"store":             "store",
	"sibling-threshold": "sibling_threshold",
	"verbose":           "verbose",
	"silent":            "silent",
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".taskmaster")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("TASKMASTER")
	viper.AutomaticEnv()

	for flag, key := range flagKeys {
		if f := rootCmd.PersistentFlags().Lookup(flag); f != nil && f.Changed {
			_ = viper.BindPFlag(key, f)
		}
	}

	// It's fine if no config file is found; we use defaults.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "warning: reading config: %v\n", err)
		}
	}
}
