package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxkimambo/sitepipe/internal/config"
	"github.com/maxkimambo/sitepipe/internal/pipeline"
	"github.com/maxkimambo/sitepipe/internal/utils"
)

// taskCommands returns one subcommand per declared task.
func taskCommands(opts *options) []*cobra.Command {
	var cmds []*cobra.Command
	for _, task := range pipeline.Tasks(config.Default("."), pipeline.Deps{}) {
		id := task.GetID()
		cmds = append(cmds, &cobra.Command{
			Use:   id,
			Short: task.GetDescription(),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTargets(cmd, opts, id)
			},
		})
	}
	return cmds
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <task> [<task>...]",
		Short: "Run several tasks in one invocation",
		Long: `Run several tasks in one invocation, one after another in the order
given. Shared dependencies run once. Long-running tasks (server, watch,
default) start together after the rest.

Example:
  sitepipe run html less js
  sitepipe run clear image`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTargets(cmd, opts, args...)
		},
	}
}

func newTasksCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List declared tasks and their dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			runner, err := pipeline.NewRunner(cfg, pipeline.Deps{})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), utils.TaskTable(runner.Tasks()))
			return nil
		},
	}
}
