package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
	"github.com/maxkimambo/sitepipe/internal/logger"
	"github.com/maxkimambo/sitepipe/internal/pipeline"
)

var version = "v0.1.0"

// options holds the persistent flag values shared by every command.
type options struct {
	debug    bool
	verbose  bool
	jsonLogs bool
	quiet    bool

	configFile string
	root       string
	parallel   int

	host         string
	port         int
	noLiveReload bool
	watchImages  bool
}

var rootCmd = newRootCmd()

// Execute runs the CLI. SIGINT and SIGTERM cancel the running tasks.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(os.Stderr, buildErrors.FormatForCLI(err))
	}
	return err
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sitepipe",
		Short: "Asset pipeline and dev server for the movie site",
		Long: `sitepipe builds the promotional movie website from src/ into build/.

Every pipeline task is a subcommand. Running sitepipe without a subcommand
builds everything, then serves build/ with live reload and rebuilds on
source changes.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupWithWriters(opts.verbose || opts.debug, opts.jsonLogs, opts.quiet,
				cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTargets(cmd, opts, pipeline.TaskDefault)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&opts.jsonLogs, "json", false, "Output logs in JSON format")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress non-error output")
	flags.StringVarP(&opts.configFile, "config", "c", "", "Config file (default <root>/sitepipe.yaml when present)")
	flags.StringVar(&opts.root, "root", ".", "Project root directory")
	flags.IntVar(&opts.parallel, "parallel", 0, "Maximum tasks run at once (default one per CPU)")
	flags.StringVar(&opts.host, "host", "", "Development server host (default localhost)")
	flags.IntVar(&opts.port, "port", 0, "Development server port (default 8080)")
	flags.BoolVar(&opts.noLiveReload, "no-livereload", false, "Disable live reload in the development server")
	flags.BoolVar(&opts.watchImages, "watch-images", false, "Recompress images when they change while watching")

	for _, c := range taskCommands(opts) {
		cmd.AddCommand(c)
	}
	cmd.AddCommand(newRunCmd(opts), newTasksCmd(opts), newGraphCmd(opts))
	return cmd
}
