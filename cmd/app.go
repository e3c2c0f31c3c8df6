package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/maxkimambo/sitepipe/internal/cache"
	"github.com/maxkimambo/sitepipe/internal/config"
	"github.com/maxkimambo/sitepipe/internal/dag"
	"github.com/maxkimambo/sitepipe/internal/logger"
	"github.com/maxkimambo/sitepipe/internal/metrics"
	"github.com/maxkimambo/sitepipe/internal/pipeline"
	"github.com/maxkimambo/sitepipe/internal/server"
	"github.com/maxkimambo/sitepipe/internal/utils"
	"github.com/maxkimambo/sitepipe/internal/watch"
)

// app wires configuration, the image cache, metrics, the dev server and
// the watcher into one runner.
type app struct {
	cache  cache.Cache
	runner *pipeline.Runner
}

// loadConfig reads the config file and environment, then applies any
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile, opts.root)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("parallel") {
		cfg.Parallel = opts.parallel
	}
	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("no-livereload") {
		cfg.Server.LiveReload = !opts.noLiveReload
	}
	if flags.Changed("watch-images") {
		cfg.Watch.Images = opts.watchImages
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command, opts *options) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	c, err := cache.Open(cfg.CachePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open image cache: %w", err)
	}

	rec := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
	srv := server.New(server.Options{
		Dir:        cfg.Out(),
		Addr:       cfg.Addr(),
		LiveReload: cfg.Server.LiveReload,
		Metrics:    rec.Handler(),
		Recorder:   rec,
	})

	var dispatcher *watch.Dispatcher
	runner, err := pipeline.NewRunner(cfg, pipeline.Deps{
		Cache:    c,
		Notifier: srv,
		Recorder: rec,
		Serve:    srv.Start,
		Watch: func(ctx context.Context) error {
			return watch.Watch(ctx, cfg.Src(), dispatcher)
		},
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	dispatcher = watch.NewDispatcher(watch.DefaultSubscriptions(cfg), runner, srv, rec)

	logger.Op.WithFields(map[string]interface{}{
		"root":   cfg.Root,
		"cache":  cfg.CachePath(),
		"server": cfg.Addr(),
	}).Debug("Pipeline configured")

	return &app{cache: c, runner: runner}, nil
}

func (a *app) Close() error {
	return a.cache.Close()
}

// runTargets runs targets and prints a summary of the outcome.
func runTargets(cmd *cobra.Command, opts *options, targets ...string) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.User.Starting(fmt.Sprintf("Running %s", strings.Join(targets, ", ")))
	result, err := a.runner.Run(cmd.Context(), targets...)
	if result != nil && !opts.quiet {
		printSummary(cmd, result, err)
	}
	return err
}

func printSummary(cmd *cobra.Command, result *dag.ExecutionResult, err error) {
	out := cmd.OutOrStdout()
	if flags := cmd.Flags(); flags.Changed("verbose") || flags.Changed("debug") {
		fmt.Fprint(out, utils.ResultTable(result))
	}
	if err != nil {
		fmt.Fprintln(out, utils.Error("Run failed", utils.FailureReport(result)))
		return
	}
	fmt.Fprintln(out, utils.Success("Done",
		fmt.Sprintf("%d tasks in %s", len(result.Order), result.ExecutionTime.Round(time.Millisecond))))
}
